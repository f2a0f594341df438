package engine

import (
	"math"

	"github.com/Lavizord/crash-server/internal/models"
)

// The risk manager bounds house liability in real time. It only ever
// tightens ceilings: the committed terminal value was generated under
// the same bound, so the live cap governs the displayed path without
// changing settlement math.

// payoutMicros is the settlement formula: stake x (current / entry),
// minus the house edge.
func payoutMicros(stake int64, currentMultiplier, entryMultiplier, houseEdge float64) int64 {
	if entryMultiplier <= 0 {
		entryMultiplier = 1.0
	}
	return int64(math.Round(float64(stake) * (currentMultiplier / entryMultiplier) * (1.0 - houseEdge)))
}

// worstCasePayout is a bet's payout if the round ran to MaxMultiplier,
// after the per-bet and absolute caps.
func worstCasePayout(bet *models.Bet, cfg Config) int64 {
	raw := payoutMicros(bet.Amount, cfg.MaxMultiplier, bet.EntryMultiplier, cfg.HouseEdge)
	if cap := int64(float64(bet.Amount) * cfg.MaxPayoutFactor); raw > cap {
		raw = cap
	}
	if raw > cfg.MaxSinglePayout {
		raw = cfg.MaxSinglePayout
	}
	return raw
}

// MaxSafeMultiplier computes the live ceiling: the multiplier at which
// paying out every open bet would consume the safety budget. Returns
// MaxMultiplier when the worst case is already covered.
func MaxSafeMultiplier(bets []*models.Bet, house *models.HouseState, cfg Config) float64 {
	budget := float64(house.Available()) * cfg.SafetyFactor
	var perX float64 // payout per 1x of multiplier across open bets
	for _, b := range bets {
		if b.Resolved() {
			continue
		}
		entry := b.EntryMultiplier
		if entry <= 0 {
			entry = 1.0
		}
		perX += float64(b.Amount) * (1.0 - cfg.HouseEdge) / entry
	}
	if perX == 0 {
		return cfg.MaxMultiplier
	}
	if perX*cfg.MaxMultiplier <= budget {
		return cfg.MaxMultiplier
	}
	capm := budget / perX
	if capm < 1.0 {
		capm = 1.0
	}
	return capm
}

// ShouldInstantStop is the hard backstop: a single outsized wager or
// aggregate exposure beyond what the house can absorb forces an
// immediate crash regardless of the committed terminal value.
func ShouldInstantStop(bets []*models.Bet, house *models.HouseState, cfg Config) (string, bool) {
	threshold := float64(house.Available()) * cfg.SafetyFactor
	singleLimit := threshold * cfg.SingleBetStopFactor
	var exposure int64
	for _, b := range bets {
		if b.Resolved() {
			continue
		}
		if float64(b.Amount) > singleLimit {
			return "risk_stop", true
		}
		exposure += worstCasePayout(b, cfg)
	}
	if float64(exposure) > float64(house.Available())*cfg.ExposureStopFactor {
		return "risk_stop", true
	}
	return "", false
}

// CanCoverOpenBets is the boolean capacity signal put on the public
// broadcast; the raw balance never leaves the admin surface.
func CanCoverOpenBets(bets []*models.Bet, currentMultiplier float64, house *models.HouseState, cfg Config) bool {
	var due int64
	for _, b := range bets {
		if b.Resolved() {
			continue
		}
		p := payoutMicros(b.Amount, currentMultiplier, b.EntryMultiplier, cfg.HouseEdge)
		if cap := int64(float64(b.Amount) * cfg.MaxPayoutFactor); p > cap {
			p = cap
		}
		if p > cfg.MaxSinglePayout {
			p = cfg.MaxSinglePayout
		}
		due += p
	}
	return due <= house.Available()
}

// TierFor derives the operating tier from the custody balance.
func TierFor(balanceMicros int64, cfg Config) models.HouseTier {
	switch {
	case balanceMicros < cfg.TierEmergencyBelow:
		return models.TierEmergency
	case balanceMicros < cfg.TierCriticalBelow:
		return models.TierCritical
	case balanceMicros < cfg.TierBootstrapBelow:
		return models.TierBootstrap
	default:
		return models.TierNormal
	}
}
