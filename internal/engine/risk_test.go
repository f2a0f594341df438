package engine

import (
	"math"
	"testing"

	"github.com/Lavizord/crash-server/internal/models"
)

func TestPayoutFormula(t *testing.T) {
	// stake 1 unit, entry 1.0x, cash out at 2.5x with a 5% edge:
	// exactly 2.375 units
	got := payoutMicros(1*models.MicrosPerUnit, 2.5, 1.0, 0.05)
	if got != 2_375_000 {
		t.Fatalf("payout = %d micros, want 2375000", got)
	}
	// mid-round entry at 2.0x, cashed at 4.0x: the ratio is what pays
	got = payoutMicros(1*models.MicrosPerUnit, 4.0, 2.0, 0.05)
	if got != 1_900_000 {
		t.Fatalf("mid-round payout = %d micros, want 1900000", got)
	}
}

// The per-bet cap must hold even for pathological entry multipliers
// near zero, where the raw ratio explodes.
func TestPayoutCapPathologicalEntry(t *testing.T) {
	cfg := DefaultConfig()
	bet := &models.Bet{Amount: 1 * models.MicrosPerUnit, EntryMultiplier: 0.01}
	got := cappedPayout(bet, cfg.MaxMultiplier, cfg)
	if want := int64(float64(bet.Amount) * cfg.MaxPayoutFactor); got != want {
		t.Fatalf("payout = %d, want capped at %d", got, want)
	}

	// a zero entry is treated as 1.0, not a division blowup
	bet = &models.Bet{Amount: 1 * models.MicrosPerUnit, EntryMultiplier: 0}
	if got := cappedPayout(bet, 2.0, cfg); got != 1_900_000 {
		t.Fatalf("zero-entry payout = %d, want 1900000", got)
	}
}

func TestMaxSafeMultiplierCoversWorstCase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinReserve = 0
	house := &models.HouseState{BalanceMicros: 100 * models.MicrosPerUnit}
	bets := []*models.Bet{
		{Amount: 10 * models.MicrosPerUnit, EntryMultiplier: 1.0, Outcome: models.OutcomeOpen},
		{Amount: 5 * models.MicrosPerUnit, EntryMultiplier: 2.0, Outcome: models.OutcomeOpen},
	}
	capm := MaxSafeMultiplier(bets, house, cfg)

	// paying every open bet at the cap must not exceed the budget
	var due float64
	for _, b := range bets {
		due += float64(b.Amount) * (1 - cfg.HouseEdge) * capm / b.EntryMultiplier
	}
	budget := float64(house.Available()) * cfg.SafetyFactor
	if due > budget+1 {
		t.Fatalf("cap %v exposes %v beyond budget %v", capm, due, budget)
	}
	// and the cap should sit right at the budget, not far under it
	if due < budget*0.999 {
		t.Fatalf("cap %v leaves budget unused: %v of %v", capm, due, budget)
	}
}

func TestMaxSafeMultiplierNoBets(t *testing.T) {
	cfg := DefaultConfig()
	house := &models.HouseState{BalanceMicros: 1}
	if got := MaxSafeMultiplier(nil, house, cfg); got != cfg.MaxMultiplier {
		t.Fatalf("no open bets should allow the full range, got %v", got)
	}
}

func TestMaxSafeMultiplierIgnoresResolvedBets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinReserve = 0
	house := &models.HouseState{BalanceMicros: 10 * models.MicrosPerUnit}
	bets := []*models.Bet{
		{Amount: 500 * models.MicrosPerUnit, EntryMultiplier: 1.0, Outcome: models.OutcomeWon},
	}
	if got := MaxSafeMultiplier(bets, house, cfg); got != cfg.MaxMultiplier {
		t.Fatalf("resolved bets must not constrain the cap, got %v", got)
	}
}

// The documented instant-stop scenario: available 12.5, safety factor
// 0.8 makes the threshold 10, stop factor 0.5 caps a single bet at 5.
// An 8 unit wager trips the stop. The payout factor is pinned low so
// the aggregate exposure branch stays quiet; it has its own test below.
func TestShouldInstantStopSingleBet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinReserve = 0
	cfg.SafetyFactor = 0.8
	cfg.SingleBetStopFactor = 0.5
	cfg.MaxPayoutFactor = 1.0
	house := &models.HouseState{BalanceMicros: 12_500_000}

	bets := []*models.Bet{
		{Amount: 8 * models.MicrosPerUnit, EntryMultiplier: 1.0, Outcome: models.OutcomeOpen},
	}
	reason, stop := ShouldInstantStop(bets, house, cfg)
	if !stop {
		t.Fatalf("8 unit bet against a 5 unit limit should force a stop")
	}
	if reason != "risk_stop" {
		t.Fatalf("reason = %q, want risk_stop", reason)
	}

	bets[0].Amount = 4 * models.MicrosPerUnit
	if _, stop := ShouldInstantStop(bets, house, cfg); stop {
		t.Fatalf("4 unit bet under the limit must not stop")
	}
}

func TestShouldInstantStopAggregateExposure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinReserve = 0
	cfg.ExposureStopFactor = 2.0
	house := &models.HouseState{BalanceMicros: 10 * models.MicrosPerUnit}

	// each bet is individually small, together their worst case dwarfs
	// what the house can absorb
	var bets []*models.Bet
	for i := 0; i < 10; i++ {
		bets = append(bets, &models.Bet{
			Amount:          models.MicrosPerUnit / 2,
			EntryMultiplier: 1.0,
			Outcome:         models.OutcomeOpen,
		})
	}
	if _, stop := ShouldInstantStop(bets, house, cfg); !stop {
		t.Fatalf("aggregate exposure beyond available*%v should force a stop", cfg.ExposureStopFactor)
	}
}

func TestCanCoverOpenBets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinReserve = 0
	house := &models.HouseState{BalanceMicros: 3 * models.MicrosPerUnit}
	bets := []*models.Bet{
		{Amount: 1 * models.MicrosPerUnit, EntryMultiplier: 1.0, Outcome: models.OutcomeOpen},
	}
	if !CanCoverOpenBets(bets, 2.0, house, cfg) {
		t.Fatalf("house holding 3 units can cover a 1.9 unit payout")
	}
	if CanCoverOpenBets(bets, 4.0, house, cfg) {
		t.Fatalf("house holding 3 units cannot cover a 3.8 unit payout")
	}
}

func TestTierForBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		balance int64
		want    models.HouseTier
	}{
		{cfg.TierEmergencyBelow - 1, models.TierEmergency},
		{cfg.TierEmergencyBelow, models.TierCritical},
		{cfg.TierCriticalBelow - 1, models.TierCritical},
		{cfg.TierCriticalBelow, models.TierBootstrap},
		{cfg.TierBootstrapBelow - 1, models.TierBootstrap},
		{cfg.TierBootstrapBelow, models.TierNormal},
	}
	for _, tc := range tests {
		if got := TierFor(tc.balance, cfg); got != tc.want {
			t.Fatalf("balance=%d got=%s want=%s", tc.balance, got, tc.want)
		}
	}
}

func TestFloor2(t *testing.T) {
	if got := Floor2(2.379); got != 2.37 {
		t.Fatalf("Floor2(2.379) = %v", got)
	}
	if got := Floor2(150.0); math.Abs(got-150.0) > 1e-9 {
		t.Fatalf("Floor2(150.0) = %v", got)
	}
}
