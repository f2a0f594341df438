package engine

import (
	"time"

	"github.com/Lavizord/crash-server/internal/models"
)

// Config holds every tunable of the round engine. Amounts are micros.
type Config struct {
	TickInterval time.Duration
	WaitingTicks int           // ticks spent in WAITING before lift-off
	SettleDelay  time.Duration // pause after a crash before the next betting window
	MaxRoundTime time.Duration // forced stop on runaway rounds

	MaxMultiplier float64
	HouseEdge     float64

	MinBet          int64
	MaxBet          int64
	MinHoldTime     time.Duration // anti instant-exploit rule on cash-out
	MaxPayoutFactor float64       // payout cap as a multiple of stake
	MaxSinglePayout int64         // absolute payout ceiling

	SafetyFactor        float64 // share of available balance the live cap may expose
	SingleBetStopFactor float64 // single bet above threshold*factor forces a crash
	ExposureStopFactor  float64 // aggregate worst-case exposure above available*factor forces a crash

	MinReserve         int64
	TierEmergencyBelow int64
	TierCriticalBelow  int64
	TierBootstrapBelow int64
	TierCooldownRounds int64 // rounds between tier switches, prevents flapping

	// Per-tier knobs for the next round. Factors scale MaxBet.
	TierMaxBetFactor map[models.HouseTier]float64
	TierCeilings     map[models.HouseTier]float64
	TierCapProb      map[models.HouseTier]float64

	RareEventProb     float64
	RareEventCooldown time.Duration
	RareEventLowStake int64 // overlay only fires under this much real stake
	RareEventMin      float64
	RareEventMax      float64
	RareExposureCap   int64 // hard cap on the round's theoretical payout exposure

	FomoEmptyStake   int64 // a round under this real stake counts as effectively empty
	FomoEmptyRounds  int   // consecutive empty rounds before the overlay may fire
	FomoProb         float64
	FomoMin          float64
	FomoMax          float64
	FomoRunLimit     int     // consecutiveFomoLimit
	FomoBreakProb    float64 // random early break, keeps the pattern irregular
	FomoBreakCeiling float64

	ProfitWindow         int
	ProfitTargetRatio    float64
	HighMultiplier       float64 // crashes above this feed the consecutive-high counter
	ConsecutiveHighLimit int
	DampenedCeiling      float64
	DampenCooldownRounds int

	HouseAccount    string
	HouseBalanceTTL time.Duration

	SnapshotMaxAge time.Duration // recovery staleness threshold
	HistoryLimit   int           // price points kept on the round
}

func DefaultConfig() Config {
	return Config{
		TickInterval: 100 * time.Millisecond,
		WaitingTicks: 100, // 10s betting window at the default tick
		SettleDelay:  3 * time.Second,
		MaxRoundTime: 60 * time.Second,

		MaxMultiplier: 150.0,
		HouseEdge:     0.05,

		MinBet:          models.MicrosPerUnit / 2,
		MaxBet:          100 * models.MicrosPerUnit,
		MinHoldTime:     2 * time.Second,
		MaxPayoutFactor: 50.0,
		MaxSinglePayout: 5000 * models.MicrosPerUnit,

		SafetyFactor:        0.8,
		SingleBetStopFactor: 0.5,
		ExposureStopFactor:  2.0,

		MinReserve:         500 * models.MicrosPerUnit,
		TierEmergencyBelow: 1000 * models.MicrosPerUnit,
		TierCriticalBelow:  5000 * models.MicrosPerUnit,
		TierBootstrapBelow: 20000 * models.MicrosPerUnit,
		TierCooldownRounds: 10,

		TierMaxBetFactor: map[models.HouseTier]float64{
			models.TierNormal:    1.0,
			models.TierBootstrap: 0.5,
			models.TierCritical:  0.2,
			models.TierEmergency: 0.1,
		},
		TierCeilings: map[models.HouseTier]float64{
			models.TierBootstrap: 10.0,
			models.TierCritical:  5.0,
			models.TierEmergency: 2.0,
		},
		TierCapProb: map[models.HouseTier]float64{
			models.TierBootstrap: 0.55,
			models.TierCritical:  0.75,
			models.TierEmergency: 0.95,
		},

		RareEventProb:     0.005,
		RareEventCooldown: 30 * time.Minute,
		RareEventLowStake: 10 * models.MicrosPerUnit,
		RareEventMin:      20.0,
		RareEventMax:      200.0,
		RareExposureCap:   2000 * models.MicrosPerUnit,

		FomoEmptyStake:   1 * models.MicrosPerUnit,
		FomoEmptyRounds:  5,
		FomoProb:         0.35,
		FomoMin:          5.0,
		FomoMax:          20.0,
		FomoRunLimit:     3,
		FomoBreakProb:    0.25,
		FomoBreakCeiling: 1.5,

		ProfitWindow:         20,
		ProfitTargetRatio:    0.1,
		HighMultiplier:       10.0,
		ConsecutiveHighLimit: 3,
		DampenedCeiling:      3.0,
		DampenCooldownRounds: 5,

		HouseAccount:    "house",
		HouseBalanceTTL: 5 * time.Second,

		SnapshotMaxAge: 5 * time.Minute,
		HistoryLimit:   600,
	}
}

// MaxBetForTier scales the bet ceiling for the house's operating tier.
func (c Config) MaxBetForTier(tier models.HouseTier) int64 {
	factor, ok := c.TierMaxBetFactor[tier]
	if !ok {
		factor = 1.0
	}
	return int64(float64(c.MaxBet) * factor)
}
