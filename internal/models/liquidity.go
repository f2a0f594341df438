package models

// LiquidityProfile drives the cosmetic activity overlay of one round.
// Simulated numbers are display-only: every broadcast carries them in
// separate "boosted" fields and they never enter settlement math.
type LiquidityProfile struct {
	BaselineMicros int64   `json:"baseline_micros"` // simulated stake at round start
	GrowthPerSec   int64   `json:"growth_per_sec"`  // micros added per second up to the peak
	Volatility     float64 `json:"volatility"`      // relative jitter, 0..1
	PeakSeconds    float64 `json:"peak_seconds"`    // when the simulated crowd peaks
	DeclineRate    float64 `json:"decline_rate"`    // relative shrink per second past the peak
	AvgBetMicros   int64   `json:"avg_bet_micros"`  // used to derive a fake player count
}
