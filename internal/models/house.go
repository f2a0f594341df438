package models

import (
	"time"
)

type HouseTier string

const (
	TierEmergency HouseTier = "EMERGENCY"
	TierCritical  HouseTier = "CRITICAL"
	TierBootstrap HouseTier = "BOOTSTRAP"
	TierNormal    HouseTier = "NORMAL"
)

// HouseState is the process-wide risk context. It is mutated by every
// resolved bet and by the periodic custody balance refresh; the tier it
// derives governs edge, bet limits and ceilings for the NEXT round only.
type HouseState struct {
	BalanceMicros    int64     `json:"balance_micros"` // cached custody balance
	BalanceFetchedAt time.Time `json:"balance_fetched_at"`
	MinReserveMicros int64     `json:"min_reserve_micros"`

	Tier            HouseTier `json:"tier"`
	RoundsPlayed    int64     `json:"rounds_played"`    // monotonic, unlike the cyclic round sequence
	TierChangedSeq  int64     `json:"tier_changed_seq"` // RoundsPlayed at the last switch, for hysteresis
	RecentProfit    []int64   `json:"recent_profit"`    // rolling (stake - payout) per round, micros
	ConsecutiveHigh int       `json:"consecutive_high"` // crashes above the high-multiplier mark in a row
	DampenRounds    int       `json:"dampen_rounds"`    // profitability cooldown ceiling, rounds remaining

	// Engagement counters, snapshotted across restarts so the overlay
	// pattern does not reset on every deploy.
	EmptyRounds int       `json:"empty_rounds"` // consecutive effectively-empty rounds
	FomoRun     int       `json:"fomo_run"`     // consecutive rounds the engagement overlay fired
	RareEventAt time.Time `json:"rare_event_at,omitempty"`
}

// Available is the balance the risk manager may expose, custody minus
// the untouchable reserve.
func (h *HouseState) Available() int64 {
	a := h.BalanceMicros - h.MinReserveMicros
	if a < 0 {
		return 0
	}
	return a
}

// RecordProfit pushes a round result into the bounded rolling window.
func (h *HouseState) RecordProfit(profitMicros int64, window int) {
	h.RecentProfit = append(h.RecentProfit, profitMicros)
	if window > 0 && len(h.RecentProfit) > window {
		h.RecentProfit = h.RecentProfit[len(h.RecentProfit)-window:]
	}
}

// ProfitRatio returns rolling profit over rolling stake-sized turnover.
// With no history it reports 1.0 so dampening stays off.
func (h *HouseState) ProfitRatio() float64 {
	if len(h.RecentProfit) == 0 {
		return 1.0
	}
	var profit, turnover int64
	for _, p := range h.RecentProfit {
		profit += p
		if p >= 0 {
			turnover += p
		} else {
			turnover -= p
		}
	}
	if turnover == 0 {
		return 1.0
	}
	return float64(profit) / float64(turnover)
}
