package models

import (
	"fmt"
	"time"
)

type RoundStatus string

const (
	RoundWaiting RoundStatus = "WAITING"
	RoundActive  RoundStatus = "ACTIVE"
	RoundCrashed RoundStatus = "CRASHED"
)

// MaxSequence is the cyclic round sequence range (1..MaxSequence).
const MaxSequence = 100

type PricePoint struct {
	At         int64   `json:"at"` // unix millis
	Multiplier float64 `json:"multiplier"`
}

// Round is one play of the crash game. There is exactly one Round in
// WAITING or ACTIVE per process; the crashworker owns all mutations.
type Round struct {
	ID         string      `json:"id"`
	Sequence   int         `json:"sequence"` // cyclic 1..100
	Status     RoundStatus `json:"status"`
	Seed       string      `json:"seed"`      // revealed at crash
	SeedHash   string      `json:"seed_hash"` // committed at round start
	StartTime  time.Time   `json:"start_time"`
	Multiplier float64     `json:"multiplier"`  // live displayed multiplier
	CrashPoint float64     `json:"crash_point"` // fixed at lift-off, hidden until crash
	CrashedAt  time.Time   `json:"crashed_at,omitempty"`

	// Real totals only, the cosmetic layer never lands here.
	TotalStake  int64 `json:"total_stake"` // micros
	PlayerCount int   `json:"player_count"`

	History []PricePoint `json:"history,omitempty"`
}

// This map holds the valid status transitions. Status only moves forward.
var validRoundTransitions = map[RoundStatus]map[RoundStatus]bool{
	RoundWaiting: {
		RoundActive:  true,
		RoundCrashed: true, // instant-stop during the betting window
	},
	RoundActive: {
		RoundCrashed: true,
	},
	RoundCrashed: {},
}

func (r *Round) UpdateRoundStatus(newStatus RoundStatus) error {
	if r.Status == newStatus {
		return fmt.Errorf("round %s already in status %s", r.ID, newStatus)
	}
	if !validRoundTransitions[r.Status][newStatus] {
		return fmt.Errorf("invalid round status transition from %s to %s", r.Status, newStatus)
	}
	r.Status = newStatus
	return nil
}

// AppendPrice records a tick of the displayed multiplier, keeping the
// history bounded so the round record stays broadcastable.
func (r *Round) AppendPrice(now time.Time, multiplier float64, limit int) {
	r.History = append(r.History, PricePoint{At: now.UnixMilli(), Multiplier: multiplier})
	if limit > 0 && len(r.History) > limit {
		r.History = r.History[len(r.History)-limit:]
	}
}

// NextSequence wraps the cyclic sequence counter.
func NextSequence(prev int) int {
	if prev >= MaxSequence || prev < 0 {
		return 1
	}
	return prev + 1
}
