package models

import (
	"fmt"
	"time"
)

type BetOutcome string

const (
	OutcomeOpen      BetOutcome = "OPEN"
	OutcomeWon       BetOutcome = "WON"
	OutcomeLost      BetOutcome = "LOST"
	OutcomeAbandoned BetOutcome = "ABANDONED" // recovered from a stale snapshot
)

// Bet is one player's wager within a Round. A user holds at most one
// open Bet per round; resolution is a one-way transition.
type Bet struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	RoundID         string     `json:"round_id"`
	Amount          int64      `json:"amount"` // micros
	EntryMultiplier float64    `json:"entry_multiplier"`
	PlacedAt        time.Time  `json:"placed_at"`
	Collected       bool       `json:"collected"` // stake debited from the custodial balance
	Outcome         BetOutcome `json:"outcome"`

	CashOutMultiplier float64   `json:"cash_out_multiplier,omitempty"`
	CashOutAmount     int64     `json:"cash_out_amount,omitempty"` // micros credited
	CashOutTime       time.Time `json:"cash_out_time,omitempty"`

	// Ledger transaction id of the stake debit, reused to keep the
	// external adjust idempotent on retry.
	TxRef string `json:"tx_ref"`
}

func (b *Bet) Resolved() bool {
	return b.Outcome != OutcomeOpen && b.Outcome != ""
}

// Resolve moves the bet to a terminal outcome. It fails if the bet was
// already resolved, which is the duplicate-settlement guard: callers
// must resolve first and only then touch the ledger.
func (b *Bet) Resolve(outcome BetOutcome) error {
	if outcome == OutcomeOpen || outcome == "" {
		return fmt.Errorf("bet %s: cannot resolve to %q", b.ID, outcome)
	}
	if b.Resolved() {
		return fmt.Errorf("bet %s already resolved as %s", b.ID, b.Outcome)
	}
	b.Outcome = outcome
	return nil
}
