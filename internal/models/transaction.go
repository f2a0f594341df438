package models

import (
	"time"
)

// Ledger transaction kinds. Every custodial balance change is
// attributed to one of these, with the round id where applicable.
const (
	TxBet            = "bet"
	TxCashOut        = "cashout"
	TxDeposit        = "deposit"
	TxRefund         = "refund"
	TxAbandonedRound = "abandoned" // recovery resolution of a stale snapshot
)

type Transaction struct {
	ID           string    `json:"transaction_id"` // Unique ID for each transaction
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
	Type         string    `json:"type"`          // bet / cashout / deposit / refund / abandoned
	Amount       int64     `json:"amount"`        // micros, signed from the player's perspective
	Currency     string    `json:"currency"`      // Currency code (e.g., EUR, USD)
	RoundID      string    `json:"round_id"`      // Foreign key to the round
	Status       int       `json:"status"`        // HTTP-ish status of the ledger call
	Description  string    `json:"description"`   // e.g. "OK" or "Insufficient Funds"
	FinalBalance int64     `json:"final_balance"` // micros, balance reported by the ledger
	Multiplier   float64   `json:"multiplier"`    // cash-out multiplier where applicable
	Timestamp    time.Time `json:"timestamp"`     // Timestamp in UTC
}

func NewTransaction(userID, kind string, amountMicros int64, roundID string) Transaction {
	return Transaction{
		ID:        GenerateUUID(),
		UserID:    userID,
		Type:      kind,
		Amount:    amountMicros,
		RoundID:   roundID,
		Timestamp: time.Now().UTC(),
	}
}
