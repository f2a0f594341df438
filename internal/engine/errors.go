package engine

import (
	"errors"

	"github.com/Lavizord/crash-server/internal/ledgercli"
)

// Bet operation failures. Validation errors are rejected synchronously
// and never retried; a SettlementTimeout means the ledger outcome is
// unknown and the authoritative balance must be re-read.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid bet amount")
	ErrDuplicateBet        = errors.New("duplicate bet")
	ErrRoundUnavailable    = errors.New("round unavailable")
	ErrNoActiveBet         = errors.New("no active bet")
	ErrTooEarly            = errors.New("cash out before minimum hold time")
	ErrRoundNotActive      = errors.New("round not active")
	ErrPayoutLimitExceeded = errors.New("payout limit exceeded")
)

// ReasonFor maps a bet operation error to the reason tag returned to
// clients on the command surface.
func ReasonFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientBalance):
		return "InsufficientBalance"
	case errors.Is(err, ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, ErrDuplicateBet):
		return "DuplicateBet"
	case errors.Is(err, ErrRoundUnavailable):
		return "RoundUnavailable"
	case errors.Is(err, ErrNoActiveBet):
		return "NoActiveBet"
	case errors.Is(err, ErrTooEarly):
		return "TooEarly"
	case errors.Is(err, ErrRoundNotActive):
		return "RoundNotActive"
	case errors.Is(err, ErrPayoutLimitExceeded):
		return "PayoutLimitExceeded"
	case errors.Is(err, ledgercli.ErrSettlementTimeout):
		return "SettlementTimeout"
	default:
		return "InternalError"
	}
}
