package messages

import (
	"github.com/Lavizord/crash-server/internal/models"
)

// Broadcast payloads for the crash:events channel. Every payload holds
// enough data for a client to rebuild its local state from scratch:
// clients are assumed stateless and reconnect-tolerant.
//
// Real and boosted totals are always separate fields. Boosted is the
// cosmetic layer and must never be fed back into anything.

type RoundStartedValue struct {
	RoundID   string  `json:"round_id"`
	Sequence  int     `json:"sequence"`
	SeedHash  string  `json:"seed_hash"` // provably-fair commitment
	Countdown float64 `json:"countdown"` // seconds of betting window
}

type CountdownValue struct {
	RoundID        string  `json:"round_id"`
	Sequence       int     `json:"sequence"`
	SecondsLeft    float64 `json:"seconds_left"`
	TotalStake     float64 `json:"total_stake"`
	BoostedStake   float64 `json:"boosted_stake"`
	Players        int     `json:"players"`
	BoostedPlayers int     `json:"boosted_players"`
}

type RoundTickValue struct {
	RoundID        string  `json:"round_id"`
	Sequence       int     `json:"sequence"`
	Status         string  `json:"status"`
	Multiplier     float64 `json:"multiplier"`
	TotalStake     float64 `json:"total_stake"`
	BoostedStake   float64 `json:"boosted_stake"`
	Players        int     `json:"players"`
	BoostedPlayers int     `json:"boosted_players"`
	HouseCanPay    bool    `json:"house_can_pay"` // capacity signal only, never the raw balance
}

type BetPlacedValue struct {
	RoundID    string  `json:"round_id"`
	PlayerName string  `json:"player_name"`
	Amount     float64 `json:"amount"`
	Multiplier float64 `json:"multiplier"` // entry multiplier
	TotalStake float64 `json:"total_stake"`
	Players    int     `json:"players"`
}

type CashedOutValue struct {
	RoundID    string  `json:"round_id"`
	PlayerName string  `json:"player_name"`
	Multiplier float64 `json:"multiplier"`
	Payout     float64 `json:"payout"`
}

type RoundCrashedValue struct {
	RoundID    string  `json:"round_id"`
	Sequence   int     `json:"sequence"`
	CrashPoint float64 `json:"crash_point"`
	Seed       string  `json:"seed"` // provably-fair reveal
	Reason     string  `json:"reason"`
	TotalStake float64 `json:"total_stake"`
	TotalPaid  float64 `json:"total_paid"`
}

type CrashHistoryEntry struct {
	Sequence   int     `json:"sequence"`
	CrashPoint float64 `json:"crash_point"`
}

func GenerateRoundStartedMessage(round models.Round, countdownSeconds float64) ([]byte, error) {
	return NewMessage("round_started", RoundStartedValue{
		RoundID:   round.ID,
		Sequence:  round.Sequence,
		SeedHash:  round.SeedHash,
		Countdown: countdownSeconds,
	})
}

func GenerateCountdownMessage(round models.Round, secondsLeft float64, boostedStake int64, boostedPlayers int) ([]byte, error) {
	return NewMessage("countdown", CountdownValue{
		RoundID:        round.ID,
		Sequence:       round.Sequence,
		SecondsLeft:    secondsLeft,
		TotalStake:     models.ToUnits(round.TotalStake),
		BoostedStake:   models.ToUnits(round.TotalStake + boostedStake),
		Players:        round.PlayerCount,
		BoostedPlayers: round.PlayerCount + boostedPlayers,
	})
}

func GenerateRoundTickMessage(round models.Round, boostedStake int64, boostedPlayers int, houseCanPay bool) ([]byte, error) {
	return NewMessage("round_tick", RoundTickValue{
		RoundID:        round.ID,
		Sequence:       round.Sequence,
		Status:         string(round.Status),
		Multiplier:     round.Multiplier,
		TotalStake:     models.ToUnits(round.TotalStake),
		BoostedStake:   models.ToUnits(round.TotalStake + boostedStake),
		Players:        round.PlayerCount,
		BoostedPlayers: round.PlayerCount + boostedPlayers,
		HouseCanPay:    houseCanPay,
	})
}

func GenerateBetPlacedMessage(round models.Round, playerName string, bet models.Bet) ([]byte, error) {
	return NewMessage("bet_placed", BetPlacedValue{
		RoundID:    round.ID,
		PlayerName: playerName,
		Amount:     models.ToUnits(bet.Amount),
		Multiplier: bet.EntryMultiplier,
		TotalStake: models.ToUnits(round.TotalStake),
		Players:    round.PlayerCount,
	})
}

func GenerateCashedOutMessage(round models.Round, playerName string, bet models.Bet) ([]byte, error) {
	return NewMessage("cashed_out", CashedOutValue{
		RoundID:    round.ID,
		PlayerName: playerName,
		Multiplier: bet.CashOutMultiplier,
		Payout:     models.ToUnits(bet.CashOutAmount),
	})
}

func GenerateRoundCrashedMessage(round models.Round, reason string, totalPaid int64) ([]byte, error) {
	return NewMessage("round_crashed", RoundCrashedValue{
		RoundID:    round.ID,
		Sequence:   round.Sequence,
		CrashPoint: round.CrashPoint,
		Seed:       round.Seed,
		Reason:     reason,
		TotalStake: models.ToUnits(round.TotalStake),
		TotalPaid:  models.ToUnits(totalPaid),
	})
}

func GenerateCrashHistoryMessage(entries []CrashHistoryEntry) ([]byte, error) {
	return NewMessage("crash_history", entries)
}
