package engine

import (
	"errors"

	"github.com/Lavizord/crash-server/internal/ledgercli"
	"github.com/Lavizord/crash-server/internal/messages"
	"github.com/Lavizord/crash-server/internal/models"
	"github.com/Lavizord/crash-server/logger"
)

// PlaceBet debits the stake from the custodial ledger and joins the
// user to the current round. During WAITING the entry multiplier is
// 1.0; mid-round entry locks the displayed multiplier of that instant.
// Returns the ledger balance after the debit.
func (e *Engine) PlaceBet(userID, playerName string, amountMicros int64) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if e.stopped || e.round == nil || e.round.Status == models.RoundCrashed {
		return 0, ErrRoundUnavailable
	}
	if amountMicros < e.cfg.MinBet || amountMicros > e.cfg.MaxBetForTier(e.house.Tier) {
		return 0, ErrInvalidAmount
	}
	rebuy := false
	if existing, ok := e.bets[userID]; ok {
		if !existing.Resolved() {
			return 0, ErrDuplicateBet
		}
		// cashed out earlier this round and buying back in; the settled
		// bet still belongs in the archive
		e.resolved = append(e.resolved, existing)
		rebuy = true
	}

	entry := 1.0
	if e.round.Status == models.RoundActive {
		entry = e.round.Multiplier
	}

	// debit first, the ledger is the source of truth; the bet only
	// exists once the stake is in custody
	txID := models.GenerateUUID()
	newBalance, err := e.ledger.AtomicAdjustBalance(userID, -amountMicros, models.TxBet, e.round.ID, txID)
	if errors.Is(err, ledgercli.ErrSettlementTimeout) {
		// one retry with the same tx id, the adjust is idempotent
		logger.Default.Warnf("[Engine] - stake debit timed out for %s, retrying tx %s", userID, txID)
		newBalance, err = e.ledger.AtomicAdjustBalance(userID, -amountMicros, models.TxBet, e.round.ID, txID)
	}
	if errors.Is(err, ledgercli.ErrSettlementTimeout) {
		// outcome unknown; the debit may have landed. Rejecting here
		// could take the stake with nothing in return, so the bet is
		// admitted under the recorded tx id and the authoritative
		// balance re-read instead of guessed.
		logger.Default.Errorf("[Engine] - stake debit outcome unknown for %s (tx %s), admitting bet and reconciling balance", userID, txID)
		if bal, rerr := e.ledger.GetBalance(userID); rerr == nil {
			newBalance = bal
		}
	} else if err != nil {
		if errors.Is(err, ledgercli.ErrInsufficientFunds) {
			return 0, ErrInsufficientBalance
		}
		return 0, err
	}

	bet := &models.Bet{
		ID:              models.GenerateUUID(),
		UserID:          userID,
		RoundID:         e.round.ID,
		Amount:          amountMicros,
		EntryMultiplier: entry,
		PlacedAt:        now,
		Collected:       true,
		Outcome:         models.OutcomeOpen,
		TxRef:           txID,
	}
	e.bets[userID] = bet
	e.names[userID] = playerName
	e.round.TotalStake += amountMicros
	if !rebuy {
		e.round.PlayerCount++
	}

	tx := models.NewTransaction(userID, models.TxBet, -amountMicros, e.round.ID)
	tx.ID = txID
	tx.Status = 200
	tx.Description = "OK"
	tx.FinalBalance = newBalance
	e.saveTransactionLocked(tx)

	e.broadcastLocked(messages.GenerateBetPlacedMessage(*e.round, playerName, *bet))
	e.saveStateLocked()
	return newBalance, nil
}

// CashOut settles the caller's open bet at the current multiplier.
// The bet is marked resolved before the ledger credit goes out, so a
// crash landing in between can never double-settle it.
func (e *Engine) CashOut(userID string) (payoutMicros int64, multiplier float64, newBalance int64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if e.stopped || e.round == nil || e.round.Status != models.RoundActive {
		return 0, 0, 0, ErrRoundNotActive
	}
	bet, ok := e.bets[userID]
	if !ok || bet.Resolved() || bet.RoundID != e.round.ID {
		return 0, 0, 0, ErrNoActiveBet
	}
	if now.Sub(bet.PlacedAt) < e.cfg.MinHoldTime {
		return 0, 0, 0, ErrTooEarly
	}

	multiplier = e.round.Multiplier
	payout := cappedPayout(bet, multiplier, e.cfg)
	if payout > e.cfg.MaxSinglePayout {
		// the house cannot honor this payout; nothing is paid and the
		// round ends now, sweeping the bet as lost
		logger.Default.Errorf("[Engine] - payout %d for %s exceeds absolute cap, forcing crash", payout, userID)
		e.crashLocked(now, "payout_cap")
		return 0, 0, 0, ErrPayoutLimitExceeded
	}

	// mark resolved, then act
	if err := bet.Resolve(models.OutcomeWon); err != nil {
		return 0, 0, 0, ErrNoActiveBet
	}
	bet.CashOutMultiplier = multiplier
	bet.CashOutAmount = payout
	bet.CashOutTime = now

	txID := models.GenerateUUID()
	newBalance, lerr := e.ledger.AtomicAdjustBalance(userID, payout, models.TxCashOut, e.round.ID, txID)
	if errors.Is(lerr, ledgercli.ErrSettlementTimeout) {
		logger.Default.Warnf("[Engine] - payout credit timed out for %s, retrying tx %s", userID, txID)
		newBalance, lerr = e.ledger.AtomicAdjustBalance(userID, payout, models.TxCashOut, e.round.ID, txID)
	}
	if errors.Is(lerr, ledgercli.ErrSettlementTimeout) {
		// outcome unknown; the bet stays WON with the recorded amount,
		// re-read the authoritative balance instead of guessing
		logger.Default.Errorf("[Engine] - payout outcome unknown for %s (tx %s), reconciling balance", userID, txID)
		if bal, rerr := e.ledger.GetBalance(userID); rerr == nil {
			newBalance = bal
		}
	} else if lerr != nil {
		logger.Default.Errorf("[Engine] - payout credit failed for %s: %v", userID, lerr)
	}

	// the cached balance only moves at crash, as the round's net
	// profit; mid-round risk checks stay on the pre-round custody
	e.totalPaid += payout

	tx := models.NewTransaction(userID, models.TxCashOut, payout, e.round.ID)
	tx.ID = txID
	tx.Status = 200
	tx.Description = "OK"
	tx.FinalBalance = newBalance
	tx.Multiplier = multiplier
	e.saveTransactionLocked(tx)

	e.broadcastLocked(messages.GenerateCashedOutMessage(*e.round, e.names[userID], *bet))
	e.saveStateLocked()
	return payout, multiplier, newBalance, nil
}

// cappedPayout applies the settlement formula plus the per-bet cap.
func cappedPayout(bet *models.Bet, currentMultiplier float64, cfg Config) int64 {
	raw := payoutMicros(bet.Amount, currentMultiplier, bet.EntryMultiplier, cfg.HouseEdge)
	if cap := int64(float64(bet.Amount) * cfg.MaxPayoutFactor); raw > cap {
		raw = cap
	}
	return raw
}
