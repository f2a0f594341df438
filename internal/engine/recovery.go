package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Lavizord/crash-server/internal/models"
	"github.com/Lavizord/crash-server/logger"
)

// Snapshot is the recovery record written on shutdown: the live round
// with its bets, the risk state, and the engine's sequence position.
type Snapshot struct {
	Round        *models.Round      `json:"round,omitempty"`
	Bets         []*models.Bet      `json:"bets,omitempty"`
	House        *models.HouseState `json:"house"`
	LastSequence int                `json:"last_sequence"`
	SavedAt      time.Time          `json:"saved_at"`
}

// snapshotLocked copies the live state into an isolated record. The
// store marshals outside the mutex, so the snapshot must not share
// pointers with the running engine.
func (e *Engine) snapshotLocked() *Snapshot {
	var round *models.Round
	if e.round != nil {
		r := *e.round
		r.History = append([]models.PricePoint(nil), e.round.History...)
		round = &r
	}
	live := e.allBetsLocked()
	bets := make([]*models.Bet, 0, len(live))
	for _, b := range live {
		c := *b
		bets = append(bets, &c)
	}
	house := *e.house
	house.RecentProfit = append([]int64(nil), e.house.RecentProfit...)
	return &Snapshot{
		Round:        round,
		Bets:         bets,
		House:        &house,
		LastSequence: e.lastSeq,
		SavedAt:      e.now(),
	}
}

// Shutdown freezes the engine and persists the recovery snapshot,
// retrying with backoff until the store accepts it or the context
// deadline lands. Shutdown is delayed until the snapshot is durable.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.stopped = true
	snap := e.snapshotLocked()
	e.mu.Unlock()

	backoff := 250 * time.Millisecond
	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = e.store.SaveSnapshot(snap)
		if lastErr == nil {
			logger.Default.Infof("[Engine] - shutdown snapshot persisted (attempt %d)", attempt)
			return nil
		}
		logger.Default.Errorf("[Engine] - shutdown snapshot attempt %d failed: %v", attempt, lastErr)
		select {
		case <-ctx.Done():
			return fmt.Errorf("[Engine] - snapshot not persisted before deadline: %v", lastErr)
		case <-time.After(backoff):
		}
		if backoff < 4*time.Second {
			backoff *= 2
		}
	}
}

// Restore replays the snapshot left by the previous process, if any.
// Fresh snapshots resume or settle cleanly; stale ones resolve every
// open bet as abandoned so no bet is ever left dangling.
func (e *Engine) Restore(now time.Time) error {
	snap, err := e.store.LoadSnapshot()
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if snap.House != nil {
		snap.House.MinReserveMicros = e.cfg.MinReserve
		e.house = snap.House
	}
	e.lastSeq = snap.LastSequence

	defer func() {
		if err := e.store.ClearSnapshot(); err != nil {
			logger.Default.Warnf("[Engine] - failed to clear consumed snapshot: %v", err)
		}
		e.saveStateLocked()
	}()

	round := snap.Round
	if round == nil || round.Status == models.RoundCrashed {
		logger.Default.Infof("[Engine] - snapshot restored, no live round to recover")
		return nil
	}

	age := now.Sub(snap.SavedAt)
	if age > e.cfg.SnapshotMaxAge {
		// too old to resume; open bets resolve as abandoned, stakes
		// stay with the house, the distinct outcome keeps the audit
		// trail honest
		e.resolveRecoveredLocked(round, snap.Bets, models.OutcomeAbandoned, "abandoned", now)
		logger.Default.Warnf("[Engine] - stale snapshot (%s old), round %s abandoned", age, round.ID)
		return nil
	}

	switch round.Status {
	case models.RoundActive:
		// resume by settling: the round crashes at its last known
		// multiplier and a fresh round follows
		round.CrashPoint = round.Multiplier
		e.resolveRecoveredLocked(round, snap.Bets, models.OutcomeLost, "recovered", now)
		logger.Default.Infof("[Engine] - recovered active round %s, settled at %.2fx", round.ID, round.Multiplier)
	case models.RoundWaiting:
		// the betting window never ran; carry the bets into the next
		// round, stakes are already in custody
		for _, b := range snap.Bets {
			if !b.Resolved() {
				e.carry = append(e.carry, b)
			}
		}
		logger.Default.Infof("[Engine] - recovered waiting round %s, carrying %d bets forward", round.ID, len(e.carry))
	}
	e.nextStartAt = now.Add(e.cfg.SettleDelay)
	return nil
}

// resolveRecoveredLocked terminally resolves a recovered round outside
// the normal tick path.
func (e *Engine) resolveRecoveredLocked(round *models.Round, bets []*models.Bet, outcome models.BetOutcome, reason string, now time.Time) {
	if round.Status != models.RoundCrashed {
		if err := round.UpdateRoundStatus(models.RoundCrashed); err != nil {
			logger.Default.Errorf("[Engine] - recovery transition on round %s: %v", round.ID, err)
		}
	}
	round.CrashedAt = now
	if round.CrashPoint == 0 {
		round.CrashPoint = round.Multiplier
	}
	for _, b := range bets {
		if b.Resolved() {
			continue
		}
		if err := b.Resolve(outcome); err != nil {
			logger.Default.Errorf("[Engine] - recovery resolution on bet %s: %v", b.ID, err)
			continue
		}
		if outcome == models.OutcomeAbandoned {
			tx := models.NewTransaction(b.UserID, models.TxAbandonedRound, 0, round.ID)
			tx.Description = "round abandoned on recovery"
			e.saveTransactionLocked(tx)
		}
	}
	if err := e.store.ArchiveRound(*round, bets, reason); err != nil {
		logger.Default.Errorf("[Engine] - failed to archive recovered round %s: %v", round.ID, err)
	}
	if reason == "recovered" {
		if err := e.store.PushCrashHistory(round.Sequence, round.CrashPoint); err != nil {
			logger.Default.Warnf("[Engine] - failed to push crash history: %v", err)
		}
	}
	e.house.RoundsPlayed++
}
