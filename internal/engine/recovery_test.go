package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lavizord/crash-server/internal/models"
)

// restartedEngine builds a second engine over the same store and
// ledger, as a process restart would.
func (env *testEnv) restartedEngine(cfg Config) *Engine {
	eng := New(cfg, env.ledger, env.store, env.pub)
	eng.SetClock(env.clock.Now)
	return eng
}

func TestShutdownPersistsSnapshot(t *testing.T) {
	cfg := testConfig()
	env := fundedEnv(t, cfg)
	env.rideWithBet(t, testUser, models.MicrosPerUnit, 5)

	if err := env.eng.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	snap := env.store.snapshot
	if snap == nil {
		t.Fatalf("no snapshot persisted")
	}
	if snap.Round == nil || snap.Round.Status != models.RoundActive {
		t.Fatalf("snapshot lost the live round")
	}
	if len(snap.Bets) != 1 || snap.Bets[0].UserID != testUser {
		t.Fatalf("snapshot lost the open bet")
	}

	// a frozen engine refuses new work, including queued cash-outs
	// that would settle behind the persisted snapshot's back
	callsBefore := env.ledger.adjustCalls
	if _, err := env.eng.PlaceBet(testUser, "tester", models.MicrosPerUnit); err == nil {
		t.Fatalf("frozen engine accepted a bet")
	}
	if _, _, _, err := env.eng.CashOut(testUser); !errors.Is(err, ErrRoundNotActive) {
		t.Fatalf("frozen engine settled a cash-out, err = %v", err)
	}
	if env.ledger.adjustCalls != callsBefore {
		t.Fatalf("frozen engine moved money")
	}

	// the snapshot is an isolated copy, later in-memory changes must
	// not leak into it
	env.eng.mu.Lock()
	env.eng.bets[testUser].Outcome = models.OutcomeWon
	env.eng.mu.Unlock()
	if snap.Bets[0].Outcome != models.OutcomeOpen {
		t.Fatalf("snapshot shares live bet state")
	}
}

func TestShutdownRetriesUntilStored(t *testing.T) {
	cfg := testConfig()
	env := fundedEnv(t, cfg)
	env.openRound(t)
	env.store.failSnapshot = 2

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := env.eng.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown should survive transient store failures: %v", err)
	}
	if env.store.snapshot == nil {
		t.Fatalf("snapshot missing after retries")
	}
}

func TestShutdownGivesUpAtDeadline(t *testing.T) {
	cfg := testConfig()
	env := fundedEnv(t, cfg)
	env.openRound(t)
	env.store.failSnapshot = 1000

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := env.eng.Shutdown(ctx); err == nil {
		t.Fatalf("shutdown must report an unpersisted snapshot")
	}
}

// A fresh ACTIVE snapshot settles on restart: the round crashes at its
// last known multiplier and every open bet ends LOST.
func TestRestoreFreshActiveSettles(t *testing.T) {
	cfg := testConfig()
	env := fundedEnv(t, cfg)
	env.rideWithBet(t, testUser, models.MicrosPerUnit, 5)
	lastMultiplier := env.eng.CurrentRound().Multiplier

	if err := env.eng.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	restarted := env.restartedEngine(cfg)
	if err := restarted.Restore(env.clock.advance(time.Minute)); err != nil {
		t.Fatalf("restore: %v", err)
	}

	archived := env.store.lastArchived()
	if archived == nil || archived.reason != "recovered" {
		t.Fatalf("expected recovered archive, got %+v", archived)
	}
	if archived.round.CrashPoint != lastMultiplier {
		t.Fatalf("settled at %v, snapshot showed %v", archived.round.CrashPoint, lastMultiplier)
	}
	for _, b := range archived.bets {
		if b.Outcome != models.OutcomeLost {
			t.Fatalf("recovered bet = %s, want LOST", b.Outcome)
		}
	}
	if env.store.snapshot != nil {
		t.Fatalf("consumed snapshot must be cleared")
	}
}

// A stale snapshot resolves open bets with the distinct ABANDONED
// outcome, stakes stay with the house.
func TestRestoreStaleAbandons(t *testing.T) {
	cfg := testConfig()
	env := fundedEnv(t, cfg)
	env.rideWithBet(t, testUser, models.MicrosPerUnit, 5)
	balBefore, _ := env.ledger.GetBalance(testUser)

	if err := env.eng.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	restarted := env.restartedEngine(cfg)
	if err := restarted.Restore(env.clock.advance(cfg.SnapshotMaxAge + time.Minute)); err != nil {
		t.Fatalf("restore: %v", err)
	}

	archived := env.store.lastArchived()
	if archived == nil || archived.reason != "abandoned" {
		t.Fatalf("expected abandoned archive, got %+v", archived)
	}
	for _, b := range archived.bets {
		if b.Outcome != models.OutcomeAbandoned {
			t.Fatalf("stale bet = %s, want ABANDONED", b.Outcome)
		}
	}
	// no refunds on abandonment
	if bal, _ := env.ledger.GetBalance(testUser); bal != balBefore {
		t.Fatalf("abandonment moved money: %d -> %d", balBefore, bal)
	}
	// and the audit trail records the resolution
	found := false
	for _, tx := range env.store.txs {
		if tx.Type == models.TxAbandonedRound && tx.UserID == testUser {
			found = true
		}
	}
	if !found {
		t.Fatalf("no abandonment transaction recorded")
	}
}

// Bets from a fresh WAITING snapshot carry into the next round: the
// window never ran, the stakes are already in custody.
func TestRestoreWaitingCarriesBets(t *testing.T) {
	cfg := testConfig()
	env := fundedEnv(t, cfg)
	env.openRound(t)
	stake := int64(2 * models.MicrosPerUnit)
	if _, err := env.eng.PlaceBet(testUser, "tester", stake); err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if err := env.eng.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	restarted := env.restartedEngine(cfg)
	if err := restarted.Restore(env.clock.advance(time.Minute)); err != nil {
		t.Fatalf("restore: %v", err)
	}

	// drive the restarted engine into its first round
	var round *models.Round
	for i := 0; i < 200; i++ {
		restarted.Tick(env.clock.advance(cfg.TickInterval))
		if round = restarted.CurrentRound(); round != nil {
			break
		}
	}
	if round == nil {
		t.Fatalf("restarted engine never opened a round")
	}
	if round.TotalStake != stake {
		t.Fatalf("carried stake = %d, want %d", round.TotalStake, stake)
	}
	if round.PlayerCount != 1 {
		t.Fatalf("carried players = %d, want 1", round.PlayerCount)
	}
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	cfg := testConfig()
	env := fundedEnv(t, cfg)
	if err := env.eng.Restore(env.clock.Now()); err != nil {
		t.Fatalf("restore with empty store: %v", err)
	}
	if env.eng.CurrentRound() != nil {
		t.Fatalf("restore invented a round")
	}
}
