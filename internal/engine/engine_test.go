package engine

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/Lavizord/crash-server/internal/ledgercli"
	"github.com/Lavizord/crash-server/internal/models"
	"github.com/Lavizord/crash-server/internal/redisdb"
)

// In-memory fakes for the engine's external surfaces. The ledger fake
// mirrors the real one's contract: atomic, idempotent per tx id, and
// able to simulate settlement timeouts.

type fakeLedger struct {
	mu          sync.Mutex
	balances    map[string]int64
	applied     map[string]int64 // tx id -> delta already applied
	timeoutNext int              // next N adjust calls fail with a timeout
	lostReplies int              // next N adjust calls apply but the reply is lost
	adjustCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[string]int64),
		applied:  make(map[string]int64),
	}
}

func (f *fakeLedger) AtomicAdjustBalance(userID string, deltaMicros int64, kind, roundID, txID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjustCalls++
	if f.timeoutNext > 0 {
		f.timeoutNext--
		return 0, ledgercli.ErrSettlementTimeout
	}
	lost := false
	if f.lostReplies > 0 {
		f.lostReplies--
		lost = true
	}
	if _, done := f.applied[txID]; done {
		if lost {
			return 0, ledgercli.ErrSettlementTimeout
		}
		return f.balances[userID], nil
	}
	if deltaMicros < 0 && f.balances[userID]+deltaMicros < 0 {
		return 0, ledgercli.ErrInsufficientFunds
	}
	f.balances[userID] += deltaMicros
	f.applied[txID] = deltaMicros
	if lost {
		return 0, ledgercli.ErrSettlementTimeout
	}
	return f.balances[userID], nil
}

func (f *fakeLedger) GetBalance(userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID], nil
}

func (f *fakeLedger) setBalance(userID string, micros int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] = micros
}

type archivedRound struct {
	round  models.Round
	bets   []*models.Bet
	reason string
}

type fakeStore struct {
	mu           sync.Mutex
	stateSaves   int
	archived     []archivedRound
	txs          []models.Transaction
	snapshot     *Snapshot
	history      []float64
	failSnapshot int // next N snapshot saves fail
}

func newFakeStore() *fakeStore { return &fakeStore{} }

func (f *fakeStore) SaveState(state *redisdb.CurrentState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateSaves++
	return nil
}

func (f *fakeStore) ArchiveRound(round models.Round, bets []*models.Bet, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, archivedRound{round: round, bets: bets, reason: reason})
	return nil
}

func (f *fakeStore) SaveTransaction(tx models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, tx)
	return nil
}

func (f *fakeStore) SaveSnapshot(snap *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSnapshot > 0 {
		f.failSnapshot--
		return errSnapshotUnavailable
	}
	f.snapshot = snap
	return nil
}

func (f *fakeStore) LoadSnapshot() (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot, nil
}

func (f *fakeStore) ClearSnapshot() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = nil
	return nil
}

func (f *fakeStore) PushCrashHistory(sequence int, crashPoint float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, crashPoint)
	return nil
}

func (f *fakeStore) lastArchived() *archivedRound {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.archived) == 0 {
		return nil
	}
	return &f.archived[len(f.archived)-1]
}

var errSnapshotUnavailable = &snapshotErr{}

type snapshotErr struct{}

func (e *snapshotErr) Error() string { return "snapshot store unavailable" }

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakePublisher) Publish(channel string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, message)
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return c.t
}

// testConfig is the default config shrunk to test scale: a short
// betting window and no reserve so scenarios stay in small numbers.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.WaitingTicks = 2
	cfg.SettleDelay = time.Second
	cfg.MinReserve = 0
	cfg.MinBet = models.MicrosPerUnit / 2
	cfg.MaxBet = 100 * models.MicrosPerUnit
	cfg.TierEmergencyBelow = 0
	cfg.TierCriticalBelow = 0
	cfg.TierBootstrapBelow = 0
	return cfg
}

type testEnv struct {
	eng    *Engine
	ledger *fakeLedger
	store  *fakeStore
	pub    *fakePublisher
	clock  *fakeClock
}

func newTestEngine(cfg Config) *testEnv {
	env := &testEnv{
		ledger: newFakeLedger(),
		store:  newFakeStore(),
		pub:    &fakePublisher{},
		clock:  newFakeClock(),
	}
	env.eng = New(cfg, env.ledger, env.store, env.pub)
	env.eng.SetClock(env.clock.Now)
	env.eng.SetRand(mathrand.New(mathrand.NewSource(1)))
	return env
}

// startActiveRound drives the engine into ACTIVE through the normal
// tick path.
func (env *testEnv) startActiveRound() {
	env.eng.Tick(env.clock.Now()) // creates the WAITING round
	for i := 0; i < env.eng.cfg.WaitingTicks; i++ {
		env.eng.Tick(env.clock.advance(env.eng.cfg.TickInterval))
	}
}

// startWaitingRound stops at the betting window.
func (env *testEnv) startWaitingRound() {
	env.eng.Tick(env.clock.Now())
}
