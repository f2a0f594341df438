package engine

import (
	"fmt"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/Lavizord/crash-server/internal/models"
	"github.com/Lavizord/crash-server/internal/redisdb"
	"github.com/Lavizord/crash-server/logger"
)

// Ledger is the external custodial balance authority. Adjustments are
// atomic and idempotent per txID.
type Ledger interface {
	AtomicAdjustBalance(userID string, deltaMicros int64, kind, roundID, txID string) (int64, error)
	GetBalance(userID string) (int64, error)
}

// Store is the engine's persistence surface: the live state cache, the
// round archive and the recovery snapshot.
type Store interface {
	SaveState(state *redisdb.CurrentState) error
	ArchiveRound(round models.Round, bets []*models.Bet, reason string) error
	SaveTransaction(tx models.Transaction) error
	SaveSnapshot(snap *Snapshot) error
	LoadSnapshot() (*Snapshot, error)
	ClearSnapshot() error
	PushCrashHistory(sequence int, crashPoint float64) error
}

// Publisher pushes event payloads to a pub/sub channel.
// *redisdb.RedisClient satisfies it.
type Publisher interface {
	Publish(channel string, message []byte) error
}

// Engine owns the full round lifecycle. All state behind one mutex; the
// crashworker drives it with Tick and with the queued bet commands.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	ledger Ledger
	store  Store
	pub    Publisher

	rng *mathrand.Rand
	now func() time.Time

	round    *models.Round
	bets     map[string]*models.Bet // open and resolved bets of the current round, by user id
	resolved []*models.Bet          // settled bets displaced by a buy-back, kept for the archive
	names    map[string]string      // display names for broadcasts
	house    *models.HouseState
	liq      *LiquiditySimulator
	lastSeq  int

	waitTicks   int
	nextStartAt time.Time
	starting    bool // reentrancy guard while round creation persists
	stopped     bool
	totalPaid   int64 // micros credited this round

	// Bets recovered from a fresh WAITING snapshot, attached to the
	// next round.
	carry []*models.Bet
}

func New(cfg Config, ledger Ledger, store Store, pub Publisher) *Engine {
	return &Engine{
		cfg:    cfg,
		ledger: ledger,
		store:  store,
		pub:    pub,
		rng:    mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		bets:   make(map[string]*models.Bet),
		names:  make(map[string]string),
		house: &models.HouseState{
			MinReserveMicros: cfg.MinReserve,
			Tier:             models.TierNormal,
		},
	}
}

// SetClock and SetRand inject deterministic time and randomness.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }
func (e *Engine) SetRand(rng *mathrand.Rand)    { e.rng = rng }

// SetHouseBalance updates the cached custody balance, normally from the
// periodic refresh goroutine in the crashworker.
func (e *Engine) SetHouseBalance(balanceMicros int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.house.BalanceMicros = balanceMicros
	e.house.BalanceFetchedAt = e.now()
}

// RefreshHouseBalance pulls the authoritative custody balance from the
// ledger. Kept outside Tick so a slow ledger never stalls the round.
func (e *Engine) RefreshHouseBalance() error {
	balance, err := e.ledger.GetBalance(e.cfg.HouseAccount)
	if err != nil {
		return fmt.Errorf("[Engine] - failed to refresh house balance: %v", err)
	}
	e.SetHouseBalance(balance)
	return nil
}

// House returns a copy of the risk state for the admin surface.
func (e *Engine) House() models.HouseState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.house
}

// CurrentRound returns a copy of the live round, nil between rounds.
func (e *Engine) CurrentRound() *models.Round {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.round == nil {
		return nil
	}
	r := *e.round
	return &r
}

func (e *Engine) openBetsLocked() []*models.Bet {
	out := make([]*models.Bet, 0, len(e.bets))
	for _, b := range e.bets {
		if !b.Resolved() {
			out = append(out, b)
		}
	}
	return out
}

func (e *Engine) allBetsLocked() []*models.Bet {
	out := make([]*models.Bet, 0, len(e.bets)+len(e.resolved))
	out = append(out, e.resolved...)
	for _, b := range e.bets {
		out = append(out, b)
	}
	return out
}

// saveStateLocked writes the live cache. Failures are logged, the cache
// is advisory and the next change rewrites it.
func (e *Engine) saveStateLocked() {
	state := &redisdb.CurrentState{
		Round: e.round,
		House: e.house,
		Bets:  e.allBetsLocked(),
	}
	if err := e.store.SaveState(state); err != nil {
		logger.Default.Warnf("[Engine] - failed to save current state: %v", err)
	}
}

func (e *Engine) broadcastLocked(payload []byte, err error) {
	if err != nil {
		logger.Default.Errorf("[Engine] - failed to build broadcast payload: %v", err)
		return
	}
	if err := e.pub.Publish(redisdb.EventsChannel, payload); err != nil {
		logger.Default.Warnf("[Engine] - failed to publish event: %v", err)
	}
}

func (e *Engine) saveTransactionLocked(tx models.Transaction) {
	if err := e.store.SaveTransaction(tx); err != nil {
		logger.Default.Errorf("[Engine] - failed to save transaction %s: %v", tx.ID, err)
	}
}
