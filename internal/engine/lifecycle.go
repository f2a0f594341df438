package engine

import (
	"time"

	"github.com/Lavizord/crash-server/internal/messages"
	"github.com/Lavizord/crash-server/internal/models"
	"github.com/Lavizord/crash-server/internal/redisdb"
	"github.com/Lavizord/crash-server/logger"
)

// Tick advances the lifecycle by one step. The crashworker calls it on
// a fixed interval; everything else (bet commands, recovery) shares the
// same mutex, so the round state is never observed mid-transition.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}

	if e.round == nil {
		if e.starting || now.Before(e.nextStartAt) {
			return
		}
		e.startRoundLocked(now)
		return
	}

	switch e.round.Status {
	case models.RoundWaiting:
		e.tickWaitingLocked(now)
	case models.RoundActive:
		e.tickActiveLocked(now)
	}
}

// startRoundLocked creates the next round in WAITING. The round record
// is persisted before it is installed as current, so a crash between
// the two never leaves an unpersisted live round.
func (e *Engine) startRoundLocked(now time.Time) {
	e.starting = true
	defer func() { e.starting = false }()

	seed := GenerateSeed()
	round := &models.Round{
		ID:         models.GenerateUUID(),
		Sequence:   models.NextSequence(e.lastSeq),
		Status:     models.RoundWaiting,
		Seed:       seed,
		SeedHash:   SeedHash(seed),
		StartTime:  now,
		Multiplier: 1.0,
	}
	e.lastSeq = round.Sequence

	bets := make(map[string]*models.Bet)
	for _, b := range e.carry {
		b.RoundID = round.ID
		bets[b.UserID] = b
		round.TotalStake += b.Amount
		round.PlayerCount++
	}
	e.carry = nil

	state := e.stateForLocked(round, bets)
	if err := e.store.SaveState(state); err != nil {
		logger.Default.Errorf("[Engine] - failed to persist new round %s, retrying next tick: %v", round.ID, err)
		e.lastSeq = round.Sequence - 1 // sequence not consumed
		return
	}

	e.round = round
	e.bets = bets
	e.resolved = nil
	e.totalPaid = 0
	e.waitTicks = e.cfg.WaitingTicks
	if e.liq == nil {
		e.liq = NewLiquiditySimulator(e.rng)
	} else {
		e.liq.Roll()
	}

	countdown := float64(e.cfg.WaitingTicks) * e.cfg.TickInterval.Seconds()
	e.broadcastLocked(messages.GenerateRoundStartedMessage(*round, countdown))
	logger.Default.Infof("[Engine] - round %s (seq %d) open for bets", round.ID, round.Sequence)
}

func (e *Engine) tickWaitingLocked(now time.Time) {
	// the hard backstop also runs during the betting window, a single
	// outsized wager must not reach lift-off
	if reason, stop := ShouldInstantStop(e.openBetsLocked(), e.house, e.cfg); stop {
		e.crashLocked(now, reason)
		return
	}

	e.waitTicks--
	if e.waitTicks <= 0 {
		e.activateLocked(now)
		return
	}

	tps := int(time.Second / e.cfg.TickInterval)
	if tps < 1 {
		tps = 1
	}
	if e.waitTicks%tps == 0 {
		secondsLeft := float64(e.waitTicks) * e.cfg.TickInterval.Seconds()
		boostedStake, boostedPlayers := e.liq.At(now.Sub(e.round.StartTime))
		e.broadcastLocked(messages.GenerateCountdownMessage(*e.round, secondsLeft, boostedStake, boostedPlayers))
	}
}

// activateLocked is lift-off: the crash point is generated here, once,
// with stake totals known, then the round goes ACTIVE.
func (e *Engine) activateLocked(now time.Time) {
	round := e.round
	ctx := &OverlayContext{
		Tier:            e.house.Tier,
		RealStake:       round.TotalStake,
		Available:       e.house.Available(),
		EmptyRounds:     e.house.EmptyRounds,
		FomoRun:         e.house.FomoRun,
		ConsecutiveHigh: e.house.ConsecutiveHigh,
		ProfitRatio:     e.house.ProfitRatio(),
		DampenActive:    e.house.DampenRounds > 0,
		RareReady:       e.house.RareEventAt.IsZero() || now.Sub(e.house.RareEventAt) > e.cfg.RareEventCooldown,
		Rand:            e.rng,
	}
	crashPoint := GenerateCrashPoint(round.Seed, round.Sequence, ctx, e.cfg)

	// the committed terminal value is itself generated under the live
	// risk ceiling
	if cap := MaxSafeMultiplier(e.openBetsLocked(), e.house, e.cfg); crashPoint > cap {
		crashPoint = Floor2(cap)
		if crashPoint < 1.0 {
			crashPoint = 1.0
		}
	}
	round.CrashPoint = crashPoint

	if ctx.FiredRare {
		e.house.RareEventAt = now
	}
	if ctx.FiredFomo {
		e.house.FomoRun++
	} else {
		e.house.FomoRun = 0
	}

	if err := round.UpdateRoundStatus(models.RoundActive); err != nil {
		logger.Default.Errorf("[Engine] - failed to activate round %s: %v", round.ID, err)
		return
	}
	round.StartTime = now // active time base for duration and liquidity
	round.AppendPrice(now, round.Multiplier, e.cfg.HistoryLimit)
	e.saveStateLocked()

	boostedStake, boostedPlayers := e.liq.At(0)
	canPay := CanCoverOpenBets(e.openBetsLocked(), round.Multiplier, e.house, e.cfg)
	e.broadcastLocked(messages.GenerateRoundTickMessage(*round, boostedStake, boostedPlayers, canPay))
	logger.Default.Infof("[Engine] - round %s (seq %d) active, stake=%d players=%d",
		round.ID, round.Sequence, round.TotalStake, round.PlayerCount)
}

func (e *Engine) tickActiveLocked(now time.Time) {
	round := e.round

	if reason, stop := ShouldInstantStop(e.openBetsLocked(), e.house, e.cfg); stop {
		e.crashLocked(now, reason)
		return
	}
	if now.Sub(round.StartTime) > e.cfg.MaxRoundTime {
		e.crashLocked(now, "timeout")
		return
	}

	next := e.nextMultiplierLocked()
	if cap := MaxSafeMultiplier(e.openBetsLocked(), e.house, e.cfg); next > cap {
		next = cap
	}
	if next >= round.CrashPoint {
		round.Multiplier = round.CrashPoint
		e.crashLocked(now, "terminal")
		return
	}

	round.Multiplier = Floor2(next)
	round.AppendPrice(now, round.Multiplier, e.cfg.HistoryLimit)

	boostedStake, boostedPlayers := e.liq.At(now.Sub(round.StartTime))
	canPay := CanCoverOpenBets(e.openBetsLocked(), round.Multiplier, e.house, e.cfg)
	e.broadcastLocked(messages.GenerateRoundTickMessage(*round, boostedStake, boostedPlayers, canPay))
}

// nextMultiplierLocked advances the displayed path: a monotonic random
// walk whose growth accelerates with the current value, biased toward
// the committed terminal so long rounds do not stall under it.
func (e *Engine) nextMultiplierLocked() float64 {
	cur := e.round.Multiplier
	growth := 0.004 + cur*0.002
	jitter := e.rng.Float64() * growth * 0.8
	next := cur * (1.0 + growth + jitter)
	if next <= cur {
		next = cur + 0.01 // never flat, the path must be strictly increasing
	}
	return next
}

// crashLocked ends the round: resolve every open bet as lost, update
// the risk counters and tier, archive, reveal the seed, and schedule
// the next betting window.
func (e *Engine) crashLocked(now time.Time, reason string) {
	round := e.round
	if round == nil || round.Status == models.RoundCrashed {
		return
	}

	if err := round.UpdateRoundStatus(models.RoundCrashed); err != nil {
		logger.Default.Errorf("[Engine] - failed to crash round %s: %v", round.ID, err)
		return
	}
	round.CrashedAt = now
	if round.CrashPoint == 0 {
		// crashed during the betting window, before generation
		round.CrashPoint = round.Multiplier
	}
	if reason == "terminal" {
		round.Multiplier = round.CrashPoint
	} else {
		// risk stops end early; the displayed final stays where the
		// round stopped, the committed value is still revealed via seed
		round.CrashPoint = round.Multiplier
	}

	// loss sweep: every bet ends this round with exactly one terminal
	// outcome, no partial refunds
	for _, bet := range e.bets {
		if bet.Resolved() {
			continue
		}
		if err := bet.Resolve(models.OutcomeLost); err != nil {
			logger.Default.Errorf("[Engine] - loss sweep on bet %s: %v", bet.ID, err)
		}
	}

	profit := round.TotalStake - e.totalPaid
	e.house.RecordProfit(profit, e.cfg.ProfitWindow)
	e.house.BalanceMicros += profit // cache; the periodic refresh trues it up
	e.house.RoundsPlayed++

	if round.CrashPoint >= e.cfg.HighMultiplier {
		e.house.ConsecutiveHigh++
	} else {
		e.house.ConsecutiveHigh = 0
	}
	if e.house.ConsecutiveHigh >= e.cfg.ConsecutiveHighLimit || e.house.ProfitRatio() < e.cfg.ProfitTargetRatio {
		e.house.DampenRounds = e.cfg.DampenCooldownRounds
	} else if e.house.DampenRounds > 0 {
		e.house.DampenRounds--
	}
	if round.TotalStake < e.cfg.FomoEmptyStake {
		e.house.EmptyRounds++
	} else {
		e.house.EmptyRounds = 0
	}
	e.updateTierLocked()

	if err := e.store.ArchiveRound(*round, e.allBetsLocked(), reason); err != nil {
		logger.Default.Errorf("[Engine] - failed to archive round %s: %v", round.ID, err)
	}
	if err := e.store.PushCrashHistory(round.Sequence, round.CrashPoint); err != nil {
		logger.Default.Warnf("[Engine] - failed to push crash history: %v", err)
	}

	e.broadcastLocked(messages.GenerateRoundCrashedMessage(*round, reason, e.totalPaid))
	logger.Default.Infof("[Engine] - round %s (seq %d) crashed at %.2fx (%s), profit=%d",
		round.ID, round.Sequence, round.CrashPoint, reason, profit)

	e.round = nil
	e.bets = make(map[string]*models.Bet)
	e.resolved = nil
	e.names = make(map[string]string)
	e.totalPaid = 0
	e.nextStartAt = now.Add(e.cfg.SettleDelay)
	e.saveStateLocked()
}

// updateTierLocked rederives the operating tier with hysteresis: after
// a switch the tier holds for TierCooldownRounds rounds.
func (e *Engine) updateTierLocked() {
	next := TierFor(e.house.BalanceMicros, e.cfg)
	if next == e.house.Tier {
		return
	}
	if e.house.RoundsPlayed-e.house.TierChangedSeq < e.cfg.TierCooldownRounds {
		return
	}
	logger.Default.Infof("[Engine] - house tier %s -> %s (balance=%d)", e.house.Tier, next, e.house.BalanceMicros)
	e.house.Tier = next
	e.house.TierChangedSeq = e.house.RoundsPlayed
}

func (e *Engine) stateForLocked(round *models.Round, bets map[string]*models.Bet) *redisdb.CurrentState {
	list := make([]*models.Bet, 0, len(bets))
	for _, b := range bets {
		list = append(list, b)
	}
	return &redisdb.CurrentState{Round: round, House: e.house, Bets: list}
}
