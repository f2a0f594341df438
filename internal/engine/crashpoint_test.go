package engine

import (
	"math"
	mathrand "math/rand"
	"testing"

	"github.com/Lavizord/crash-server/internal/models"
)

func TestBaseDrawDeterministic(t *testing.T) {
	seed := "0c5a7b3e9d1f4a6c8e2b0d4f6a8c1e3b5d7f9a1c3e5b7d9f1a3c5e7b9d1f3a5c"
	first := BaseDraw(seed, 42, 150.0)
	for i := 0; i < 10; i++ {
		if got := BaseDraw(seed, 42, 150.0); got != first {
			t.Fatalf("same (seed, sequence) produced %v then %v", first, got)
		}
	}
	if BaseDraw(seed, 43, 150.0) == first {
		t.Fatalf("different sequences should not collide on the same value")
	}
}

func TestBaseDrawRangeAndPrecision(t *testing.T) {
	seed := "aa11bb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66"
	for seq := 1; seq <= 500; seq++ {
		v := BaseDraw(seed, seq, 150.0)
		if v < 1.0 || v > 150.0 {
			t.Fatalf("seq %d: draw %v out of [1.0, 150.0]", seq, v)
		}
		if math.Abs(v*100-math.Round(v*100)) > 1e-9 {
			t.Fatalf("seq %d: draw %v not locked to 2 decimals", seq, v)
		}
	}
}

func TestTierDampenOnlyLowers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TierCapProb[models.TierEmergency] = 1.0 // cap always applies
	rng := mathrand.New(mathrand.NewSource(7))
	for i := 0; i < 200; i++ {
		ctx := &OverlayContext{Tier: models.TierEmergency, Rand: rng}
		in := 1.0 + rng.Float64()*149.0
		out := tierDampenOverlay(in, ctx, cfg)
		if out > in {
			t.Fatalf("dampener raised %v to %v", in, out)
		}
		if out > cfg.TierCeilings[models.TierEmergency] {
			t.Fatalf("dampener let %v through a %v ceiling", out, cfg.TierCeilings[models.TierEmergency])
		}
	}
}

func TestTierDampenSkipsFiredOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TierCapProb[models.TierEmergency] = 1.0
	rng := mathrand.New(mathrand.NewSource(7))
	ctx := &OverlayContext{Tier: models.TierEmergency, Rand: rng, FiredFomo: true}
	if got := tierDampenOverlay(12.0, ctx, cfg); got != 12.0 {
		t.Fatalf("dampener touched a fired engagement override: %v", got)
	}
	ctx = &OverlayContext{Tier: models.TierEmergency, Rand: rng, FiredRare: true}
	if got := tierDampenOverlay(80.0, ctx, cfg); got != 80.0 {
		t.Fatalf("dampener touched a fired rare event: %v", got)
	}
}

func TestProfitDampenCapsOnLowRatio(t *testing.T) {
	cfg := DefaultConfig()
	ctx := &OverlayContext{Tier: models.TierNormal, ProfitRatio: cfg.ProfitTargetRatio - 0.01}
	if got := profitDampenOverlay(9.0, ctx, cfg); got != cfg.DampenedCeiling {
		t.Fatalf("expected cap at %v, got %v", cfg.DampenedCeiling, got)
	}
	ctx = &OverlayContext{Tier: models.TierNormal, ProfitRatio: 0.9}
	if got := profitDampenOverlay(9.0, ctx, cfg); got != 9.0 {
		t.Fatalf("healthy ratio should pass through, got %v", got)
	}
}

func TestRareEventRespectsExposureCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RareEventProb = 1.0 // always roll the event
	rng := mathrand.New(mathrand.NewSource(3))
	stake := cfg.RareEventLowStake - models.MicrosPerUnit
	for i := 0; i < 100; i++ {
		ctx := &OverlayContext{
			Tier:      models.TierNormal,
			RealStake: stake,
			RareReady: true,
			Rand:      rng,
		}
		out := rareEventOverlay(2.0, ctx, cfg)
		if !ctx.FiredRare {
			continue
		}
		if exposure := float64(stake) * out; exposure > float64(cfg.RareExposureCap)+1 {
			t.Fatalf("rare event exposure %v beyond cap %v", exposure, cfg.RareExposureCap)
		}
		if out > cfg.RareEventMax {
			t.Fatalf("rare event value %v beyond max %v", out, cfg.RareEventMax)
		}
	}
}

func TestRareEventNeedsLowStake(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RareEventProb = 1.0
	rng := mathrand.New(mathrand.NewSource(3))
	ctx := &OverlayContext{
		Tier:      models.TierNormal,
		RealStake: cfg.RareEventLowStake, // at the boundary: not low
		RareReady: true,
		Rand:      rng,
	}
	if out := rareEventOverlay(2.0, ctx, cfg); out != 2.0 || ctx.FiredRare {
		t.Fatalf("rare event fired with stake at the low-stake boundary")
	}
}

// The engagement overlay must never fire more than FomoRunLimit rounds
// in a row: at the limit it turns into a forced low-value break.
func TestEngagementRunLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FomoProb = 1.0
	cfg.FomoBreakProb = 0.0
	rng := mathrand.New(mathrand.NewSource(11))

	run := 0
	longest := 0
	for i := 0; i < 500; i++ {
		ctx := &OverlayContext{
			Tier:        models.TierBootstrap,
			EmptyRounds: cfg.FomoEmptyRounds,
			FomoRun:     run,
			Rand:        rng,
		}
		engagementOverlay(1.2, ctx, cfg)
		if ctx.FiredFomo {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	if longest > cfg.FomoRunLimit {
		t.Fatalf("engagement fired %d rounds in a row, limit is %d", longest, cfg.FomoRunLimit)
	}
	if longest == 0 {
		t.Fatalf("engagement never fired under guaranteed conditions")
	}
}

func TestEngagementForcedBreakCapsValue(t *testing.T) {
	cfg := DefaultConfig()
	rng := mathrand.New(mathrand.NewSource(11))
	ctx := &OverlayContext{
		Tier:        models.TierBootstrap,
		EmptyRounds: cfg.FomoEmptyRounds,
		FomoRun:     cfg.FomoRunLimit,
		Rand:        rng,
	}
	out := engagementOverlay(8.0, ctx, cfg)
	if !ctx.ForcedBreak {
		t.Fatalf("expected a forced break at the run limit")
	}
	if out > cfg.FomoBreakCeiling {
		t.Fatalf("forced break let %v through a %v ceiling", out, cfg.FomoBreakCeiling)
	}
}

func TestGenerateCrashPointFloorsAndBounds(t *testing.T) {
	cfg := DefaultConfig()
	rng := mathrand.New(mathrand.NewSource(5))
	seed := GenerateSeed()
	for seq := 1; seq <= 200; seq++ {
		ctx := &OverlayContext{Tier: models.TierNormal, ProfitRatio: 1.0, Rand: rng}
		v := GenerateCrashPoint(seed, seq, ctx, cfg)
		if v < 1.0 || v > cfg.MaxMultiplier {
			t.Fatalf("seq %d: crash point %v out of range", seq, v)
		}
		if math.Abs(v*100-math.Round(v*100)) > 1e-9 {
			t.Fatalf("seq %d: crash point %v not locked to 2 decimals", seq, v)
		}
	}
}

func TestSeedHashCommitmentMatchesReveal(t *testing.T) {
	seed := GenerateSeed()
	if len(seed) != 64 {
		t.Fatalf("expected 32-byte hex seed, got %d chars", len(seed))
	}
	if SeedHash(seed) != SeedHash(seed) {
		t.Fatalf("commitment is not deterministic")
	}
	if SeedHash(seed) == SeedHash(GenerateSeed()) {
		t.Fatalf("distinct seeds hashed to the same commitment")
	}
}
