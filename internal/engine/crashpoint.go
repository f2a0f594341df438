package engine

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	mathrand "math/rand"

	"github.com/Lavizord/crash-server/internal/models"
)

// The crash point of a round is the provably-fair base draw pushed
// through an ordered pipeline of control overlays. Every overlay is a
// pure function of (value, context); overlays only ever lower the value
// or replace it within their own stated maximum.

// GenerateSeed creates the round's server seed (hex).
func GenerateSeed() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// SeedHash is the commitment published at round start.
func SeedHash(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

// Floor2 floors to the fixed 2-decimal precision every multiplier is
// locked at.
func Floor2(v float64) float64 {
	return math.Floor(v*100) / 100
}

// BaseDraw derives the fair baseline multiplier from the round seed and
// sequence number. It is a pure function of (seed, sequence): anyone
// holding the revealed seed can recompute it.
func BaseDraw(seed string, sequence int, maxMultiplier float64) float64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", seed, sequence)))
	x := binary.BigEndian.Uint64(sum[:8])
	u := float64(x>>11) / float64(1<<53) // uniform [0,1)
	if u > 0.999999 {
		u = 0.999999
	}
	m := 1.0 / (1.0 - u) // house curve: half the rounds crash under 2x
	if m > maxMultiplier {
		m = maxMultiplier
	}
	return Floor2(m)
}

// OverlayContext carries the risk/engagement inputs of one generation
// plus the flags of which overlays fired, so the engine can update its
// counters afterwards.
type OverlayContext struct {
	Tier            models.HouseTier
	RealStake       int64 // micros staked on the round so far
	Available       int64 // house balance minus reserve
	EmptyRounds     int
	FomoRun         int
	ConsecutiveHigh int
	ProfitRatio     float64
	DampenActive    bool
	RareReady       bool
	Rand            *mathrand.Rand

	FiredRare   bool
	FiredFomo   bool
	ForcedBreak bool
}

type Overlay func(value float64, ctx *OverlayContext, cfg Config) float64

// rareEventOverlay replaces the draw with a large multiplier on a
// low-probability roll, only while real stake is low and no event is in
// cooldown, and never beyond the round's theoretical exposure cap.
func rareEventOverlay(v float64, ctx *OverlayContext, cfg Config) float64 {
	if !ctx.RareReady || ctx.RealStake >= cfg.RareEventLowStake {
		return v
	}
	if ctx.Rand.Float64() >= cfg.RareEventProb {
		return v
	}
	value := cfg.RareEventMin + ctx.Rand.Float64()*(cfg.RareEventMax-cfg.RareEventMin)
	if ctx.RealStake > 0 {
		if exposure := float64(ctx.RealStake) * value; exposure > float64(cfg.RareExposureCap) {
			value = float64(cfg.RareExposureCap) / float64(ctx.RealStake)
		}
	}
	if value < cfg.RareEventMin {
		return v // cannot afford the event this round
	}
	if value > cfg.RareEventMax {
		value = cfg.RareEventMax
	}
	ctx.FiredRare = true
	return value
}

// engagementOverlay counters a multi-round dry streak on non-normal
// tiers. An enforced run limit plus a random early break keep it from
// forming a detectable fixed pattern.
func engagementOverlay(v float64, ctx *OverlayContext, cfg Config) float64 {
	if ctx.Tier == models.TierNormal || ctx.FiredRare {
		return v
	}
	if ctx.EmptyRounds < cfg.FomoEmptyRounds {
		return v
	}
	if ctx.FomoRun >= cfg.FomoRunLimit {
		// forced low-value break after a full run
		ctx.ForcedBreak = true
		if v > cfg.FomoBreakCeiling {
			return cfg.FomoBreakCeiling
		}
		return v
	}
	if ctx.Rand.Float64() < cfg.FomoBreakProb {
		return v
	}
	if ctx.Rand.Float64() >= cfg.FomoProb {
		return v
	}
	ctx.FiredFomo = true
	return cfg.FomoMin + ctx.Rand.Float64()*(cfg.FomoMax-cfg.FomoMin)
}

// tierDampenOverlay caps the draw on recovery tiers. The cap applies
// with a per-tier probability: an always-on ceiling would itself be
// detectable.
func tierDampenOverlay(v float64, ctx *OverlayContext, cfg Config) float64 {
	if ctx.Tier == models.TierNormal || ctx.FiredRare || ctx.FiredFomo {
		return v
	}
	ceiling, ok := cfg.TierCeilings[ctx.Tier]
	if !ok {
		return v
	}
	if ctx.Rand.Float64() >= cfg.TierCapProb[ctx.Tier] {
		return v
	}
	if v > ceiling {
		return ceiling
	}
	return v
}

// profitDampenOverlay reduces the allowed multiplier on the normal tier
// when the rolling profit ratio falls under target or too many high
// multipliers landed in a row.
func profitDampenOverlay(v float64, ctx *OverlayContext, cfg Config) float64 {
	if ctx.Tier != models.TierNormal || ctx.FiredRare {
		return v
	}
	if ctx.ConsecutiveHigh >= cfg.ConsecutiveHighLimit || ctx.ProfitRatio < cfg.ProfitTargetRatio || ctx.DampenActive {
		if v > cfg.DampenedCeiling {
			return cfg.DampenedCeiling
		}
	}
	return v
}

// overlayPipeline is the fixed application order. Rare events outrank
// engagement, dampeners never touch a fired override.
var overlayPipeline = []Overlay{
	rareEventOverlay,
	engagementOverlay,
	tierDampenOverlay,
	profitDampenOverlay,
}

// GenerateCrashPoint produces the round's terminal multiplier, locked
// to 2 decimals. Applied exactly once per round, at lift-off.
func GenerateCrashPoint(seed string, sequence int, ctx *OverlayContext, cfg Config) float64 {
	v := BaseDraw(seed, sequence, cfg.MaxMultiplier)
	for _, overlay := range overlayPipeline {
		v = overlay(v, ctx, cfg)
	}
	if v < 1.0 {
		v = 1.0
	}
	return Floor2(v)
}
