package engine

import (
	"math"
	mathrand "math/rand"
	"time"

	"github.com/Lavizord/crash-server/internal/models"
)

// LiquiditySimulator produces the cosmetic activity overlay. A fresh
// profile is rolled per round so the fake crowd varies; output goes
// into the separate "boosted" broadcast fields and nowhere else.
type LiquiditySimulator struct {
	profile models.LiquidityProfile
	rng     *mathrand.Rand
}

func NewLiquiditySimulator(rng *mathrand.Rand) *LiquiditySimulator {
	s := &LiquiditySimulator{rng: rng}
	s.Roll()
	return s
}

// Roll draws the next round's profile.
func (s *LiquiditySimulator) Roll() {
	s.profile = models.LiquidityProfile{
		BaselineMicros: int64(50+s.rng.Intn(400)) * models.MicrosPerUnit,
		GrowthPerSec:   int64(5+s.rng.Intn(40)) * models.MicrosPerUnit,
		Volatility:     0.05 + s.rng.Float64()*0.15,
		PeakSeconds:    8.0 + s.rng.Float64()*12.0,
		DeclineRate:    0.05 + s.rng.Float64()*0.10,
		AvgBetMicros:   int64(2+s.rng.Intn(8)) * models.MicrosPerUnit,
	}
}

// Profile returns the profile in force for the current round.
func (s *LiquiditySimulator) Profile() models.LiquidityProfile {
	return s.profile
}

// At returns the simulated stake and player count for a point in the
// round: growth to a peak, decline past it, with jitter.
func (s *LiquiditySimulator) At(elapsed time.Duration) (stakeMicros int64, players int) {
	p := s.profile
	secs := elapsed.Seconds()
	if secs < 0 {
		secs = 0
	}

	base := float64(p.BaselineMicros)
	if secs <= p.PeakSeconds {
		base += float64(p.GrowthPerSec) * secs
	} else {
		peak := float64(p.BaselineMicros) + float64(p.GrowthPerSec)*p.PeakSeconds
		base = peak * math.Exp(-p.DeclineRate*(secs-p.PeakSeconds))
	}

	jitter := 1.0 + (s.rng.Float64()*2-1)*p.Volatility
	stake := int64(base * jitter)
	if stake < 0 {
		stake = 0
	}
	if p.AvgBetMicros > 0 {
		players = int(stake / p.AvgBetMicros)
	}
	return stake, players
}
