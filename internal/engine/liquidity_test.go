package engine

import (
	mathrand "math/rand"
	"testing"
	"time"

	"github.com/Lavizord/crash-server/internal/models"
)

func TestLiquidityRollVariesProfiles(t *testing.T) {
	sim := NewLiquiditySimulator(mathrand.New(mathrand.NewSource(2)))
	first := sim.Profile()
	changed := false
	for i := 0; i < 10; i++ {
		sim.Roll()
		if sim.Profile() != first {
			changed = true
			break
		}
	}
	if !changed {
		t.Fatalf("rolling never produced a different profile")
	}
}

func TestLiquidityOutputNeverNegative(t *testing.T) {
	sim := NewLiquiditySimulator(mathrand.New(mathrand.NewSource(9)))
	for s := 0; s <= 120; s++ {
		stake, players := sim.At(time.Duration(s) * time.Second)
		if stake < 0 || players < 0 {
			t.Fatalf("at %ds: stake=%d players=%d", s, stake, players)
		}
	}
}

// With volatility pinned to zero the curve is deterministic: it grows
// to the peak, then declines past it.
func TestLiquidityGrowsThenDeclines(t *testing.T) {
	sim := NewLiquiditySimulator(mathrand.New(mathrand.NewSource(4)))
	sim.profile = models.LiquidityProfile{
		BaselineMicros: 100 * models.MicrosPerUnit,
		GrowthPerSec:   10 * models.MicrosPerUnit,
		Volatility:     0,
		PeakSeconds:    10,
		DeclineRate:    0.1,
		AvgBetMicros:   5 * models.MicrosPerUnit,
	}

	early, _ := sim.At(2 * time.Second)
	mid, _ := sim.At(8 * time.Second)
	if mid <= early {
		t.Fatalf("stake did not grow toward the peak: %d then %d", early, mid)
	}

	peak, _ := sim.At(10 * time.Second)
	late, _ := sim.At(30 * time.Second)
	if late >= peak {
		t.Fatalf("stake did not decline past the peak: %d then %d", peak, late)
	}
}

func TestLiquidityPlayersTrackAvgBet(t *testing.T) {
	sim := NewLiquiditySimulator(mathrand.New(mathrand.NewSource(4)))
	sim.profile = models.LiquidityProfile{
		BaselineMicros: 100 * models.MicrosPerUnit,
		GrowthPerSec:   0,
		Volatility:     0,
		PeakSeconds:    10,
		DeclineRate:    0.1,
		AvgBetMicros:   5 * models.MicrosPerUnit,
	}
	stake, players := sim.At(0)
	if want := int(stake / (5 * models.MicrosPerUnit)); players != want {
		t.Fatalf("players = %d, want %d for stake %d", players, want, stake)
	}
}
