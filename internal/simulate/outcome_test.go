package simulate_test

import (
	"testing"

	"github.com/bretkramer/ethos-content-creator/internal/simulate"
)

func TestModel_SeededRunsMatch(t *testing.T) {
	p := simulate.Profile{CompletionRate: 0.8, ScoreMean: 75, ScoreStddev: 12}
	a := simulate.NewModel(42)
	b := simulate.NewModel(42)
	for i := 0; i < 50; i++ {
		da, db := a.Decide(p), b.Decide(p)
		if da != db {
			t.Fatalf("draw %d diverged: %+v vs %+v", i, da, db)
		}
	}
}

func TestModel_TargetsClamped(t *testing.T) {
	m := simulate.NewModel(7)
	p := simulate.Profile{CompletionRate: 1, ScoreMean: 50, ScoreStddev: 500}
	for i := 0; i < 200; i++ {
		d := m.Decide(p)
		if d.TargetPercent < 0 || d.TargetPercent > 100 {
			t.Fatalf("draw %d out of range: %v", i, d.TargetPercent)
		}
	}
}

func TestModel_CompletionRateExtremes(t *testing.T) {
	m := simulate.NewModel(1)
	never := simulate.Profile{CompletionRate: 0, ScoreMean: 50}
	always := simulate.Profile{CompletionRate: 1, ScoreMean: 50}
	for i := 0; i < 50; i++ {
		if m.Decide(never).Participate {
			t.Fatalf("rate 0 produced a participant")
		}
		if !m.Decide(always).Participate {
			t.Fatalf("rate 1 produced a dropout")
		}
	}
}
