package simulate

import "math/rand"

// Profile shapes how a simulated cohort behaves. Loaded from the publish
// profiles file.
type Profile struct {
	CompletionRate float64 `yaml:"completion_rate"`
	ScoreMean      float64 `yaml:"score_mean"`
	ScoreStddev    float64 `yaml:"score_stddev"`
}

// Decision is what one simulated user will do with one item.
type Decision struct {
	Participate   bool
	TargetPercent float64
}

// Model draws per-user decisions from a profile. Seeded, so runs are
// reproducible.
type Model struct {
	rnd *rand.Rand
}

func NewModel(seed int64) *Model {
	return &Model{rnd: rand.New(rand.NewSource(seed))}
}

func (m *Model) Decide(p Profile) Decision {
	d := Decision{
		Participate:   m.rnd.Float64() < p.CompletionRate,
		TargetPercent: p.ScoreMean + m.rnd.NormFloat64()*p.ScoreStddev,
	}
	if d.TargetPercent < 0 {
		d.TargetPercent = 0
	}
	if d.TargetPercent > 100 {
		d.TargetPercent = 100
	}
	return d
}
