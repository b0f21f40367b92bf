package enroll

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/bretkramer/ethos-content-creator/internal/lmshttp"
)

// Locator runs the discovery strategies in priority order and keeps the
// first non-empty result. One broken strategy never aborts the others.
type Locator struct {
	api          lmshttp.Doer
	walker       *Walker
	cache        *MemoCache
	log          *logrus.Logger
	hydrateLimit int
}

func NewLocator(api lmshttp.Doer, log *logrus.Logger) *Locator {
	return &Locator{
		api:          api,
		walker:       NewWalker(api, log),
		cache:        NewMemoCache(),
		log:          log,
		hydrateLimit: 10,
	}
}

// ordered returns the production strategies by preference. Course-scoped
// strategies only apply when a course id is known. The recent-sample probe
// is diagnostics-only and never runs here.
func (l *Locator) ordered(p Params) []Strategy {
	var out []Strategy
	if p.CourseID != "" {
		out = append(out, &courseWalk{l}, &scanLocal{l})
	}
	out = append(out, &bulkFilter{l}, &perItemFilter{l})
	return out
}

// Locate tries each applicable strategy at most once and stops at the
// first non-empty result. Strategy failures are recorded and swallowed.
func (l *Locator) Locate(ctx context.Context, p Params) Discovery {
	var d Discovery
	for _, s := range l.ordered(p) {
		es, note, err := s.Resolve(ctx, p)
		at := Attempt{Strategy: s.Name(), Count: len(es), Note: note}
		if err != nil {
			at.Err = err.Error()
			l.log.WithError(err).WithField("strategy", s.Name()).Warn("discovery strategy failed")
		}
		d.Attempts = append(d.Attempts, at)
		if err == nil && len(es) > 0 {
			d.Strategy = s.Name()
			d.Enrollments = es
			l.log.WithFields(logrus.Fields{"strategy": s.Name(), "count": len(es)}).Info("enrollments located")
			return d
		}
	}
	return d
}

// Diagnose runs every strategy, including the recent-sample probe, and
// reports each outcome. Slower than Locate and never on the hot path.
func (l *Locator) Diagnose(ctx context.Context, p Params) []Attempt {
	all := []Strategy{
		&courseWalk{l},
		&scanLocal{l},
		&bulkFilter{l},
		&perItemFilter{l},
		&recentSample{l},
	}
	out := make([]Attempt, 0, len(all))
	for _, s := range all {
		es, note, err := s.Resolve(ctx, p)
		at := Attempt{Strategy: s.Name(), Count: len(es), Note: note}
		if err != nil {
			at.Err = err.Error()
		}
		out = append(out, at)
	}
	return out
}
