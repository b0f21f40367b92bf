package enroll

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Locates is implemented by *Locator; split out so the reconciler is
// testable against scripted discovery outcomes.
type Locates interface {
	Locate(ctx context.Context, p Params) Discovery
}

// Converter turns pending invitations into enrollment records server-side.
// Used once per reconciliation as a self-healing nudge.
type Converter interface {
	ConvertInvitations(ctx context.Context, courseID string, userIDs []string) error
}

type State string

const (
	StateFound    State = "found"
	StateTimedOut State = "timed_out"
)

// Reconciler polls the locator until records appear or the wall-clock
// budget runs out. Timing out is not a fault: the LMS may simply not have
// materialized anything yet, and callers treat an empty result as
// "nothing to do yet".
type Reconciler struct {
	Loc      Locates
	Convert  Converter // optional
	Interval time.Duration
	Budget   time.Duration
	Now      func() time.Time
	Sleep    func(time.Duration)
	Log      *logrus.Logger
}

func NewReconciler(loc Locates, conv Converter, log *logrus.Logger) *Reconciler {
	return &Reconciler{
		Loc:      loc,
		Convert:  conv,
		Interval: 5 * time.Second,
		Budget:   2 * time.Minute,
		Now:      time.Now,
		Sleep:    time.Sleep,
		Log:      log,
	}
}

// Await polls until found or the budget is spent, returning the last
// discovery either way. On the first empty poll, and only then, it fires a
// one-shot invitation conversion when a course id is known.
func (r *Reconciler) Await(ctx context.Context, p Params) (Discovery, State) {
	deadline := r.Now().Add(r.Budget)
	kicked := false
	var last Discovery
	for {
		last = r.Loc.Locate(ctx, p)
		if len(last.Enrollments) > 0 {
			return last, StateFound
		}
		if !kicked && p.CourseID != "" && r.Convert != nil {
			if err := r.Convert.ConvertInvitations(ctx, p.CourseID, p.UserIDs); err != nil {
				r.Log.WithError(err).Warn("invitation conversion kickoff failed")
			} else {
				r.Log.WithField("course", p.CourseID).Info("invitation conversion kicked off")
			}
			kicked = true
		}
		if !r.Now().Before(deadline) {
			return last, StateTimedOut
		}
		r.Sleep(r.Interval)
		if ctx.Err() != nil {
			return last, StateTimedOut
		}
	}
}
