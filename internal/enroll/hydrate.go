package enroll

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/sync/errgroup"
)

type childRef struct {
	enrollmentID string
	userID       string
}

// hydrate fetches the detail record behind each child reference to learn
// its true learning item id. Fan-out is bounded so a big course does not
// trip the LMS rate limiter; output order is irrelevant. A failed fetch
// drops that one reference, never the batch.
func (l *Locator) hydrate(ctx context.Context, refs []childRef) []Enrollment {
	if len(refs) == 0 {
		return nil
	}
	var (
		mu  sync.Mutex
		out []Enrollment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.hydrateLimit)
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			rec, err := l.fetchDetail(gctx, PathItemEnrollments+"/"+ref.enrollmentID)
			if err != nil {
				l.log.WithError(err).WithField("enrollment", ref.enrollmentID).Debug("hydrate failed")
				return nil
			}
			e := mapEnrollment(rec)
			if e.ID == "" {
				e.ID = ref.enrollmentID
			}
			if e.UserID == "" {
				e.UserID = ref.userID
			}
			mu.Lock()
			out = append(out, e)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (l *Locator) fetchDetail(ctx context.Context, path string) (map[string]interface{}, error) {
	raw, err := l.api.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var rec map[string]interface{}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// userForCourseEnrollment resolves the owning user of a course enrollment,
// memoized per service instance. Known-missing is cached too.
func (l *Locator) userForCourseEnrollment(ctx context.Context, ceID string) string {
	if ceID == "" {
		return ""
	}
	if userID, ok := l.cache.GetUser(ceID); ok {
		return userID
	}
	rec, err := l.fetchDetail(ctx, PathCourseEnrollments+"/"+ceID)
	if err != nil {
		l.log.WithError(err).WithField("course_enrollment", ceID).Debug("course enrollment lookup failed")
		l.cache.PutUser(ceID, "")
		return ""
	}
	userID := ExtractID(rec["user"])
	l.cache.PutUser(ceID, userID)
	return userID
}
