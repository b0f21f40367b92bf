package enroll

import (
	"context"
	"fmt"
	"net/url"
)

// Strategy is one way of locating enrollment records. Implementations
// return an empty slice (not an error) when they are inapplicable or the
// tenant rejects their filters; a non-nil error means the attempt itself
// blew up and should be recorded but never propagated past the selector.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, p Params) ([]Enrollment, string, error)
}

const (
	bulkPageSize  = 500
	perItemCap    = 10
	scanPageSize  = 100
	scanMaxPages  = 5
	coursePages   = 10
	subresPages   = 3
	samplePageLen = 25
)

func mapEnrollment(rec map[string]interface{}) Enrollment {
	return Enrollment{
		ID:     ExtractID(rec),
		ItemID: ExtractID(rec["learningItem"]),
		UserID: ExtractID(rec["user"]),
		Raw:    rec,
	}
}

// bulkFilter issues a single query with repeated learningItem[] and user[]
// parameters. Tenants that ignore the filters return unrelated rows, so
// the result is re-filtered locally before it counts as a hit.
type bulkFilter struct{ loc *Locator }

func (s *bulkFilter) Name() string { return "bulk-filter" }

func (s *bulkFilter) Resolve(ctx context.Context, p Params) ([]Enrollment, string, error) {
	if len(p.ItemIDs) == 0 {
		return nil, "no item ids known", nil
	}
	params := url.Values{}
	for _, id := range p.ItemIDs {
		params.Add("learningItem[]", id)
	}
	for _, id := range p.UserIDs {
		params.Add("user[]", id)
	}
	recs, err := s.loc.walker.Page(ctx, PathItemEnrollments, params, 1, bulkPageSize)
	if err != nil {
		return nil, "", err
	}
	out := filterByTargets(recs, p)
	return out, fmt.Sprintf("%d rows returned", len(recs)), nil
}

// perItemFilter queries once per learning item, capped to a bounded prefix
// of the id list. Last resort for tenants that reject array filters.
type perItemFilter struct{ loc *Locator }

func (s *perItemFilter) Name() string { return "per-item" }

func (s *perItemFilter) Resolve(ctx context.Context, p Params) ([]Enrollment, string, error) {
	if len(p.ItemIDs) == 0 {
		return nil, "no item ids known", nil
	}
	ids := p.ItemIDs
	if len(ids) > perItemCap {
		ids = ids[:perItemCap]
	}
	var out []Enrollment
	failed := 0
	for _, id := range ids {
		params := url.Values{}
		params.Set("learningItem", id)
		recs, err := s.loc.walker.Page(ctx, PathItemEnrollments, params, 1, 200)
		if err != nil {
			failed++
			s.loc.log.WithError(err).WithField("item", id).Debug("per-item query failed")
			continue
		}
		out = append(out, filterByTargets(recs, p)...)
	}
	return out, fmt.Sprintf("queried %d items, %d failed", len(ids), failed), nil
}

// scanLocal walks the unfiltered enrollment collection (capped pages) and
// filters client-side. Rows lacking a direct user reference are resolved
// through their course enrollment, memoized per service instance.
type scanLocal struct{ loc *Locator }

func (s *scanLocal) Name() string { return "scan-local" }

func (s *scanLocal) Resolve(ctx context.Context, p Params) ([]Enrollment, string, error) {
	if len(p.ItemIDs) == 0 {
		return nil, "no item ids known", nil
	}
	recs := s.loc.walker.Walk(ctx, PathItemEnrollments, nil, scanPageSize, scanMaxPages)
	itemSet := stringSet(p.ItemIDs)
	var out []Enrollment
	for _, rec := range recs {
		e := mapEnrollment(rec)
		if _, ok := itemSet[e.ItemID]; !ok {
			continue
		}
		if e.UserID == "" {
			e.UserID = s.loc.userForCourseEnrollment(ctx, ExtractID(rec["courseEnrollment"]))
		}
		out = append(out, e)
	}
	return out, fmt.Sprintf("scanned %d rows", len(recs)), nil
}

// courseWalk walks course-level enrollments for a known course, gathers
// embedded or subresource child references, hydrates each child to learn
// its true learning item, and intersects with the target set. The most
// reliable strategy in practice since it never needs item-level filters.
type courseWalk struct{ loc *Locator }

func (s *courseWalk) Name() string { return "course-walk" }

func (s *courseWalk) Resolve(ctx context.Context, p Params) ([]Enrollment, string, error) {
	if p.CourseID == "" {
		return nil, "no course id known", nil
	}
	params := url.Values{}
	params.Set("course", p.CourseID)
	ces := s.loc.walker.Walk(ctx, PathCourseEnrollments, params, scanPageSize, coursePages)
	if len(ces) == 0 {
		return nil, "no course enrollments visible", nil
	}

	var refs []childRef
	embedded := 0
	for _, ce := range ces {
		ceID := ExtractID(ce)
		userID := ExtractID(ce["user"])
		if ceID != "" {
			s.loc.cache.PutUser(ceID, userID)
		}
		kids := childEnrollmentIDs(ce)
		if len(kids) > 0 {
			embedded++
		} else if ceID != "" {
			// Subresource fallback when nothing is embedded. Whether this
			// covers every tenant shape is unverified; an empty result
			// here still surfaces through the diagnostics note.
			sub := s.loc.walker.Walk(ctx, PathCourseEnrollments+"/"+ceID+"/learning_item_enrollments", nil, scanPageSize, subresPages)
			for _, rec := range sub {
				if id := ExtractID(rec); id != "" {
					kids = append(kids, id)
				}
			}
		}
		for _, kid := range kids {
			refs = append(refs, childRef{enrollmentID: kid, userID: userID})
		}
	}

	hydrated := s.loc.hydrate(ctx, refs)
	itemSet := stringSet(p.ItemIDs)
	var out []Enrollment
	for _, e := range hydrated {
		if _, ok := itemSet[e.ItemID]; ok {
			out = append(out, e)
		}
	}
	note := fmt.Sprintf("%d course enrollments, %d with embedded children, %d child refs", len(ces), embedded, len(refs))
	return out, note, nil
}

// recentSample fetches a small recent unfiltered page. Diagnostics only:
// it proves connectivity and access, never feeds resolution.
type recentSample struct{ loc *Locator }

func (s *recentSample) Name() string { return "recent-sample" }

func (s *recentSample) Resolve(ctx context.Context, p Params) ([]Enrollment, string, error) {
	params := url.Values{}
	params.Set("order[createdAt]", "desc")
	recs, err := s.loc.walker.Page(ctx, PathItemEnrollments, params, 1, samplePageLen)
	if err != nil {
		return nil, "", err
	}
	out := make([]Enrollment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, mapEnrollment(rec))
	}
	return out, "connectivity probe, not used for resolution", nil
}

func filterByTargets(recs []map[string]interface{}, p Params) []Enrollment {
	itemSet := stringSet(p.ItemIDs)
	userSet := stringSet(p.UserIDs)
	var out []Enrollment
	for _, rec := range recs {
		e := mapEnrollment(rec)
		if _, ok := itemSet[e.ItemID]; !ok {
			continue
		}
		if len(userSet) > 0 {
			if _, ok := userSet[e.UserID]; !ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// childEnrollmentIDs collects child enrollment references embedded in a
// course enrollment record. Entries may be IRI strings or objects.
func childEnrollmentIDs(ce map[string]interface{}) []string {
	for _, k := range []string{"learningItemEnrollments", "itemEnrollments", "enrollments"} {
		arr, ok := ce[k].([]interface{})
		if !ok {
			continue
		}
		var out []string
		for _, v := range arr {
			if id := ExtractID(v); id != "" {
				out = append(out, id)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
