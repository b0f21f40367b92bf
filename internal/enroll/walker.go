package enroll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/bretkramer/ethos-content-creator/internal/lmshttp"
)

// Walker pages through a listing endpoint and flattens whatever envelope
// the tenant serves into plain records. It does not retry; callers own
// retry policy.
type Walker struct {
	api lmshttp.Doer
	log *logrus.Logger
}

func NewWalker(api lmshttp.Doer, log *logrus.Logger) *Walker {
	return &Walker{api: api, log: log}
}

// Page fetches a single page. Network and decode failures propagate so the
// caller can decide whether to keep walking.
func (w *Walker) Page(ctx context.Context, endpoint string, params url.Values, page, pageSize int) ([]map[string]interface{}, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("itemsPerPage", strconv.Itoa(pageSize))
	raw, err := w.api.Get(ctx, endpoint, q)
	if err != nil {
		return nil, err
	}
	recs, err := Records(raw)
	if err != nil {
		return nil, fmt.Errorf("%s page %d: %w", endpoint, page, err)
	}
	return recs, nil
}

// Walk pages until the first empty or short page, up to maxPages. A failed
// page ends the walk with whatever was gathered; discovery strategies treat
// partial data as better than none.
func (w *Walker) Walk(ctx context.Context, endpoint string, params url.Values, pageSize, maxPages int) []map[string]interface{} {
	var out []map[string]interface{}
	for page := 1; page <= maxPages; page++ {
		recs, err := w.Page(ctx, endpoint, params, page, pageSize)
		if err != nil {
			w.log.WithError(err).WithField("endpoint", endpoint).Debug("walk stopped on error")
			return out
		}
		out = append(out, recs...)
		if len(recs) == 0 || len(recs) < pageSize {
			return out
		}
	}
	return out
}

// envelopeKeys are the object envelopes we know how to unwrap, tried in
// order. Bare arrays are handled before these.
var envelopeKeys = []string{"hydra:member", "member", "data"}

// Records normalizes the known envelope shapes to a flat record slice.
func Records(raw json.RawMessage) ([]map[string]interface{}, error) {
	var arr []map[string]interface{}
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("unrecognized listing payload: %w", err)
	}
	for _, k := range envelopeKeys {
		inner, ok := obj[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &arr); err != nil {
			return nil, fmt.Errorf("envelope %q: %w", k, err)
		}
		return arr, nil
	}
	// An object with none of the known member fields is an empty
	// collection in at least one tenant's rendering.
	return nil, nil
}
