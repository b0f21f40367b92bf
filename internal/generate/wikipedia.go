package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Source provides seed text for drafts. The production implementation is
// Wikipedia; tests use canned extracts.
type Source interface {
	Summary(ctx context.Context, topic string) (Extract, error)
}

// Extract is the seed material for one topic.
type Extract struct {
	Title     string
	Summary   string
	Sentences []string
}

type Wikipedia struct {
	base string
	http *http.Client
}

func NewWikipedia(base string) *Wikipedia {
	if base == "" {
		base = "https://en.wikipedia.org"
	}
	return &Wikipedia{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Summary fetches the REST summary for a topic title.
func (w *Wikipedia) Summary(ctx context.Context, topic string) (Extract, error) {
	title := strings.ReplaceAll(strings.TrimSpace(topic), " ", "_")
	u := w.base + "/api/rest_v1/page/summary/" + url.PathEscape(title)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Extract{}, err
	}
	res, err := w.http.Do(req)
	if err != nil {
		return Extract{}, err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return Extract{}, fmt.Errorf("wikipedia summary %q: %s", topic, res.Status)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Extract{}, err
	}
	var payload struct {
		Title   string `json:"title"`
		Extract string `json:"extract"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Extract{}, err
	}
	if strings.TrimSpace(payload.Extract) == "" {
		return Extract{}, fmt.Errorf("wikipedia summary %q: empty extract", topic)
	}
	return Extract{
		Title:     payload.Title,
		Summary:   payload.Extract,
		Sentences: SplitSentences(payload.Extract),
	}, nil
}

// SplitSentences breaks an extract into usable sentences, dropping ones
// too short to template a question from.
func SplitSentences(text string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		s = strings.TrimSpace(s)
		if len(s) >= 20 {
			out = append(out, s)
		}
	}
	return out
}
