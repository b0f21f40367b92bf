package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/bretkramer/ethos-content-creator/internal/enroll"
	"github.com/bretkramer/ethos-content-creator/internal/generate"
	"github.com/bretkramer/ethos-content-creator/internal/report"
	"github.com/bretkramer/ethos-content-creator/internal/simulate"
)

/* ---------------- fakes ---------------- */

type stubSource struct{ err error }

func (s stubSource) Summary(_ context.Context, topic string) (generate.Extract, error) {
	if s.err != nil {
		return generate.Extract{}, s.err
	}
	return generate.Extract{
		Title:   topic,
		Summary: "A canned summary for tests. It has a couple of usable sentences.",
		Sentences: []string{
			"A canned summary for tests",
			"It has a couple of usable sentences",
		},
	}, nil
}

// creatorAPI answers every create call with a sequential id scoped to the
// resource, so "users" yields users-1, users-2 and so on.
type creatorAPI struct {
	mu    sync.Mutex
	seq   map[string]int
	posts map[string]int
}

func newCreatorAPI() *creatorAPI {
	return &creatorAPI{seq: map[string]int{}, posts: map[string]int{}}
}

func (c *creatorAPI) Get(_ context.Context, path string, _ url.Values) (json.RawMessage, error) {
	return nil, fmt.Errorf("unexpected GET %s", path)
}

func (c *creatorAPI) Post(_ context.Context, path string, _ interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts[path]++
	kind := path[strings.LastIndex(path, "/")+1:]
	c.seq[kind]++
	b, _ := json.Marshal(map[string]interface{}{"id": fmt.Sprintf("%s-%d", kind, c.seq[kind])})
	return b, nil
}

func (c *creatorAPI) Patch(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	return c.Post(ctx, path, body)
}

func (c *creatorAPI) postCount(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.posts[path]
}

// gridAwaiter reports one enrollment per requested user/item pair.
type gridAwaiter struct {
	empty  bool
	params enroll.Params
}

func (a *gridAwaiter) Await(_ context.Context, p enroll.Params) (enroll.Discovery, enroll.State) {
	a.params = p
	if a.empty {
		return enroll.Discovery{Attempts: []enroll.Attempt{{Strategy: "bulk-filter"}}}, enroll.StateTimedOut
	}
	d := enroll.Discovery{Strategy: "course-walk", Attempts: []enroll.Attempt{{Strategy: "course-walk", Count: 1}}}
	for _, u := range p.UserIDs {
		for _, i := range p.ItemIDs {
			d.Enrollments = append(d.Enrollments, enroll.Enrollment{
				ID: "e-" + u + "-" + i, ItemID: i, UserID: u,
			})
		}
	}
	return d, enroll.StateFound
}

type fakeQuiz struct {
	mu    sync.Mutex
	calls []string
}

func (q *fakeQuiz) Answer(_ context.Context, enrollmentID, userID string, targetPercent float64) simulate.ItemResult {
	q.mu.Lock()
	q.calls = append(q.calls, enrollmentID)
	q.mu.Unlock()
	return simulate.ItemResult{
		OK: true, Kind: "quiz", UserID: userID, EnrollmentID: enrollmentID,
		TargetPercent: targetPercent, Completed: true,
	}
}

type fakeLesson struct {
	mu    sync.Mutex
	calls []string
}

func (l *fakeLesson) Complete(_ context.Context, enrollmentID, userID string) simulate.ItemResult {
	l.mu.Lock()
	l.calls = append(l.calls, enrollmentID)
	l.mu.Unlock()
	return simulate.ItemResult{OK: true, Kind: "lesson", UserID: userID, EnrollmentID: enrollmentID, Completed: true}
}

type memStore struct {
	mu     sync.Mutex
	runs   map[string]report.Run
	events []report.Event
}

func newMemStore() *memStore { return &memStore{runs: map[string]report.Run{}} }

func (s *memStore) CreateRun(_ context.Context, r report.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
	return nil
}

func (s *memStore) FinishRun(_ context.Context, r report.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
	return nil
}

func (s *memStore) GetRun(_ context.Context, id string) (report.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return report.Run{}, fmt.Errorf("run %s not found", id)
	}
	return r, nil
}

func (s *memStore) ListRuns(_ context.Context, _ int) ([]report.Run, error) { return nil, nil }

func (s *memStore) AppendEvent(_ context.Context, runID, typ, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, report.Event{RunID: runID, Type: typ, Data: data})
	return nil
}

func (s *memStore) ListEvents(_ context.Context, _ string) ([]report.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]report.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}

func testRunner(store *memStore, api *creatorAPI, rec Awaiter, quiz *fakeQuiz, lesson *fakeLesson, profile simulate.Profile) *Runner {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Runner{
		Source:   stubSource{},
		Pub:      NewPublisher(api, log),
		Rec:      rec,
		Quiz:     quiz,
		Lesson:   lesson,
		Profiles: map[string]simulate.Profile{"average": profile},
		Reports:  store,
		Log:      log,
		FanOut:   2,
	}
}

/* ---------------- tests ---------------- */

func TestRun_EndToEnd(t *testing.T) {
	store := newMemStore()
	api := newCreatorAPI()
	rec := &gridAwaiter{}
	quiz := &fakeQuiz{}
	lesson := &fakeLesson{}
	r := testRunner(store, api, rec, quiz, lesson, simulate.Profile{CompletionRate: 1, ScoreMean: 80})

	run, err := r.Run(context.Background(), RunRequest{
		Topics:        []string{"Plate Tectonics"},
		CourseID:      "c1",
		UserCount:     2,
		Profile:       "average",
		LessonCards:   2,
		QuizQuestions: 2,
		Seed:          42,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if run.Status != "done" || run.State != "found" || run.Strategy != "course-walk" {
		t.Fatalf("run = %+v", run)
	}

	// One topic publishes a lesson and a quiz, two cards each.
	if n := api.postCount(pathLearningItems); n != 2 {
		t.Fatalf("created %d learning items, want 2", n)
	}
	if n := api.postCount(pathCards); n != 4 {
		t.Fatalf("created %d cards, want 4", n)
	}
	if n := api.postCount(pathUsers); n != 2 {
		t.Fatalf("created %d users, want 2", n)
	}
	if n := api.postCount(pathInvitations); n != 1 {
		t.Fatalf("sent %d invitations, want 1", n)
	}

	// Reconciliation happens once for the whole batch.
	if len(rec.params.ItemIDs) != 2 || len(rec.params.UserIDs) != 2 || rec.params.CourseID != "c1" {
		t.Fatalf("awaiter params = %+v", rec.params)
	}

	// 2 users x 2 items, routed by kind.
	if len(run.Results) != 4 {
		t.Fatalf("got %d results, want 4", len(run.Results))
	}
	if len(quiz.calls) != 2 || len(lesson.calls) != 2 {
		t.Fatalf("routing: quiz=%d lesson=%d, want 2 each", len(quiz.calls), len(lesson.calls))
	}
	for _, res := range run.Results {
		if !res.OK {
			t.Fatalf("result not ok: %+v", res)
		}
	}

	// The stored run matches what was returned, and the event trail is
	// complete.
	stored, err := store.GetRun(context.Background(), run.ID)
	if err != nil || stored.Status != "done" || len(stored.Results) != 4 {
		t.Fatalf("stored run = %+v (%v)", stored, err)
	}
	events, _ := store.ListEvents(context.Background(), run.ID)
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	for _, want := range []string{"PublishStarted", "Published", "ReconcileStarted", "ReconcileFinished", "SimulateStarted", "RunFinished"} {
		if !strings.Contains(strings.Join(types, ","), want) {
			t.Fatalf("event %s missing from %v", want, types)
		}
	}
}

func TestRun_NonParticipantsSkipRemoteCalls(t *testing.T) {
	store := newMemStore()
	api := newCreatorAPI()
	quiz := &fakeQuiz{}
	lesson := &fakeLesson{}
	r := testRunner(store, api, &gridAwaiter{}, quiz, lesson, simulate.Profile{CompletionRate: 0, ScoreMean: 80})

	run, err := r.Run(context.Background(), RunRequest{
		Topics: []string{"Topic"}, UserCount: 2, Profile: "average",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(quiz.calls)+len(lesson.calls) != 0 {
		t.Fatalf("dropouts still drove items: quiz=%v lesson=%v", quiz.calls, lesson.calls)
	}
	for _, res := range run.Results {
		if res.Reason != "not_participating" {
			t.Fatalf("result = %+v, want not_participating", res)
		}
	}
}

func TestRun_MissingEnrollmentsReportedPerItem(t *testing.T) {
	store := newMemStore()
	api := newCreatorAPI()
	quiz := &fakeQuiz{}
	lesson := &fakeLesson{}
	r := testRunner(store, api, &gridAwaiter{empty: true}, quiz, lesson, simulate.Profile{CompletionRate: 1, ScoreMean: 80})

	run, err := r.Run(context.Background(), RunRequest{
		Topics: []string{"Topic"}, UserCount: 1, Profile: "average",
	})
	if err != nil {
		t.Fatalf("a timed-out reconcile must not abort the run: %v", err)
	}
	if run.Status != "done" || run.State != "timed_out" {
		t.Fatalf("run = %+v", run)
	}
	if len(run.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(run.Results))
	}
	for _, res := range run.Results {
		if res.OK || res.Reason != simulate.ReasonNoEnrollment {
			t.Fatalf("result = %+v, want no_enrollment", res)
		}
	}
}

func TestRun_UnknownProfileRejected(t *testing.T) {
	store := newMemStore()
	r := testRunner(store, newCreatorAPI(), &gridAwaiter{}, &fakeQuiz{}, &fakeLesson{}, simulate.Profile{})
	_, err := r.Run(context.Background(), RunRequest{Topics: []string{"Topic"}, Profile: "nope"})
	if err == nil {
		t.Fatalf("unknown profile accepted")
	}
	if len(store.runs) != 0 {
		t.Fatalf("run persisted despite validation failure")
	}
}

func TestRun_SeedFailureMarksRunFailed(t *testing.T) {
	store := newMemStore()
	api := newCreatorAPI()
	r := testRunner(store, api, &gridAwaiter{}, &fakeQuiz{}, &fakeLesson{}, simulate.Profile{CompletionRate: 1})
	r.Source = stubSource{err: fmt.Errorf("wikipedia down")}

	run, err := r.Run(context.Background(), RunRequest{Topics: []string{"Topic"}, Profile: "average"})
	if err == nil {
		t.Fatalf("seed failure swallowed")
	}
	stored, gerr := store.GetRun(context.Background(), run.ID)
	if gerr != nil || stored.Status != "failed" || stored.Error == "" {
		t.Fatalf("stored run = %+v (%v)", stored, gerr)
	}
}

func TestRun_SeededRunsProduceSameDecisions(t *testing.T) {
	req := RunRequest{Topics: []string{"Topic"}, UserCount: 4, Profile: "average", Seed: 7}
	profile := simulate.Profile{CompletionRate: 0.5, ScoreMean: 70, ScoreStddev: 20}

	outcomes := func() string {
		store := newMemStore()
		r := testRunner(store, newCreatorAPI(), &gridAwaiter{}, &fakeQuiz{}, &fakeLesson{}, profile)
		run, err := r.Run(context.Background(), req)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		seen := map[string]string{}
		for _, res := range run.Results {
			key := res.UserID + "/" + res.Kind
			seen[key] = fmt.Sprintf("%s:%.2f", res.Reason, res.TargetPercent)
		}
		b, _ := json.Marshal(seen)
		return string(b)
	}

	if a, b := outcomes(), outcomes(); a != b {
		t.Fatalf("same seed diverged:\n%s\n%s", a, b)
	}
}
