package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bretkramer/ethos-content-creator/internal/enroll"
	"github.com/bretkramer/ethos-content-creator/internal/generate"
	"github.com/bretkramer/ethos-content-creator/internal/report"
	"github.com/bretkramer/ethos-content-creator/internal/simulate"
)

// Collaborator slices, so the runner is testable against fakes.
type Awaiter interface {
	Await(ctx context.Context, p enroll.Params) (enroll.Discovery, enroll.State)
}

type QuizAnswerer interface {
	Answer(ctx context.Context, enrollmentID, userID string, targetPercent float64) simulate.ItemResult
}

type LessonCompleter interface {
	Complete(ctx context.Context, enrollmentID, userID string) simulate.ItemResult
}

type Archiver interface {
	Put(runID, name string, v interface{}) error
}

type RunRequest struct {
	Topics        []string `json:"topics"`
	CourseID      string   `json:"course_id"`
	UserCount     int      `json:"user_count"`
	Profile       string   `json:"profile"`
	LessonCards   int      `json:"lesson_cards"`
	QuizQuestions int      `json:"quiz_questions"`
	Seed          int64    `json:"seed"`
}

// Runner drives one publish+simulate run end to end: generate drafts,
// publish them, wait for the LMS to materialize enrollments, then fan out
// per-user completion. The whole batch always finishes and reports per
// user per item; only publishing failures abort a run.
type Runner struct {
	Source   generate.Source
	Pub      *Publisher
	Rec      Awaiter
	Quiz     QuizAnswerer
	Lesson   LessonCompleter
	Profiles map[string]simulate.Profile
	Reports  report.Store
	Drafts   Archiver
	Log      *logrus.Logger
	FanOut   int
}

type publishedItem struct {
	ID   string
	Kind string
}

// Start kicks off a run in the background and returns its id right away;
// the HTTP surface uses this so a run is never bounded by a request
// timeout.
func (r *Runner) Start(req RunRequest) string {
	id := uuid.NewString()
	go func() {
		if _, err := r.run(context.Background(), id, req); err != nil {
			r.Log.WithError(err).WithField("run_id", id).Error("run failed")
		}
	}()
	return id
}

func (r *Runner) Run(ctx context.Context, req RunRequest) (report.Run, error) {
	return r.run(ctx, uuid.NewString(), req)
}

func (r *Runner) run(ctx context.Context, id string, req RunRequest) (report.Run, error) {
	run := report.Run{
		ID:        id,
		Topics:    req.Topics,
		CourseID:  req.CourseID,
		Profile:   req.Profile,
		Status:    "running",
		CreatedAt: time.Now().Unix(),
	}
	if len(req.Topics) == 0 {
		return run, fmt.Errorf("no topics requested")
	}
	if req.UserCount < 1 {
		req.UserCount = 1
	}
	profile, ok := r.Profiles[req.Profile]
	if !ok {
		return run, fmt.Errorf("unknown profile %q", req.Profile)
	}
	if err := r.Reports.CreateRun(ctx, run); err != nil {
		return run, fmt.Errorf("create run: %w", err)
	}
	log := r.Log.WithField("run_id", run.ID)

	fail := func(err error) (report.Run, error) {
		run.Status = "failed"
		run.Error = err.Error()
		run.FinishedAt = time.Now().Unix()
		_ = r.Reports.FinishRun(ctx, run)
		return run, err
	}

	// Publish phase.
	r.event(ctx, run.ID, "PublishStarted", "")
	items, err := r.publishTopics(ctx, run.ID, req)
	if err != nil {
		return fail(err)
	}

	users := generate.Users(req.UserCount)
	r.archive(run.ID, "users", users)
	userIDs := make([]string, 0, len(users))
	for _, u := range users {
		id, err := r.Pub.CreateUser(ctx, u)
		if err != nil {
			return fail(err)
		}
		if err := r.Pub.SetAttribute(ctx, id, "cohort", "simulated"); err != nil {
			log.WithError(err).Warn("attribute not set")
		}
		userIDs = append(userIDs, id)
	}
	if _, err := r.Pub.CreateGroup(ctx, "cohort-"+run.ID[:8], userIDs); err != nil {
		log.WithError(err).Warn("group not created")
	}
	if req.CourseID != "" {
		if err := r.Pub.Invite(ctx, req.CourseID, userIDs); err != nil {
			return fail(err)
		}
	}
	r.event(ctx, run.ID, "Published", fmt.Sprintf(`{"items":%d,"users":%d}`, len(items), len(userIDs)))

	// Reconcile once for the whole batch, never per user.
	itemIDs := make([]string, 0, len(items))
	kinds := make(map[string]string, len(items))
	for _, it := range items {
		itemIDs = append(itemIDs, it.ID)
		kinds[it.ID] = it.Kind
	}
	r.event(ctx, run.ID, "ReconcileStarted", "")
	discovery, state := r.Rec.Await(ctx, enroll.Params{
		ItemIDs:  itemIDs,
		UserIDs:  userIDs,
		CourseID: req.CourseID,
	})
	run.Strategy = discovery.Strategy
	run.State = string(state)
	run.Attempts = discovery.Attempts
	if data, err := json.Marshal(discovery.Attempts); err == nil {
		r.event(ctx, run.ID, "ReconcileFinished", string(data))
	}

	// Simulation fan-out. Decisions are drawn up front so a fixed seed
	// reproduces a run exactly regardless of goroutine scheduling.
	model := simulate.NewModel(req.Seed)
	decisions := make(map[string]simulate.Decision, len(userIDs))
	for _, uid := range userIDs {
		decisions[uid] = model.Decide(profile)
	}
	index := enroll.Index(discovery.Enrollments)

	r.event(ctx, run.ID, "SimulateStarted", "")
	run.Results = r.simulate(ctx, userIDs, itemIDs, kinds, index, decisions)

	run.Status = "done"
	run.FinishedAt = time.Now().Unix()
	if err := r.Reports.FinishRun(ctx, run); err != nil {
		return run, fmt.Errorf("finish run: %w", err)
	}
	r.event(ctx, run.ID, "RunFinished", "")
	log.WithFields(logrus.Fields{"state": run.State, "results": len(run.Results)}).Info("run finished")
	return run, nil
}

func (r *Runner) publishTopics(ctx context.Context, runID string, req RunRequest) ([]publishedItem, error) {
	var items []publishedItem
	for _, topic := range req.Topics {
		ex, err := r.Source.Summary(ctx, topic)
		if err != nil {
			return nil, fmt.Errorf("seed topic %q: %w", topic, err)
		}
		lesson := generate.BuildLesson(ex, req.LessonCards)
		quiz := generate.BuildQuiz(ex, req.QuizQuestions)
		r.archive(runID, "draft-"+topic, []generate.ItemDraft{lesson, quiz})
		for _, d := range []generate.ItemDraft{lesson, quiz} {
			itemID, err := r.Pub.CreateLearningItem(ctx, d, req.CourseID)
			if err != nil {
				return nil, err
			}
			for i, c := range d.Cards {
				if _, err := r.Pub.CreateCard(ctx, itemID, c, i); err != nil {
					return nil, err
				}
			}
			items = append(items, publishedItem{ID: itemID, Kind: d.Kind})
		}
	}
	return items, nil
}

func (r *Runner) simulate(ctx context.Context, userIDs, itemIDs []string, kinds map[string]string,
	index map[string]map[string]enroll.Enrollment, decisions map[string]simulate.Decision) []simulate.ItemResult {

	fanOut := r.FanOut
	if fanOut <= 0 {
		fanOut = 10
	}
	var (
		mu      sync.Mutex
		results []simulate.ItemResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for _, uid := range userIDs {
		uid := uid
		g.Go(func() error {
			dec := decisions[uid]
			var mine []simulate.ItemResult
			for _, itemID := range itemIDs {
				e, found := index[uid][itemID]
				if !dec.Participate {
					mine = append(mine, simulate.ItemResult{
						Kind: kinds[itemID], UserID: uid, Reason: "not_participating",
					})
					continue
				}
				if !found {
					mine = append(mine, simulate.ItemResult{
						Kind: kinds[itemID], UserID: uid, Reason: simulate.ReasonNoEnrollment,
					})
					continue
				}
				var res simulate.ItemResult
				if kinds[itemID] == generate.KindQuiz {
					res = r.Quiz.Answer(gctx, e.ID, uid, dec.TargetPercent)
				} else {
					res = r.Lesson.Complete(gctx, e.ID, uid)
				}
				mine = append(mine, res)
			}
			mu.Lock()
			results = append(results, mine...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) event(ctx context.Context, runID, typ, data string) {
	if err := r.Reports.AppendEvent(ctx, runID, typ, data); err != nil {
		r.Log.WithError(err).WithField("type", typ).Warn("event not recorded")
	}
}

func (r *Runner) archive(runID, name string, v interface{}) {
	if r.Drafts == nil {
		return
	}
	if err := r.Drafts.Put(runID, name, v); err != nil {
		r.Log.WithError(err).WithField("name", name).Warn("draft not archived")
	}
}
