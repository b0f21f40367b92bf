package simulate_test

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/bretkramer/ethos-content-creator/internal/simulate"
)

func testLesson(api *fakeLMS) *simulate.LessonDriver {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return simulate.NewLessonDriver(api, log)
}

func TestComplete_SettledScore(t *testing.T) {
	api := seedQuiz(0, questionCard)
	api.parents["parent-1"] = map[string]interface{}{"id": "parent-1", "score": float64(100)}
	d := testLesson(api)

	res := d.Complete(context.Background(), "parent-1", "u1")
	if !res.OK || !res.Completed {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if res.Score == nil || *res.Score != 100 {
		t.Fatalf("score = %v, want 100", res.Score)
	}
}

func TestComplete_Repeatable(t *testing.T) {
	api := seedQuiz(0, questionCard)
	api.parents["parent-1"] = map[string]interface{}{"id": "parent-1", "score": float64(100)}
	d := testLesson(api)

	first := d.Complete(context.Background(), "parent-1", "u1")

	// Second run: the tenant now rejects the completion patch because the
	// enrollment is already complete. The outcome must not change.
	api.rejectPatches = true
	second := d.Complete(context.Background(), "parent-1", "u1")

	if !first.OK || !second.OK {
		t.Fatalf("runs: first=%+v second=%+v", first, second)
	}
	if *first.Score != *second.Score || first.Completed != second.Completed {
		t.Fatalf("outcomes diverged: first=%+v second=%+v", first, second)
	}
}

func TestComplete_NoEnrollment(t *testing.T) {
	api := seedQuiz(0, questionCard)
	d := testLesson(api)
	res := d.Complete(context.Background(), "", "u1")
	if res.OK || res.Reason != simulate.ReasonNoEnrollment {
		t.Fatalf("got %+v, want no_enrollment failure", res)
	}
	if len(api.patches) != 0 {
		t.Fatalf("network was touched despite missing enrollment")
	}
}

func TestComplete_SettleFetchFailure(t *testing.T) {
	api := seedQuiz(0, questionCard)
	// No parent registered: the settle fetch 404s.
	delete(api.parents, "parent-1")
	d := testLesson(api)
	res := d.Complete(context.Background(), "parent-1", "u1")
	if res.OK || res.Reason != simulate.ReasonSettleFetchFailed {
		t.Fatalf("got %+v, want settle_fetch_failed", res)
	}
}
