package report

import (
	"github.com/bretkramer/ethos-content-creator/internal/enroll"
	"github.com/bretkramer/ethos-content-creator/internal/simulate"
)

type Run struct {
	ID         string                `json:"id"`
	Topics     []string              `json:"topics"`
	CourseID   string                `json:"course_id,omitempty"`
	Profile    string                `json:"profile"`
	Status     string                `json:"status"` // running|done|failed
	Strategy   string                `json:"strategy,omitempty"`
	State      string                `json:"state,omitempty"` // found|timed_out
	Attempts   []enroll.Attempt      `json:"attempts,omitempty"`
	Results    []simulate.ItemResult `json:"results,omitempty"`
	Error      string                `json:"error,omitempty"`
	CreatedAt  int64                 `json:"created_at"`
	FinishedAt int64                 `json:"finished_at,omitempty"`
}

type Event struct {
	Offset    int64  `json:"offset"`
	RunID     string `json:"run_id"`
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	CreatedAt int64  `json:"created_at"`
}
