package simulate

// Failure reasons on ItemResult. "No question cards" is distinct from
// "no card enrollments": the former is a content configuration problem,
// the latter a timing one.
const (
	ReasonNoEnrollment      = "no_enrollment"
	ReasonNoCardEnrollments = "no_card_enrollments"
	ReasonNoQuestionCards   = "no_question_cards"
	ReasonSettleFetchFailed = "settle_fetch_failed"
)

// ItemResult is the per-user per-item outcome of one completion or
// answering call. It always carries the counters, so partial failures are
// diagnosable from the report alone.
type ItemResult struct {
	OK           bool   `json:"ok"`
	Reason       string `json:"reason,omitempty"`
	Kind         string `json:"kind"` // "quiz" or "lesson"
	UserID       string `json:"user_id,omitempty"`
	EnrollmentID string `json:"enrollment_id,omitempty"`

	TargetPercent    float64  `json:"target_percent,omitempty"`
	TotalQuestions   int      `json:"total_questions"`
	DesiredCorrect   int      `json:"desired_correct"`
	Answered         int      `json:"answered"`
	CorrectTargeted  int      `json:"correct_targeted"`
	UnmatchedOptions int      `json:"unmatched_options"`
	Completed        bool     `json:"completed"`
	Score            *float64 `json:"score,omitempty"`
}
