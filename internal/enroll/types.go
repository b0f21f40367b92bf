package enroll

// Remote collection and detail paths. The LMS serves hydra-flavored JSON,
// but envelope shape and filter support vary per tenant; nothing here may
// assume a filter is honored.
const (
	PathItemEnrollments   = "/api/learning_item_enrollments"
	PathCourseEnrollments = "/api/course_enrollments"
	PathCardEnrollments   = "/api/card_enrollments"
	PathCards             = "/api/cards"
	PathConvertInvites    = "/api/invitations/convert"
)

// Enrollment links one user to one learning item. The engine never creates
// these; the LMS materializes them asynchronously and we only discover them.
type Enrollment struct {
	ID     string
	ItemID string
	UserID string
	Raw    map[string]interface{}
}

// Params are the known identifiers for one resolution call.
type Params struct {
	ItemIDs  []string
	UserIDs  []string
	CourseID string
}

// Attempt records one strategy's outcome, for diagnostics.
type Attempt struct {
	Strategy string `json:"strategy"`
	Count    int    `json:"count"`
	Err      string `json:"err,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Discovery is the result of a resolution call: which strategy satisfied
// it (empty when none did) and everything that was tried.
type Discovery struct {
	Strategy    string       `json:"strategy"`
	Enrollments []Enrollment `json:"-"`
	Attempts    []Attempt    `json:"attempts"`
}

// Index builds the user -> item -> enrollment lookup the orchestration
// layer fans out over. Duplicate (item, user) pairs resolve last-write-wins.
func Index(es []Enrollment) map[string]map[string]Enrollment {
	out := map[string]map[string]Enrollment{}
	for _, e := range es {
		if e.UserID == "" || e.ItemID == "" {
			continue
		}
		m, ok := out[e.UserID]
		if !ok {
			m = map[string]Enrollment{}
			out[e.UserID] = m
		}
		m[e.ItemID] = e
	}
	return out
}

func stringSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}
