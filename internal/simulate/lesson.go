package simulate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bretkramer/ethos-content-creator/internal/enroll"
	"github.com/bretkramer/ethos-content-creator/internal/lmshttp"
)

// LessonDriver marks a lesson enrollment complete and fetches the settled
// record. No retries; completing an already-completed enrollment is fine.
type LessonDriver struct {
	api lmshttp.Doer
	log *logrus.Logger
	Now func() time.Time
}

func NewLessonDriver(api lmshttp.Doer, log *logrus.Logger) *LessonDriver {
	return &LessonDriver{api: api, log: log, Now: time.Now}
}

func (d *LessonDriver) Complete(ctx context.Context, enrollmentID, userID string) ItemResult {
	res := ItemResult{Kind: "lesson", UserID: userID, EnrollmentID: enrollmentID}
	if enrollmentID == "" {
		res.Reason = ReasonNoEnrollment
		return res
	}
	// The completion call is best-effort: a tenant that already considers
	// the enrollment complete may reject the patch, and that is not a
	// failure of this call.
	if _, err := d.api.Patch(ctx, enroll.PathItemEnrollments+"/"+enrollmentID, map[string]interface{}{
		"completedAt": d.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		d.log.WithError(err).WithField("enrollment", enrollmentID).Debug("lesson completion call rejected")
	}
	raw, err := d.api.Get(ctx, enroll.PathItemEnrollments+"/"+enrollmentID, nil)
	if err != nil {
		res.Reason = ReasonSettleFetchFailed
		return res
	}
	var rec map[string]interface{}
	if err := json.Unmarshal(raw, &rec); err != nil {
		res.Reason = ReasonSettleFetchFailed
		return res
	}
	if s, ok := scoreOf(rec); ok {
		res.Score = &s
	}
	res.OK = true
	res.Completed = true
	return res
}
