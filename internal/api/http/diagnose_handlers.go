package http

import (
	"encoding/json"
	"net/http"

	"github.com/bretkramer/ethos-content-creator/internal/enroll"
)

type diagnoseReq struct {
	ItemIDs  []string `json:"item_ids"`
	UserIDs  []string `json:"user_ids"`
	CourseID string   `json:"course_id"`
}

// POST /api/enrollments/diagnose
//
// Runs every discovery strategy, including the connectivity probe, and
// returns each outcome. Much slower than a normal locate; admin-only.
func DiagnoseHandler(loc *enroll.Locator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req diagnoseReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		attempts := loc.Diagnose(r.Context(), enroll.Params{
			ItemIDs:  req.ItemIDs,
			UserIDs:  req.UserIDs,
			CourseID: req.CourseID,
		})
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"attempts": attempts})
	}
}
