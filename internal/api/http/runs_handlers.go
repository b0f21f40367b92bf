package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bretkramer/ethos-content-creator/internal/publish"
	"github.com/bretkramer/ethos-content-creator/internal/report"
)

// POST /api/runs
func StartRunHandler(runner *publish.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req publish.RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Topics) == 0 {
			http.Error(w, "topics required", http.StatusBadRequest)
			return
		}
		if req.Profile == "" {
			req.Profile = "average"
		}
		id := runner.Start(req)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"run_id": id})
	}
}

// GET /api/runs
func ListRunsHandler(store report.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		runs, err := store.ListRuns(r.Context(), limit)
		if err != nil {
			http.Error(w, "list runs: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(runs)
	}
}

// GET /api/runs/{runID}
func GetRunHandler(store report.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := strings.TrimSpace(chi.URLParam(r, "runID"))
		if runID == "" {
			http.Error(w, "runID required", http.StatusBadRequest)
			return
		}
		run, err := store.GetRun(r.Context(), runID)
		if err != nil {
			http.Error(w, "run: "+err.Error(), http.StatusNotFound)
			return
		}
		events, err := store.ListEvents(r.Context(), runID)
		if err != nil {
			http.Error(w, "events: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(struct {
			report.Run
			Events []report.Event `json:"events"`
		}{Run: run, Events: events})
	}
}
