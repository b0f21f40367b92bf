package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store persists runs and their phase events.
type Store interface {
	CreateRun(ctx context.Context, r Run) error
	FinishRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	AppendEvent(ctx context.Context, runID, typ, data string) error
	ListEvents(ctx context.Context, runID string) ([]Event, error)
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) CreateRun(ctx context.Context, r Run) error {
	topics, _ := json.Marshal(r.Topics)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, topics_json, course_id, profile, status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		r.ID, string(topics), r.CourseID, r.Profile, r.Status, time.Now().Unix())
	return err
}

func (s *SQLStore) FinishRun(ctx context.Context, r Run) error {
	attempts, _ := json.Marshal(r.Attempts)
	results, _ := json.Marshal(r.Results)
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status=$1, strategy=$2, state=$3, attempts_json=$4, results_json=$5, error=$6, finished_at=$7
		 WHERE id=$8`,
		r.Status, r.Strategy, r.State, string(attempts), string(results), r.Error, time.Now().Unix(), r.ID)
	return err
}

func (s *SQLStore) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, topics_json, course_id, profile, status, strategy, state, attempts_json, results_json, error, created_at, finished_at
		 FROM runs WHERE id=$1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q not found", id)
	}
	return r, err
}

func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topics_json, course_id, profile, status, strategy, state, attempts_json, results_json, error, created_at, finished_at
		 FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanRun(row rowScanner) (Run, error) {
	var (
		r                                  Run
		topics, attempts, results, errText sql.NullString
		strategy, state                    sql.NullString
		finished                           sql.NullInt64
	)
	if err := row.Scan(&r.ID, &topics, &r.CourseID, &r.Profile, &r.Status,
		&strategy, &state, &attempts, &results, &errText, &r.CreatedAt, &finished); err != nil {
		return Run{}, err
	}
	if topics.Valid && topics.String != "" {
		_ = json.Unmarshal([]byte(topics.String), &r.Topics)
	}
	if attempts.Valid && attempts.String != "" {
		_ = json.Unmarshal([]byte(attempts.String), &r.Attempts)
	}
	if results.Valid && results.String != "" {
		_ = json.Unmarshal([]byte(results.String), &r.Results)
	}
	r.Strategy = strategy.String
	r.State = state.String
	r.Error = errText.String
	r.FinishedAt = finished.Int64
	return r, nil
}

func (s *SQLStore) AppendEvent(ctx context.Context, runID, typ, data string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_events (run_id, typ, data, created_at) VALUES ($1,$2,$3,$4)`,
		runID, typ, data, time.Now().Unix())
	return err
}

func (s *SQLStore) ListEvents(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT "offset", run_id, typ, data, created_at FROM run_events WHERE run_id=$1 ORDER BY "offset"`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.RunID, &e.Type, &e.Data, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
