// Package history provides SQLite-backed persistence for pipeline runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/anthropics/agentic-dev-pipeline/internal/domain"
)

// schemaV1 defines the initial database schema.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	task            TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'idle',
	complexity      INTEGER NOT NULL DEFAULT 0,
	review_score    INTEGER NOT NULL DEFAULT 0,
	approved        INTEGER NOT NULL DEFAULT 0,
	failure_reason  TEXT NOT NULL DEFAULT '',
	plan_json       TEXT NOT NULL DEFAULT '',
	implement_json  TEXT NOT NULL DEFAULT '',
	review_json     TEXT NOT NULL DEFAULT '',
	started_at      INTEGER NOT NULL,
	finished_at     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`

// Run is one recorded pipeline run.
type Run struct {
	ID            string
	Task          string
	Status        domain.Status
	Complexity    int
	ReviewScore   int
	Approved      bool
	FailureReason string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Store persists pipeline runs to a SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the history database path under the project's .adp
// directory, creating the directory if needed.
func DefaultPath(projectRoot string) (string, error) {
	dir := filepath.Join(projectRoot, ".adp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (creating if necessary) the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin records the start of a run and returns its generated ID.
func (s *Store) Begin(ctx context.Context, task string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, task, status, started_at) VALUES (?, ?, ?, ?)`,
		id, task, string(domain.StatusPlanning), time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("record run start: %w", err)
	}
	return id, nil
}

// Finish records the terminal state of a run. Stage payloads are stored as
// JSON; nil results are stored as empty strings.
func (s *Store) Finish(ctx context.Context, id string, state domain.WorkflowState) error {
	var complexity, score int
	var approved bool
	var planJSON, implJSON, reviewJSON string
	if state.Plan != nil {
		complexity = state.Plan.Plan.Complexity
		planJSON = marshal(state.Plan)
	}
	if state.Implementation != nil {
		implJSON = marshal(state.Implementation)
	}
	if state.Review != nil {
		score = state.Review.Score
		approved = state.Review.Approved
		reviewJSON = marshal(state.Review)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, complexity = ?, review_score = ?, approved = ?,
			failure_reason = ?, plan_json = ?, implement_json = ?, review_json = ?,
			finished_at = ?
		 WHERE run_id = ?`,
		string(state.Status), complexity, score, boolToInt(approved),
		state.FailureReason, planJSON, implJSON, reviewJSON,
		time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// ListRecent returns the most recent runs, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, task, status, complexity, review_score, approved,
			failure_reason, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status string
		var approved, started, finished int64
		if err := rows.Scan(&r.ID, &r.Task, &status, &r.Complexity, &r.ReviewScore,
			&approved, &r.FailureReason, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = domain.Status(status)
		r.Approved = approved != 0
		r.StartedAt = time.Unix(started, 0)
		if finished > 0 {
			r.FinishedAt = time.Unix(finished, 0)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func marshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
