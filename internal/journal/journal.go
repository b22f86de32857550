// Package journal keeps a short history of rulesmith runs in a SQLite
// database under the state directory. It backs `status --history`.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// MaxRunsPerProject bounds the history kept for each project; older runs
// are trimmed on insert.
const MaxRunsPerProject = 100

// Outcome summarizes how a run ended.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeDryRun    Outcome = "dry-run"
)

// Run is one journal entry.
type Run struct {
	ID             string        `json:"id"`
	ProjectID      string        `json:"project_id"`
	ProjectPath    string        `json:"project_path"`
	Command        string        `json:"command"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Outcome        Outcome       `json:"outcome"`
	CatalogVersion string        `json:"catalog_version,omitempty"`
	Rules          int           `json:"rules"`
	Artifacts      int           `json:"artifacts"`
	Created        int           `json:"created"`
	Removed        int           `json:"removed"`
	Unchanged      int           `json:"unchanged"`
	Failed         int           `json:"failed"`
	Error          string        `json:"error,omitempty"`
}

// Store is a SQLite-backed run journal.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	project_id TEXT NOT NULL,
	project_path TEXT NOT NULL,
	command TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	catalog_version TEXT NOT NULL DEFAULT '',
	rules INTEGER NOT NULL DEFAULT 0,
	artifacts INTEGER NOT NULL DEFAULT 0,
	created INTEGER NOT NULL DEFAULT 0,
	removed INTEGER NOT NULL DEFAULT 0,
	unchanged INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_id, seq DESC);
`

// Open opens or creates the journal at path. An empty path opens an
// in-memory journal for tests.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends a run and trims the project's history.
func (s *Store) Record(ctx context.Context, r Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, project_id, project_path, command, started_at, duration_ms, outcome,
			catalog_version, rules, artifacts, created, removed, unchanged, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.ProjectID, r.ProjectPath, r.Command, r.StartedAt.UTC(), r.Duration.Milliseconds(), string(r.Outcome),
		r.CatalogVersion, r.Rules, r.Artifacts, r.Created, r.Removed, r.Unchanged, r.Failed, r.Error)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM runs
		WHERE project_id = ? AND seq NOT IN (
			SELECT seq FROM runs
			WHERE project_id = ?
			ORDER BY seq DESC
			LIMIT ?
		)
	`, r.ProjectID, r.ProjectID, MaxRunsPerProject)
	if err != nil {
		return fmt.Errorf("trim runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Recent returns up to limit runs for a project, newest first.
func (s *Store) Recent(ctx context.Context, projectID string, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, project_path, command, started_at, duration_ms, outcome,
			catalog_version, rules, artifacts, created, removed, unchanged, failed, error
		FROM runs
		WHERE project_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			outcome  string
			duration int64
		)
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.ProjectPath, &r.Command, &r.StartedAt, &duration, &outcome,
			&r.CatalogVersion, &r.Rules, &r.Artifacts, &r.Created, &r.Removed, &r.Unchanged, &r.Failed, &r.Error); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Outcome = Outcome(outcome)
		r.Duration = time.Duration(duration) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
