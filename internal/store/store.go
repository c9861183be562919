// Package store provides a SQLite-backed record of section generation runs.
// Each generate invocation appends one row per section so operators can see
// what was produced, when, and whether the citation check flagged it — the
// records survive process restarts and back the GET /api/sections endpoint.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Status classifies the outcome of one section run.
type Status string

const (
	// StatusOK means the section was generated and passed the citation check.
	StatusOK Status = "ok"
	// StatusFlagged means the section was generated but the structural
	// citation check found violations. The output file still exists.
	StatusFlagged Status = "flagged"
	// StatusFailed means generation failed after exhausting retries;
	// no output file was written for this run.
	StatusFailed Status = "failed"
)

// SectionRun is one persisted record of a section generation attempt.
type SectionRun struct {
	// Section is the section name (e.g. "Objective & Scope").
	Section string
	// OutPath is the file the section was written to. Empty on failure.
	OutPath string
	// Status is the run outcome.
	Status Status
	// Reason holds the failure error or a violation summary. Empty when ok.
	Reason string
	// CreatedAt is when the record was persisted.
	CreatedAt time.Time
}

// RunStore persists and retrieves section run records. Implementations must
// be safe for concurrent use.
type RunStore interface {
	// Record persists one section run outcome.
	Record(ctx context.Context, run SectionRun) error
	// Recent returns the most recent n runs, newest-first.
	Recent(ctx context.Context, n int) ([]SectionRun, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a RunStore backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the run record database.
// It resolves to ~/.docweaver/runs.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".docweaver")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "runs.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS section_runs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    section    TEXT    NOT NULL,
    out_path   TEXT    NOT NULL DEFAULT '',
    status     TEXT    NOT NULL CHECK(status IN ('ok','flagged','failed')),
    reason     TEXT    NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_section_runs_created
    ON section_runs (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Record persists one section run outcome.
func (s *SQLiteStore) Record(ctx context.Context, run SectionRun) error {
	const q = `INSERT INTO section_runs (section, out_path, status, reason, created_at) VALUES (?, ?, ?, ?, ?)`
	ts := run.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, q, run.Section, run.OutPath, string(run.Status), run.Reason, ts.Unix()); err != nil {
		return fmt.Errorf("store: record: %w", err)
	}
	return nil
}

// Recent returns the most recent n runs, newest-first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]SectionRun, error) {
	const q = `
SELECT section, out_path, status, reason, created_at
FROM   section_runs
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var runs []SectionRun
	for rows.Next() {
		var r SectionRun
		var status string
		var ts int64
		if err := rows.Scan(&r.Section, &r.OutPath, &status, &r.Reason, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		r.Status = Status(status)
		r.CreatedAt = time.Unix(ts, 0)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return runs, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
