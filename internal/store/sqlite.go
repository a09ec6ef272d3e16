// Package store persists run history: one row per pipeline run with its
// summary and the enriched output snapshot it produced.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/lionvest/crmrecon/internal/recon"
)

// Run is one recorded pipeline run.
type Run struct {
	ID         string           `json:"id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Summary    recon.RunSummary `json:"summary"`
}

// Store records pipeline runs in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the run-history database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	summary     TEXT NOT NULL,
	snapshot    BLOB
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(migration)
	return eris.Wrap(err, "store: migrate")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores a run summary together with the records JSON snapshot
// it produced, returning the new run id.
func (s *Store) RecordRun(ctx context.Context, summary recon.RunSummary, snapshot []byte) (string, error) {
	id := uuid.New().String()

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal summary")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, summary, snapshot) VALUES (?, ?, ?, ?, ?)`,
		id, summary.StartedAt.UTC(), summary.FinishedAt.UTC(), string(summaryJSON), snapshot,
	)
	if err != nil {
		return "", eris.Wrap(err, "store: insert run")
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, summary FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: query runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var summaryJSON string
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &summaryJSON); err != nil {
			return nil, eris.Wrap(err, "store: scan run")
		}
		if err := json.Unmarshal([]byte(summaryJSON), &r.Summary); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal summary")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "store: iterate runs")
}

// LatestSnapshot returns the records JSON of the most recent run, or nil
// when no run has been recorded.
func (s *Store) LatestSnapshot(ctx context.Context) ([]byte, error) {
	var snapshot []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: query latest snapshot")
	}
	return snapshot, nil
}
