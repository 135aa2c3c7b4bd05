// Package journal keeps a sqlite-backed history of merge batches: one row
// per batch, one per file outcome. It is purely observational; resolution
// never depends on it.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrClosed = errors.New("journal is closed")

const busyTimeout = 5 * time.Second

// Journal records merge batches in a sqlite database.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=1",
		path,
		int(busyTimeout.Milliseconds()),
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{db: db, path: path}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return j, nil
}

func (j *Journal) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id          TEXT PRIMARY KEY,
	working_dir TEXT NOT NULL,
	total       INTEGER NOT NULL,
	resolved    INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS outcomes (
	batch_id    TEXT NOT NULL REFERENCES batches(id),
	path        TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_batch ON outcomes(batch_id);
`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

// BeginBatch records the start of a batch.
func (j *Journal) BeginBatch(ctx context.Context, batchID, workingDir string, total int) error {
	if j.db == nil {
		return ErrClosed
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO batches (id, working_dir, total, started_at) VALUES (?, ?, ?, ?)`,
		batchID, workingDir, total, time.Now().UTC(),
	)
	return err
}

// RecordOutcome records one file's outcome within a batch.
func (j *Journal) RecordOutcome(ctx context.Context, batchID, path, strategy, outcome, detail string) error {
	if j.db == nil {
		return ErrClosed
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO outcomes (batch_id, path, strategy, outcome, detail, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		batchID, path, strategy, outcome, detail, time.Now().UTC(),
	)
	return err
}

// FinishBatch marks a batch complete with its resolved count.
func (j *Journal) FinishBatch(ctx context.Context, batchID string, resolved int) error {
	if j.db == nil {
		return ErrClosed
	}

	_, err := j.db.ExecContext(ctx,
		`UPDATE batches SET resolved = ?, finished_at = ? WHERE id = ?`,
		resolved, time.Now().UTC(), batchID,
	)
	return err
}

// BatchSummary is one row of merge history.
type BatchSummary struct {
	ID         string
	WorkingDir string
	Total      int
	Resolved   int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// FileOutcome is one file's journaled result.
type FileOutcome struct {
	Path     string
	Strategy string
	Outcome  string
	Detail   string
}

// RecentBatches returns up to limit batches, newest first.
func (j *Journal) RecentBatches(ctx context.Context, limit int) ([]BatchSummary, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, working_dir, total, resolved, started_at, finished_at
		 FROM batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []BatchSummary
	for rows.Next() {
		var b BatchSummary
		if err := rows.Scan(&b.ID, &b.WorkingDir, &b.Total, &b.Resolved, &b.StartedAt, &b.FinishedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// BatchOutcomes returns the per-file outcomes of one batch.
func (j *Journal) BatchOutcomes(ctx context.Context, batchID string) ([]FileOutcome, error) {
	if j.db == nil {
		return nil, ErrClosed
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT path, strategy, outcome, detail FROM outcomes
		 WHERE batch_id = ? ORDER BY recorded_at`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []FileOutcome
	for rows.Next() {
		var o FileOutcome
		if err := rows.Scan(&o.Path, &o.Strategy, &o.Outcome, &o.Detail); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Close releases the database handle. Safe to call multiple times.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}

	err := j.db.Close()
	j.db = nil
	return err
}
