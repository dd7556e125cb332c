package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the journal database at path.
// Use ":memory:" for an in-memory database.
func Open(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) initialize() error {
	schema := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		remote TEXT NOT NULL DEFAULT '',
		out_dir TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		from_version INTEGER NOT NULL DEFAULT 0,
		to_version INTEGER NOT NULL DEFAULT 0,
		applied TEXT,
		removed INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL DEFAULT 0,
		downloaded INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record stores run. A missing ID is generated.
func (j *SQLiteJournal) Record(ctx context.Context, run Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if run.ID == "" {
		run.ID = NewRunID()
	}
	var applied []byte
	if len(run.Applied) > 0 {
		var err error
		applied, err = json.Marshal(run.Applied)
		if err != nil {
			return fmt.Errorf("marshal applied steps: %w", err)
		}
	}

	_, err := j.db.ExecContext(ctx, `INSERT INTO runs
		(id, command, remote, out_dir, started_at, finished_at, outcome, error,
		 from_version, to_version, applied, removed, created, downloaded, skipped, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.Remote, run.OutDir,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Outcome, run.Error,
		run.FromVersion, run.ToVersion, applied,
		run.Removed, run.Created, run.Downloaded, run.Skipped, run.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. limit <= 0 means 20.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `SELECT
		id, command, remote, out_dir, started_at, finished_at, outcome, error,
		from_version, to_version, applied, removed, created, downloaded, skipped, failed
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		var applied []byte
		if err := rows.Scan(&r.ID, &r.Command, &r.Remote, &r.OutDir, &started, &finished, &r.Outcome, &r.Error,
			&r.FromVersion, &r.ToVersion, &applied, &r.Removed, &r.Created, &r.Downloaded, &r.Skipped, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		if len(applied) > 0 {
			if err := json.Unmarshal(applied, &r.Applied); err != nil {
				return nil, fmt.Errorf("unmarshal applied steps: %w", err)
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// Close closes the database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
