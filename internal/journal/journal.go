// Package journal keeps a history of nubesync runs in SQLite.
//
// Every sync, migrate and clear invocation appends one Run. The history
// command and the daemon read it back; the state file itself never depends
// on the journal.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded invocation.
type Run struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Remote     string    `json:"remote,omitempty"`
	OutDir     string    `json:"out_dir"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`

	// Migration details; zero when no migration ran
	FromVersion int      `json:"from_version"`
	ToVersion   int      `json:"to_version"`
	Applied     []string `json:"applied,omitempty"`

	// Sync counters
	Removed    int `json:"removed"`
	Created    int `json:"created"`
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Journal records and lists runs.
type Journal interface {
	Record(ctx context.Context, run Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Noop discards every run.
type Noop struct{}

func (Noop) Record(context.Context, Run) error          { return nil }
func (Noop) Recent(context.Context, int) ([]Run, error) { return nil, nil }
func (Noop) Close() error                               { return nil }
