package sync

import (
	"time"

	"github.com/nubesync/nubesync/internal/planner"
)

// Request contains parameters for one sync run.
type Request struct {
	// OutDir is the local directory mirroring the remote folder
	OutDir string

	// Root is the normalized remote folder (see remote.NormalizeRoot)
	Root string

	// DryRun plans without touching the filesystem or the index
	DryRun bool
}

// Result contains the result of a sync run.
type Result struct {
	// Plan is the plan that was executed (or would be, for dry runs)
	Plan *planner.SyncPlan

	Removed    int
	Created    int
	Downloaded int

	// Bytes is the number of bytes downloaded
	Bytes int64

	// Failed is the key of the operation that stopped the run, if any
	Failed string

	DryRun   bool
	Duration time.Duration
}

// Skipped returns the number of black-listed keys.
func (r *Result) Skipped() int {
	if r.Plan == nil {
		return 0
	}
	return len(r.Plan.Skipped)
}

// Conflicts returns the number of keys that were not materialised.
func (r *Result) Conflicts() int {
	if r.Plan == nil {
		return 0
	}
	return len(r.Plan.Conflicts)
}

// ClearResult reports what Clear removed.
type ClearResult struct {
	OutDir  string
	Removed []string
}

// Status is a read-only summary of an output directory.
type Status struct {
	OutDir     string
	StatePath  string
	Exists     bool
	RemoteRoot string
	Files      int
	Dirs       int
	UpdatedAt  time.Time
}

// BackfillResult reports how many unknown modification times were filled.
type BackfillResult struct {
	Filled int

	// Missing counts entries with unknown times that are absent remotely
	Missing int
}
