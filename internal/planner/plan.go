package planner

import "github.com/nubesync/nubesync/internal/remote"

// Status is the sync status of one key.
type Status int

const (
	// StatusSync means the local copy matches the server.
	StatusSync Status = iota
	// StatusLocal means the key is only in the index.
	StatusLocal
	// StatusServer means the key is only on the server.
	StatusServer
	// StatusOutOfDate means the server copy changed since the download.
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusLocal:
		return "local"
	case StatusServer:
		return "server"
	case StatusOutOfDate:
		return "out_of_date"
	default:
		return "sync"
	}
}

// SyncPlan represents a plan to bring an output directory in line with
// the server.
type SyncPlan struct {
	// Operations is the ordered list of operations to execute
	Operations []Operation

	// Skipped lists keys left alone because they are black-listed
	Skipped []Skip

	// Conflicts is a list of keys that cannot be materialised safely
	Conflicts []Conflict

	// Unchanged counts keys already in sync
	Unchanged int
}

// Operation represents a single filesystem operation to execute.
type Operation struct {
	// Type is the operation type: "remove", "mkdir", "download"
	Type string

	// Key is the remote key the operation is about
	Key string

	// Path is the slash-separated path relative to the output directory
	Path string

	// Dir is true when the operation targets a folder
	Dir bool

	// Remote is the server entry (zero for removals)
	Remote remote.Entry

	// Status is why the operation was planned
	Status Status
}

// Skip records a black-listed key.
type Skip struct {
	Key     string
	Pattern string
}

// Conflict represents a conflict detected during planning.
type Conflict struct {
	// Key is the remote key that could not be planned
	Key string

	// Reason is a human-readable explanation of the conflict
	Reason string
}

// Operation type constants
const (
	OpRemove   = "remove"
	OpMkdir    = "mkdir"
	OpDownload = "download"
)

// NewSyncPlan creates a new empty SyncPlan.
func NewSyncPlan() *SyncPlan {
	return &SyncPlan{
		Operations: []Operation{},
		Skipped:    []Skip{},
		Conflicts:  []Conflict{},
	}
}

// HasConflicts returns true if the plan has any conflicts.
func (p *SyncPlan) HasConflicts() bool {
	return len(p.Conflicts) > 0
}

// Empty returns true if the plan has no operations.
func (p *SyncPlan) Empty() bool {
	return len(p.Operations) == 0
}

// AddOperation adds an operation to the plan.
func (p *SyncPlan) AddOperation(op Operation) {
	p.Operations = append(p.Operations, op)
}

// AddConflict adds a conflict to the plan.
func (p *SyncPlan) AddConflict(conflict Conflict) {
	p.Conflicts = append(p.Conflicts, conflict)
}

// Counts returns the number of operations per type.
func (p *SyncPlan) Counts() (removes, mkdirs, downloads int) {
	for _, op := range p.Operations {
		switch op.Type {
		case OpRemove:
			removes++
		case OpMkdir:
			mkdirs++
		case OpDownload:
			downloads++
		}
	}
	return removes, mkdirs, downloads
}
