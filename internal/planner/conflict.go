package planner

import (
	"fmt"
	"strings"

	"github.com/nubesync/nubesync/internal/fsops"
)

// ConflictChecker rejects keys that cannot be written inside the output
// directory.
type ConflictChecker struct {
	reserved map[string]bool
}

// NewConflictChecker creates a ConflictChecker. Reserved names are
// top-level file names owned by nubesync itself (the state file, its lock
// and snapshots).
func NewConflictChecker(reserved ...string) *ConflictChecker {
	c := &ConflictChecker{reserved: make(map[string]bool, len(reserved))}
	for _, name := range reserved {
		c.reserved[name] = true
	}
	return c
}

// CheckKey returns a Conflict if key is unsafe to materialise, or nil.
func (c *ConflictChecker) CheckKey(key string) *Conflict {
	rel := strings.TrimSuffix(key, "/")
	if err := fsops.ValidateRelPath(rel); err != nil {
		return &Conflict{Key: key, Reason: fmt.Sprintf("Unsafe path: %v", err)}
	}
	if strings.Contains(rel, "\x00") {
		return &Conflict{Key: key, Reason: "Unsafe path: contains NUL byte"}
	}
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return &Conflict{Key: key, Reason: "Unsafe path: contains parent directory reference"}
		}
	}
	if c.IsReserved(rel) {
		return &Conflict{Key: key, Reason: "Name is reserved for the sync state"}
	}
	return nil
}

// IsReserved reports whether rel names a reserved top-level file.
func (c *ConflictChecker) IsReserved(rel string) bool {
	if strings.Contains(rel, "/") {
		return false
	}
	if c.reserved[rel] {
		return true
	}
	for name := range c.reserved {
		// Snapshots: "<state>.v<N>.bak"
		if strings.HasPrefix(rel, name+".v") && strings.HasSuffix(rel, ".bak") {
			return true
		}
	}
	return false
}
