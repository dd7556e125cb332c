package planner

import (
	"sort"
	"strings"

	"github.com/nubesync/nubesync/internal/remote"
	"github.com/nubesync/nubesync/internal/state"
)

// Options tune plan generation.
type Options struct {
	// BlackList patterns; a key containing any of them is not created or downloaded
	BlackList []string

	// Reserved top-level names that must never be written
	Reserved []string
}

// Classify computes the status of every key known locally or remotely.
func Classify(idx *state.Index, entries []remote.Entry) map[string]Status {
	statuses := make(map[string]Status, len(idx.Entries)+len(entries))
	for key := range idx.Entries {
		statuses[key] = StatusLocal
	}

	for _, e := range entries {
		local, ok := idx.Entries[e.Key]
		switch {
		case !ok:
			statuses[e.Key] = StatusServer
		case e.Dir:
			statuses[e.Key] = StatusSync
		case local.Modified == nil || !local.Modified.Equal(e.Modified):
			statuses[e.Key] = StatusOutOfDate
		default:
			statuses[e.Key] = StatusSync
		}
	}
	return statuses
}

// Build generates a deterministic plan that mirrors entries into the
// directory described by idx.
func Build(idx *state.Index, entries []remote.Entry, opts Options) *SyncPlan {
	plan := NewSyncPlan()
	checker := NewConflictChecker(opts.Reserved...)
	statuses := Classify(idx, entries)

	byKey := make(map[string]remote.Entry, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e
	}

	keys := make([]string, 0, len(statuses))
	for k := range statuses {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var removes, mkdirs, downloads []Operation
	for _, key := range keys {
		status := statuses[key]
		switch status {
		case StatusSync:
			plan.Unchanged++

		case StatusLocal:
			local := idx.Entries[key]
			removes = append(removes, Operation{
				Type:   OpRemove,
				Key:    key,
				Path:   local.Path,
				Dir:    local.Dir,
				Status: status,
			})

		case StatusServer, StatusOutOfDate:
			if pattern, ok := matchBlackList(key, opts.BlackList); ok {
				plan.Skipped = append(plan.Skipped, Skip{Key: key, Pattern: pattern})
				continue
			}
			if conflict := checker.CheckKey(key); conflict != nil {
				plan.AddConflict(*conflict)
				continue
			}

			e := byKey[key]
			op := Operation{
				Key:    key,
				Path:   strings.TrimSuffix(key, "/"),
				Dir:    e.Dir,
				Remote: e,
				Status: status,
			}
			if e.Dir {
				op.Type = OpMkdir
				mkdirs = append(mkdirs, op)
			} else {
				op.Type = OpDownload
				downloads = append(downloads, op)
			}
		}
	}

	// Children before parents, so a removed folder's entries go first.
	sort.Slice(removes, func(i, j int) bool { return removes[i].Key > removes[j].Key })

	for _, ops := range [][]Operation{removes, mkdirs, downloads} {
		for _, op := range ops {
			plan.AddOperation(op)
		}
	}
	return plan
}

// matchBlackList returns the first pattern contained in key.
func matchBlackList(key string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if p != "" && strings.Contains(key, p) {
			return p, true
		}
	}
	return "", false
}
