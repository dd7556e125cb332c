// Package planner handles the planning phase of a sync.
//
// The planner compares the state index with a remote listing and generates
// a deterministic plan: removals first (deepest paths first), then folder
// creations (parents first), then downloads. It never touches the
// filesystem or the network.
//
// Key responsibilities:
//   - Classify every key as local-only, server-only, out of date or in sync
//   - Skip black-listed keys for creations and downloads
//   - Report keys that cannot be materialised safely as conflicts
package planner
