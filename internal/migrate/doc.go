// Package migrate upgrades the state file of an output directory to the
// schema version this binary expects.
//
// A Registry holds one Step per source version. Steps are pure functions
// over raw state bytes: step N reads version N and produces version N+1.
// The Migrator computes a plan from the on-disk version to its target,
// takes the store lock, and persists the state atomically after every
// step, so an interrupted migration resumes from the last completed step.
//
// States newer than the target are refused without any write. Missing
// state is created fresh at the target version without running steps.
package migrate
