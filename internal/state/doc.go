// Package state manages the persisted sync index (the state store).
//
// The index records every remote entry that has been materialised in the
// output directory together with the modification time it had on the
// server. It is persisted as a JSON file (".sync") inside the output
// directory and carries an explicit schema version and an integrity
// checksum.
//
// Key concepts:
//   - Index: the current-version state (schema CurrentVersion)
//   - Entry: one tracked file or directory, keyed by its remote key
//   - DetectVersion: recognises every historical on-disk shape
//   - FileStore: atomic raw and typed access plus the store's lock file
//
// Older shapes are never decoded here; they are brought forward by the
// migrate package before Load is called.
package state
