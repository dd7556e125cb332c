// Package logging configures slog and defines the canonical log field names.
package logging

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID       = "run_id"
	KeyCommand     = "command"
	KeyStep        = "step"
	KeyFromVersion = "from_version"
	KeyToVersion   = "to_version"
	KeyStatePath   = "state_path"
	KeyRemote      = "remote"
	KeyKey         = "key"
	KeyPath        = "path"
	KeyOp          = "op"
	KeyAttempt     = "attempt"
	KeyDurationMS  = "duration_ms"
	KeyCount       = "count"
	KeyError       = "error"
)

func RunID(id string) slog.Attr     { return slog.String(KeyRunID, id) }
func Command(name string) slog.Attr { return slog.String(KeyCommand, name) }
func Step(name string) slog.Attr    { return slog.String(KeyStep, name) }
func FromVersion(v int) slog.Attr   { return slog.Int(KeyFromVersion, v) }
func ToVersion(v int) slog.Attr     { return slog.Int(KeyToVersion, v) }
func StatePath(p string) slog.Attr  { return slog.String(KeyStatePath, p) }
func Remote(r string) slog.Attr     { return slog.String(KeyRemote, r) }
func Key(k string) slog.Attr        { return slog.String(KeyKey, k) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Op(op string) slog.Attr        { return slog.String(KeyOp, op) }
func Attempt(n int) slog.Attr       { return slog.Int(KeyAttempt, n) }
func Count(n int) slog.Attr         { return slog.Int(KeyCount, n) }

// Duration records d in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(KeyDurationMS, d.Milliseconds())
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
