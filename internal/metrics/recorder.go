package metrics

import "time"

// Outcome enumerates result labels for counters.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeNoop    Outcome = "noop"
	OutcomeFailed  Outcome = "failed"
	OutcomeRefused Outcome = "refused"
)

// Recorder defines observability hooks for migrations and syncs.
type Recorder interface {
	ObserveMigration(from, to int, d time.Duration, outcome Outcome)
	ObserveSync(d time.Duration, outcome Outcome)
	IncSyncOperation(op string, outcome Outcome)
	SetTrackedEntries(files, dirs int)
	IncRetry(operation string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveMigration(int, int, time.Duration, Outcome) {}
func (NoopRecorder) ObserveSync(time.Duration, Outcome)                {}
func (NoopRecorder) IncSyncOperation(string, Outcome)                  {}
func (NoopRecorder) SetTrackedEntries(int, int)                        {}
func (NoopRecorder) IncRetry(string)                                   {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
