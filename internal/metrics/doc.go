// Package metrics records migration and sync observations.
//
// The Recorder interface is injected into the migrator and the sync engine.
// NoopRecorder is the default; PrometheusRecorder collects into a private
// registry that the CLI dumps to a node_exporter textfile after each run.
package metrics
