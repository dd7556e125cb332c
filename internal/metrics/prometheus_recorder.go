package metrics

import (
	"fmt"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg               *prom.Registry
	migrationDuration *prom.HistogramVec
	migrations        *prom.CounterVec
	syncDuration      prom.Histogram
	syncOutcomes      *prom.CounterVec
	syncOperations    *prom.CounterVec
	trackedEntries    *prom.GaugeVec
	retries           *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the nubesync metrics on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		migrationDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "nubesync",
			Name:      "migration_duration_seconds",
			Help:      "Duration of state migrations",
			Buckets:   prom.DefBuckets,
		}, []string{"outcome"}),
		migrations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nubesync",
			Name:      "migrations_total",
			Help:      "State migrations by source version, target version and outcome",
		}, []string{"from", "to", "outcome"}),
		syncDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "nubesync",
			Name:      "sync_duration_seconds",
			Help:      "Total sync duration",
			Buckets:   prom.DefBuckets,
		}),
		syncOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nubesync",
			Name:      "sync_outcomes_total",
			Help:      "Sync runs by final status",
		}, []string{"outcome"}),
		syncOperations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nubesync",
			Name:      "sync_operations_total",
			Help:      "Individual sync operations by kind and outcome",
		}, []string{"op", "outcome"}),
		trackedEntries: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "nubesync",
			Name:      "tracked_entries",
			Help:      "Entries tracked by the state index after the last run",
		}, []string{"kind"}),
		retries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nubesync",
			Name:      "retries_total",
			Help:      "Retried remote operations (transient failures)",
		}, []string{"operation"}),
	}
	reg.MustRegister(pr.migrationDuration, pr.migrations, pr.syncDuration, pr.syncOutcomes,
		pr.syncOperations, pr.trackedEntries, pr.retries)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

func (p *PrometheusRecorder) ObserveMigration(from, to int, d time.Duration, outcome Outcome) {
	if p == nil {
		return
	}
	p.migrationDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
	p.migrations.WithLabelValues(strconv.Itoa(from), strconv.Itoa(to), string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveSync(d time.Duration, outcome Outcome) {
	if p == nil {
		return
	}
	p.syncDuration.Observe(d.Seconds())
	p.syncOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncSyncOperation(op string, outcome Outcome) {
	if p == nil {
		return
	}
	p.syncOperations.WithLabelValues(op, string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetTrackedEntries(files, dirs int) {
	if p == nil {
		return
	}
	p.trackedEntries.WithLabelValues("file").Set(float64(files))
	p.trackedEntries.WithLabelValues("dir").Set(float64(dirs))
}

func (p *PrometheusRecorder) IncRetry(operation string) {
	if p == nil {
		return
	}
	p.retries.WithLabelValues(operation).Inc()
}

// WriteTextfile writes the current metric values in the node_exporter
// textfile format. The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
