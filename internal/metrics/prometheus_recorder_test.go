package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveMigration(0, 3, 20*time.Millisecond, OutcomeSuccess)
	pr.ObserveSync(500*time.Millisecond, OutcomeSuccess)
	pr.IncSyncOperation("download", OutcomeSuccess)
	pr.IncSyncOperation("download", OutcomeSuccess)
	pr.SetTrackedEntries(4, 2)
	pr.IncRetry("list")

	if got := testutil.ToFloat64(pr.migrations.WithLabelValues("0", "3", "success")); got != 1 {
		t.Errorf("migrations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pr.syncOperations.WithLabelValues("download", "success")); got != 2 {
		t.Errorf("sync_operations_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pr.trackedEntries.WithLabelValues("dir")); got != 2 {
		t.Errorf("tracked_entries{kind=dir} = %v, want 2", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.ObserveSync(time.Second, OutcomeFailed)

	path := filepath.Join(t.TempDir(), "nubesync.prom")
	if err := pr.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `nubesync_sync_outcomes_total{outcome="failed"} 1`) {
		t.Errorf("textfile missing sync outcome:\n%s", data)
	}
}

func TestNilPrometheusRecorder(t *testing.T) {
	var pr *PrometheusRecorder
	// Must not panic.
	pr.ObserveSync(time.Second, OutcomeSuccess)
	pr.IncRetry("open")
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopRecorder); !ok {
		t.Error("expected NoopRecorder for nil input")
	}
	pr := NewPrometheusRecorder(nil)
	if OrNoop(pr) != Recorder(pr) {
		t.Error("expected recorder to be returned unchanged")
	}
}
