package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetricsInit verifies that Init() is idempotent and creates every metric
func TestMetricsInit(t *testing.T) {
	// Call Init multiple times - should be idempotent via sync.Once
	Init()
	Init()
	Init()

	if HookRunsTotal == nil {
		t.Error("HookRunsTotal should be initialized")
	}
	if HookDuration == nil {
		t.Error("HookDuration should be initialized")
	}
	if RemovalsTotal == nil {
		t.Error("RemovalsTotal should be initialized")
	}
	if ErrorsTotal == nil {
		t.Error("ErrorsTotal should be initialized")
	}
	if MissingJobsTotal == nil {
		t.Error("MissingJobsTotal should be initialized")
	}
}

// TestHookMetricHelpers verifies each helper moves the right series
func TestHookMetricHelpers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(HookRunsTotal.WithLabelValues("beforeTest"))
	RecordHookRun("beforeTest", 3*time.Millisecond)
	if got := testutil.ToFloat64(HookRunsTotal.WithLabelValues("beforeTest")); got != before+1 {
		t.Errorf("hook runs = %v, expected %v", got, before+1)
	}

	before = testutil.ToFloat64(RemovalsTotal.WithLabelValues("empty", "file"))
	RecordRemoval("empty", "file")
	RecordRemoval("empty", "file")
	if got := testutil.ToFloat64(RemovalsTotal.WithLabelValues("empty", "file")); got != before+2 {
		t.Errorf("removals = %v, expected %v", got, before+2)
	}

	before = testutil.ToFloat64(ErrorsTotal.WithLabelValues("afterSuite"))
	RecordError("afterSuite")
	if got := testutil.ToFloat64(ErrorsTotal.WithLabelValues("afterSuite")); got != before+1 {
		t.Errorf("errors = %v, expected %v", got, before+1)
	}

	before = testutil.ToFloat64(MissingJobsTotal.WithLabelValues("afterTest"))
	RecordMissingJob("afterTest")
	if got := testutil.ToFloat64(MissingJobsTotal.WithLabelValues("afterTest")); got != before+1 {
		t.Errorf("missing jobs = %v, expected %v", got, before+1)
	}
}

// TestRegistryGather verifies recorded metrics are exposed by Registry
func TestRegistryGather(t *testing.T) {
	Init()
	RecordHookRun("afterTest", time.Millisecond)
	RecordRemoval("delete", "directory")
	RecordError("afterTest")
	RecordMissingJob("afterTest")

	mfs, err := Registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expectedMetrics := []string{
		"cachecleanup_hook_runs_total",
		"cachecleanup_hook_duration_seconds",
		"cachecleanup_removals_total",
		"cachecleanup_errors_total",
		"cachecleanup_missing_jobs_total",
	}

	foundMetrics := make(map[string]bool)
	for _, mf := range mfs {
		foundMetrics[mf.GetName()] = true
	}

	for _, expected := range expectedMetrics {
		if !foundMetrics[expected] {
			t.Errorf("Expected metric %s not found in registry", expected)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	Init()
	RecordRemoval("delete", "file")

	path := filepath.Join(t.TempDir(), "cachecleanup.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `cachecleanup_removals_total{action="delete",object="file"}`) {
		t.Errorf("textfile missing removals series:\n%s", data)
	}
}

// TestStandardBuckets verifies the duration buckets are strictly increasing
func TestStandardBuckets(t *testing.T) {
	for i := 1; i < len(DurationBuckets); i++ {
		if DurationBuckets[i] <= DurationBuckets[i-1] {
			t.Errorf("Duration bucket[%d]=%v not above bucket[%d]=%v", i, DurationBuckets[i], i-1, DurationBuckets[i-1])
		}
	}
}
