package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Hook subsystem metrics
var (
	// HookRunsTotal counts hook invocations by hook name
	HookRunsTotal *prometheus.CounterVec

	// HookDuration tracks how long each hook took
	HookDuration *prometheus.HistogramVec

	// RemovalsTotal counts removed paths by action and object type
	RemovalsTotal *prometheus.CounterVec

	// ErrorsTotal counts failed removals by hook
	ErrorsTotal *prometheus.CounterVec

	// MissingJobsTotal counts bound job names with no definition
	MissingJobsTotal *prometheus.CounterVec
)

func initHookMetrics() {
	HookRunsTotal = NewCounterVec(
		"cachecleanup_hook_runs_total",
		"Total number of lifecycle hook invocations.",
		[]string{"hook"},
	)

	HookDuration = NewDurationHistogramVec(
		"cachecleanup_hook_duration_seconds",
		"Duration of lifecycle hook cleanup passes in seconds.",
		[]string{"hook"},
	)

	RemovalsTotal = NewCounterVec(
		"cachecleanup_removals_total",
		"Total number of paths removed.",
		[]string{"action", "object"},
	)

	ErrorsTotal = NewCounterVec(
		"cachecleanup_errors_total",
		"Total number of removals that failed.",
		[]string{"hook"},
	)

	MissingJobsTotal = NewCounterVec(
		"cachecleanup_missing_jobs_total",
		"Total number of bound job names that have no definition.",
		[]string{"hook"},
	)
}

func registerHookMetrics() {
	Registry.MustRegister(HookRunsTotal)
	Registry.MustRegister(HookDuration)
	Registry.MustRegister(RemovalsTotal)
	Registry.MustRegister(ErrorsTotal)
	Registry.MustRegister(MissingJobsTotal)
}

// RecordHookRun counts one invocation of hook and its duration
func RecordHookRun(hook string, elapsed time.Duration) {
	HookRunsTotal.WithLabelValues(hook).Inc()
	HookDuration.WithLabelValues(hook).Observe(elapsed.Seconds())
}

// RecordRemoval counts one removed path
func RecordRemoval(action, object string) {
	RemovalsTotal.WithLabelValues(action, object).Inc()
}

// RecordError counts one failed removal
func RecordError(hook string) {
	ErrorsTotal.WithLabelValues(hook).Inc()
}

// RecordMissingJob counts one bound job name without a definition
func RecordMissingJob(hook string) {
	MissingJobsTotal.WithLabelValues(hook).Inc()
}
