package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	// RunsTotal counts completed operations by name and result
	RunsTotal *prometheus.CounterVec

	// InvocationsTotal counts interpreter invocations (one per test file)
	InvocationsTotal prometheus.Counter

	// InvocationFailuresTotal counts invocations that exited non-zero
	InvocationFailuresTotal prometheus.Counter

	// LaunchErrorsTotal counts invocations that could not be started at all
	LaunchErrorsTotal prometheus.Counter

	// FilesSweptTotal counts artifacts deleted by clean
	FilesSweptTotal prometheus.Counter

	// BytesFreedTotal tracks bytes reclaimed by clean
	BytesFreedTotal prometheus.Counter

	// ErrorsTotal counts runtime errors across both operations
	ErrorsTotal prometheus.Counter

	// SuiteDuration observes wall time of a whole test run
	SuiteDuration prometheus.Histogram

	// InvocationDuration observes wall time of single invocations
	InvocationDuration prometheus.Histogram
)

// Init initializes and registers all metrics with Prometheus.
// Safe to call multiple times (uses sync.Once).
func Init() {
	initOnce.Do(func() {
		RunsTotal = NewCounterVec(
			"suitedriver_runs_total",
			"Completed suitedriver operations by operation name and result.",
			[]string{"operation", "result"},
		)
		InvocationsTotal = NewCounter(
			"suitedriver_invocations_total",
			"Interpreter invocations performed, one per discovered test file.",
		)
		InvocationFailuresTotal = NewCounter(
			"suitedriver_invocation_failures_total",
			"Test file invocations that exited with a non-zero status.",
		)
		LaunchErrorsTotal = NewCounter(
			"suitedriver_launch_errors_total",
			"Test file invocations that could not be launched.",
		)
		FilesSweptTotal = NewCounter(
			"suitedriver_files_swept_total",
			"Generated artifacts deleted by the clean operation.",
		)
		BytesFreedTotal = NewBytesCounter(
			"suitedriver_bytes_freed_total",
			"Bytes reclaimed by the clean operation.",
		)
		ErrorsTotal = NewCounter(
			"suitedriver_errors_total",
			"Runtime errors encountered by suitedriver.",
		)
		SuiteDuration = NewDurationHistogram(
			"suitedriver_suite_duration_seconds",
			"Wall-clock duration of a whole test run.",
		)
		InvocationDuration = NewDurationHistogram(
			"suitedriver_invocation_duration_seconds",
			"Wall-clock duration of single interpreter invocations.",
		)

		prometheus.MustRegister(
			RunsTotal,
			InvocationsTotal,
			InvocationFailuresTotal,
			LaunchErrorsTotal,
			FilesSweptTotal,
			BytesFreedTotal,
			ErrorsTotal,
			SuiteDuration,
			InvocationDuration,
		)
	})
}
