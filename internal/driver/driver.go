// Package driver runs a suite of test files one interpreter process per
// file, sequentially, collecting a per-file pass/fail outcome.
package driver

import (
	"context"
	"fmt"
	"log"
	"time"

	"suitedriver/internal/console"
	"suitedriver/internal/discover"
	"suitedriver/internal/metrics"
	"suitedriver/internal/pyenv"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Invocation is the outcome of running one test file.
type Invocation struct {
	File     string
	ExitCode int           // -1 when the process could not be launched
	Err      error         // launch error; nil for clean runs and ordinary failures
	Output   string        // combined stdout/stderr, as emitted
	Duration time.Duration
}

// Failed reports whether this file counts against the suite.
func (i Invocation) Failed() bool {
	return i.ExitCode != 0 || i.Err != nil
}

// CouldNotRun distinguishes "could not be launched" from "ran and failed".
func (i Invocation) CouldNotRun() bool {
	return i.Err != nil
}

// Report is the outcome of one whole test run.
type Report struct {
	RunID       string
	Started     time.Time
	Elapsed     time.Duration
	Invocations []Invocation
}

func (r *Report) Passed() int {
	n := 0
	for _, inv := range r.Invocations {
		if !inv.Failed() {
			n++
		}
	}
	return n
}

func (r *Report) Failed() int {
	return len(r.Invocations) - r.Passed()
}

// OK reports whether every invocation exited zero. An empty suite is OK.
func (r *Report) OK() bool {
	return r.Failed() == 0
}

// NewRunID returns a fresh ULID identifying one operation run.
func NewRunID() string {
	return ulid.Make().String()
}

// Metrics interface for driver metrics
type Metrics interface {
	InvocationsTotal() prometheus.Counter
	InvocationFailuresTotal() prometheus.Counter
	LaunchErrorsTotal() prometheus.Counter
	SuiteDuration() prometheus.Histogram
	InvocationDuration() prometheus.Histogram
}

// driverMetrics wraps global metrics to implement Metrics interface
type driverMetrics struct{}

func (driverMetrics) InvocationsTotal() prometheus.Counter        { return metrics.InvocationsTotal }
func (driverMetrics) InvocationFailuresTotal() prometheus.Counter { return metrics.InvocationFailuresTotal }
func (driverMetrics) LaunchErrorsTotal() prometheus.Counter       { return metrics.LaunchErrorsTotal }
func (driverMetrics) SuiteDuration() prometheus.Histogram         { return metrics.SuiteDuration }
func (driverMetrics) InvocationDuration() prometheus.Histogram    { return metrics.InvocationDuration }

// Driver discovers test files and invokes the interpreter once per file.
type Driver struct {
	logger  *log.Logger
	out     *console.Printer
	invoker Invoker
	metrics Metrics
}

// New creates a Driver invoking real interpreter processes, with an
// optional per-invocation timeout (0 = none).
func New(logger *log.Logger, out *console.Printer, timeout time.Duration) *Driver {
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{
		logger:  logger,
		out:     out,
		invoker: execInvoker{timeout: timeout},
		metrics: driverMetrics{},
	}
}

// SetInvoker swaps the process backend, used by tests to script exit codes
// without spawning children.
func (d *Driver) SetInvoker(i Invoker) {
	d.invoker = i
}

// RunAll discovers the test files in dir matching pattern and invokes the
// environment's interpreter once per file, sequentially, in discovery
// order. One file's failure never stops the remaining files. A nil error
// with a failing report means the suite ran to completion; an error means
// discovery, environment acquisition, or cancellation stopped the run.
//
// Zero discovered files is a warning plus success: the environment is not
// acquired and no process is spawned.
func (d *Driver) RunAll(ctx context.Context, dir, pattern string, env *pyenv.Environment) (*Report, error) {
	files, err := discover.Files(dir, pattern)
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: NewRunID(), Started: time.Now()}

	if len(files) == 0 {
		d.logger.Printf("WARN: no test files matching %q under %s", pattern, dir)
		d.out.NoTests(dir, pattern)
		return report, nil
	}

	active, err := env.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring environment: %w", err)
	}
	defer active.Release()

	d.logger.Printf("run %s: %d test files, interpreter %s", report.RunID, len(files), active.Interpreter())

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(report.Started)
			return report, err
		}

		inv := d.invoker.Invoke(ctx, active.Interpreter(), active.Environ(), file)
		report.Invocations = append(report.Invocations, inv)

		d.metrics.InvocationsTotal().Inc()
		d.metrics.InvocationDuration().Observe(inv.Duration.Seconds())

		switch {
		case inv.CouldNotRun():
			d.logger.Printf("ERROR: %s: %v", file, inv.Err)
			d.out.Error(file, inv.Err)
			d.metrics.LaunchErrorsTotal().Inc()
		case inv.Failed():
			d.logger.Printf("FAIL: %s (exit %d)", file, inv.ExitCode)
			d.out.Fail(file, inv.ExitCode, inv.Duration, inv.Output)
			d.metrics.InvocationFailuresTotal().Inc()
		default:
			d.out.Pass(file, inv.Duration)
		}
	}

	report.Elapsed = time.Since(report.Started)
	d.metrics.SuiteDuration().Observe(report.Elapsed.Seconds())
	d.out.Summary(report.RunID, report.Passed(), report.Failed(), report.Elapsed)
	d.logger.Printf("run %s: %d passed, %d failed in %s",
		report.RunID, report.Passed(), report.Failed(), report.Elapsed.Round(time.Millisecond))

	return report, nil
}
