// Package metrics provides a small, backend-agnostic abstraction for recording
// parse metrics.
//
// It exposes a narrow Backend interface (counters and durations) and a global,
// pluggable backend that defaults to a no-op, so instrumentation is always
// safe to call. Concrete metric systems live in subpackages (see prompush).
package metrics

import "time"

// Metric names emitted by this package.
const (
	RowsTotal           = "typedcsv_rows_total"
	StepTotal           = "typedcsv_step_total"
	StepDurationSeconds = "typedcsv_step_duration_seconds"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil restores the no-op
// backend. It is not safe to call concurrently with recording.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency and success/failure of one parse step
// ("resolve", "parse").
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows adds delta rows of the given kind. Kinds used by the pipeline:
//   - "read"
//   - "skipped"
//   - "filtered"
//   - "malformed"
//   - "emitted"
//   - "loaded"
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}
