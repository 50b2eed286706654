// Package metrics records operational metrics for load runs behind a small
// Backend interface. The default backend is a no-op, so instrumentation is
// always safe to call; concrete systems live in subpackages.
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names shared by every backend.
const (
	StepTotal    = "itv_step_total"
	StepDuration = "itv_step_duration_seconds"
	RecordsTotal = "itv_records_total"
	GeocodeTotal = "itv_geocode_lookups_total"
)

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of a pipeline step and observes its
// latency, labelled with success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRecords adds delta to the per-source record counter. Kinds are
// "read", "loaded", "repaired" and "discarded".
func RecordRecords(job, source, kind string, delta int) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{
		"job":    job,
		"source": source,
		"kind":   kind,
	})
}

// RecordGeocode counts one geocoding lookup by result: "hit", "miss",
// "error" or "cached".
func RecordGeocode(result string) {
	current().IncCounter(GeocodeTotal, 1, Labels{"result": result})
}
