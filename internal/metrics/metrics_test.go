package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type fakeBackend struct {
	mu       sync.Mutex
	counters []counterCall
	hists    []counterCall
	flushes  int
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hists = append(f.hists, counterCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.flushes++
	return nil
}

func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := current()
	t.Cleanup(func() { SetBackend(orig) })
	fb := &fakeBackend{}
	SetBackend(fb)
	return fb
}

func TestRecordStep(t *testing.T) {
	fb := install(t)

	RecordStep("itvetl", "read", nil, 2*time.Second)
	RecordStep("itvetl", "load", errors.New("boom"), 500*time.Millisecond)

	require.Len(t, fb.counters, 2)
	require.Len(t, fb.hists, 2)
	assert.Equal(t, counterCall{StepTotal, 1, Labels{"job": "itvetl", "step": "read", "status": "success"}}, fb.counters[0])
	assert.Equal(t, "failure", fb.counters[1].labels["status"])
	assert.Equal(t, 0.5, fb.hists[1].delta)
}

func TestRecordRecordsSkipsZero(t *testing.T) {
	fb := install(t)

	RecordRecords("itvetl", "CV", "loaded", 0)
	RecordRecords("itvetl", "CV", "loaded", 12)

	require.Len(t, fb.counters, 1)
	assert.Equal(t, 12.0, fb.counters[0].delta)
	assert.Equal(t, "CV", fb.counters[0].labels["source"])
}

func TestRecordGeocodeAndFlush(t *testing.T) {
	fb := install(t)

	RecordGeocode("cached")
	require.NoError(t, Flush())

	assert.Equal(t, GeocodeTotal, fb.counters[0].name)
	assert.Equal(t, 1, fb.flushes)
}

func TestSetBackendNilKeepsCurrent(t *testing.T) {
	fb := install(t)
	SetBackend(nil)
	assert.Same(t, fb, current())
}
