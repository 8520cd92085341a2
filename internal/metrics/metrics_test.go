package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordStep("jobA", "resolve", nil, 2*time.Second)
	RecordStep("jobB", "parse", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 || len(fb.callsHistograms) != 2 {
		t.Fatalf("calls = %d counters, %d histograms; want 2, 2", len(fb.callsCounters), len(fb.callsHistograms))
	}
	cc0 := fb.callsCounters[0]
	if cc0.name != StepTotal || cc0.delta != 1 || cc0.labels["status"] != "success" || cc0.labels["step"] != "resolve" {
		t.Fatalf("counter[0] = %#v", cc0)
	}
	if got := fb.callsCounters[1].labels["status"]; got != "failure" {
		t.Fatalf("counter[1].labels[status] = %q; want failure", got)
	}
	if h := fb.callsHistograms[1]; h.name != StepDurationSeconds || h.value != 1.5 {
		t.Fatalf("histogram[1] = %#v", h)
	}
}

func TestRecordRows_IgnoresNonPositive(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRows("job", "emitted", 0)
	RecordRows("job", "emitted", -3)
	RecordRows("job", "filtered", 4)

	if len(fb.callsCounters) != 1 {
		t.Fatalf("expected 1 counter call, got %d", len(fb.callsCounters))
	}
	c := fb.callsCounters[0]
	if c.name != RowsTotal || c.delta != 4 || c.labels["kind"] != "filtered" || c.labels["job"] != "job" {
		t.Fatalf("counter = %#v", c)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)
	if err := Flush(); err != nil || fb.flushCount != 1 {
		t.Fatalf("Flush() = %v, count = %d", err, fb.flushCount)
	}

	SetBackend(nil)
	if _, ok := backend.(nopBackend); !ok {
		t.Fatalf("SetBackend(nil) should restore the no-op backend, got %T", backend)
	}
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush() = %v", err)
	}
}
