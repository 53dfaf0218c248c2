package hal

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"bme280-go/types"
)

// fakeAdaptor implements the generic Adaptor interface.
// It returns ErrNotReady for the first `collectsTill` Collect() calls, then succeeds.
type fakeAdaptor struct {
	id           string
	after        time.Duration
	collectsTill atomic.Int32 // number of ErrNotReady before success
	triggerErr   error
	triggers     atomic.Int32
	collects     atomic.Int32
}

func (f *fakeAdaptor) ID() string              { return f.id }
func (f *fakeAdaptor) Capabilities() []CapInfo { return nil }
func (f *fakeAdaptor) Trigger(ctx context.Context) (time.Duration, error) {
	f.triggers.Add(1)
	if f.triggerErr != nil {
		return 0, f.triggerErr
	}
	return f.after, nil
}
func (f *fakeAdaptor) Collect(ctx context.Context) (Sample, error) {
	if f.collects.Add(1) <= f.collectsTill.Load() {
		return nil, ErrNotReady
	}
	ts := time.Now().UnixMilli()
	return Sample{
		{Kind: types.KindTemperature, Payload: types.TemperatureValue{CentiC: 2500, DeciC: 250, TS: ts}, TsMs: ts},
		{Kind: types.KindHumidity, Payload: types.HumidityValue{RHx1024: 56320, RHx100: 5500, TS: ts}, TsMs: ts},
	}, nil
}
func (f *fakeAdaptor) Control(kind types.Kind, method string, payload any) (any, error) {
	return nil, ErrUnsupported
}

func startWorker(t *testing.T, cfg WorkerConfig) (*measureWorker, chan Result) {
	t.Helper()
	results := make(chan Result, 8)
	w := NewWorker(cfg, results)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w.Start(ctx)
	return w, results
}

func TestWorker_SuccessWithRetries(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{
		TriggerTimeout: 50 * time.Millisecond,
		CollectTimeout: 50 * time.Millisecond,
		RetryBackoff:   2 * time.Millisecond,
		MaxRetries:     5,
	})

	ad := &fakeAdaptor{id: "dev1", after: 1 * time.Millisecond}
	ad.collectsTill.Store(2)
	if ok := w.Submit(MeasureReq{ID: ad.id, Adaptor: ad}); !ok {
		t.Fatal("submit failed")
	}

	select {
	case r := <-results:
		if r.Err != nil {
			t.Fatalf("unexpected error: %v", r.Err)
		}
		temp, ok := findReading(r.Sample, types.KindTemperature).(types.TemperatureValue)
		if !ok || temp.DeciC != 250 {
			t.Fatalf("bad temperature: %#v", r.Sample)
		}
		hum, ok := findReading(r.Sample, types.KindHumidity).(types.HumidityValue)
		if !ok || hum.RHx100 != 5500 {
			t.Fatalf("bad humidity: %#v", r.Sample)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for result")
	}
	if got := ad.collects.Load(); got != 3 {
		t.Fatalf("collects = %d, want 3", got)
	}
}

func TestWorker_RetryLimitFailure(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{RetryBackoff: 1 * time.Millisecond, MaxRetries: 2})

	ad := &fakeAdaptor{id: "dev2", after: 1 * time.Millisecond}
	ad.collectsTill.Store(10)
	if ok := w.Submit(MeasureReq{ID: ad.id, Adaptor: ad}); !ok {
		t.Fatal("submit failed")
	}

	select {
	case r := <-results:
		if !errors.Is(r.Err, ErrNotReady) {
			t.Fatalf("expected ErrNotReady after exhausting retries, got %v", r.Err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for failure result")
	}
}

func TestWorker_TriggerErrorIsReported(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{})

	boom := errors.New("boom")
	ad := &fakeAdaptor{id: "dev4", triggerErr: boom}
	w.Submit(MeasureReq{ID: ad.id, Adaptor: ad})

	select {
	case r := <-results:
		if r.ID != "dev4" || !errors.Is(r.Err, boom) {
			t.Fatalf("result = %+v", r)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for trigger error")
	}
	if ad.collects.Load() != 0 {
		t.Fatal("collect ran after a failed trigger")
	}
}

func TestWorker_CoalescingAndReadNowDesire(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{
		RetryBackoff: 1 * time.Millisecond,
		MaxRetries:   1, // force a quick collect failure
	})

	// The first cycle fails (ErrNotReady twice, one retry allowed).
	ad := &fakeAdaptor{id: "dev3", after: 5 * time.Millisecond}
	ad.collectsTill.Store(2)

	if ok := w.Submit(MeasureReq{ID: ad.id, Adaptor: ad}); !ok {
		t.Fatal("submit failed")
	}
	// While pending, a priority request sets the desire flag and a plain one
	// is coalesced away.
	_ = w.Submit(MeasureReq{ID: ad.id, Adaptor: ad, Prio: true})
	_ = w.Submit(MeasureReq{ID: ad.id, Adaptor: ad})

	select {
	case r := <-results:
		if r.Err == nil {
			t.Fatal("expected error on first cycle")
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for first failure")
	}

	select {
	case r := <-results:
		if r.Err != nil {
			t.Fatalf("unexpected second error: %v", r.Err)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for success after desire re-trigger")
	}
	if got := ad.triggers.Load(); got != 2 {
		t.Fatalf("expected 2 triggers, got %d", got)
	}
}

func TestWorker_ReplacedAdaptorSameID(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{})

	old := &fakeAdaptor{id: "dev6", after: 40 * time.Millisecond}
	repl := &fakeAdaptor{id: "dev6", after: 1 * time.Millisecond}
	if !w.Submit(MeasureReq{ID: "dev6", Adaptor: old}) {
		t.Fatal("submit old failed")
	}
	if !w.Submit(MeasureReq{ID: "dev6", Adaptor: repl}) {
		t.Fatal("submit replacement failed")
	}

	// The replacement is not coalesced into the old cycle and finishes first.
	for i, want := range []*fakeAdaptor{repl, old} {
		select {
		case r := <-results:
			if r.Err != nil || r.Adaptor != Adaptor(want) {
				t.Fatalf("result %d = %+v", i, r)
			}
		case <-time.After(300 * time.Millisecond):
			t.Fatalf("timeout waiting for result %d", i)
		}
	}
	if old.triggers.Load() != 1 || repl.triggers.Load() != 1 {
		t.Fatalf("triggers old=%d repl=%d", old.triggers.Load(), repl.triggers.Load())
	}
}

func TestWorker_SubmitQueueFull(t *testing.T) {
	// Not started: nothing drains the queue.
	w := NewWorker(WorkerConfig{InputQueueSize: 1}, make(chan Result, 1))
	ad := &fakeAdaptor{id: "dev5"}
	if !w.Submit(MeasureReq{ID: ad.id, Adaptor: ad}) {
		t.Fatal("first submit should fit")
	}
	if w.Submit(MeasureReq{ID: ad.id, Adaptor: ad}) {
		t.Fatal("second submit should be rejected")
	}
	if w.Submit(MeasureReq{ID: ad.id, Adaptor: ad, Prio: true}) {
		t.Fatal("prio submit should give up on a full queue")
	}
}

// -------- helpers --------

func findReading(s Sample, kind types.Kind) any {
	for _, r := range s {
		if r.Kind == kind {
			return r.Payload
		}
	}
	return nil
}
