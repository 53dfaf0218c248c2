package hal

import (
	"context"
	"errors"
	"time"
)

// measureWorker serialises Trigger/Collect for every adaptor on one bus.
type measureWorker struct {
	cfg  WorkerConfig
	reqQ chan MeasureReq
	sink chan<- Result

	// Keyed by adaptor: a device re-added under the same id starts fresh.
	pending  map[Adaptor]*collectItem
	want     map[Adaptor]bool
	collects []*collectItem
	timer    *time.Timer
	done     <-chan struct{}
}

type collectItem struct {
	id      string
	adaptor Adaptor
	due     time.Time
	retries int
}

func NewWorker(cfg WorkerConfig, sink chan<- Result) *measureWorker {
	if cfg.TriggerTimeout <= 0 {
		cfg.TriggerTimeout = 100 * time.Millisecond
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 250 * time.Millisecond
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 6
	}
	if cfg.InputQueueSize <= 0 {
		cfg.InputQueueSize = 16
	}
	return &measureWorker{
		cfg:     cfg,
		reqQ:    make(chan MeasureReq, cfg.InputQueueSize),
		sink:    sink,
		pending: map[Adaptor]*collectItem{},
		want:    map[Adaptor]bool{},
		timer:   time.NewTimer(time.Hour),
	}
}

// Submit enqueues a request without blocking; a prio request waits briefly
// for room before giving up.
func (w *measureWorker) Submit(req MeasureReq) bool {
	select {
	case w.reqQ <- req:
		return true
	default:
		if req.Prio {
			select {
			case w.reqQ <- req:
				return true
			case <-time.After(5 * time.Millisecond):
			}
		}
		return false
	}
}

func (w *measureWorker) Start(ctx context.Context) {
	if !w.timer.Stop() {
		drainTimer(w.timer)
	}
	w.done = ctx.Done()
	go w.run(ctx)
}

func (w *measureWorker) run(ctx context.Context) {
	for {
		if next := w.minDue(); next.IsZero() {
			resetTimer(w.timer, time.Hour)
		} else {
			resetTimer(w.timer, time.Until(next))
		}

		select {
		case <-ctx.Done():
			return

		case req := <-w.reqQ:
			if _, ok := w.pending[req.Adaptor]; ok {
				// A read_now during an in-flight cycle re-triggers once it ends.
				if req.Prio {
					w.want[req.Adaptor] = true
				}
				continue
			}
			it := &collectItem{id: req.ID, adaptor: req.Adaptor}
			if err := w.trigger(ctx, it); err != nil {
				w.emit(Result{ID: req.ID, Adaptor: req.Adaptor, Err: err})
				continue
			}
			w.pending[req.Adaptor] = it
			w.collects = append(w.collects, it)

		case <-w.timer.C:
			w.collectDue(ctx, time.Now())
		}
	}
}

func (w *measureWorker) trigger(ctx context.Context, it *collectItem) error {
	tctx, cancel := context.WithTimeout(ctx, w.cfg.TriggerTimeout)
	after, err := it.adaptor.Trigger(tctx)
	cancel()
	if err != nil {
		return err
	}
	it.retries = 0
	it.due = time.Now().Add(after)
	return nil
}

func (w *measureWorker) collectDue(ctx context.Context, now time.Time) {
	var keep []*collectItem
	for _, it := range w.collects {
		if now.Before(it.due) {
			keep = append(keep, it)
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, w.cfg.CollectTimeout)
		s, err := it.adaptor.Collect(cctx)
		cancel()

		if errors.Is(err, ErrNotReady) && it.retries < w.cfg.MaxRetries {
			it.retries++
			it.due = now.Add(w.cfg.RetryBackoff)
			keep = append(keep, it)
			continue
		}

		delete(w.pending, it.adaptor)
		w.emit(Result{ID: it.id, Adaptor: it.adaptor, Sample: s, Err: err})

		if w.want[it.adaptor] {
			delete(w.want, it.adaptor)
			if terr := w.trigger(ctx, it); terr != nil {
				w.emit(Result{ID: it.id, Adaptor: it.adaptor, Err: terr})
				continue
			}
			w.pending[it.adaptor] = it
			keep = append(keep, it)
		}
	}
	w.collects = keep
}

func (w *measureWorker) emit(r Result) {
	select {
	case w.sink <- r:
	case <-w.done:
	}
}

func (w *measureWorker) minDue() time.Time {
	var min time.Time
	for _, it := range w.collects {
		if min.IsZero() || it.due.Before(min) {
			min = it.due
		}
	}
	return min
}
