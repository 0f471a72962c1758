package tpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ygrebnov/errorc"
)

// WaitResult tells a wait callback why it fired.
type WaitResult int

const (
	WaitSignaled WaitResult = iota
	WaitTimeout
)

func (r WaitResult) String() string {
	switch r {
	case WaitSignaled:
		return "signaled"
	case WaitTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// WaitCallback is invoked once per fired wait.
type WaitCallback func(ci *CallbackInstance, result WaitResult)

// WaitWorkItem fires its callback once per ScheduleWait: when the handle is
// signaled or when the due time passes, whichever comes first.
type WaitWorkItem struct {
	*core
	callback WaitCallback

	mu     sync.Mutex
	gen    uint64
	armed  bool
	cancel context.CancelFunc
}

func newWaitWorkItem(cb WaitCallback, env CallbackEnvironment) (*WaitWorkItem, error) {
	if cb == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("callback", "nil"))
	}
	w := &WaitWorkItem{callback: cb}
	c, err := newCore(KindWait, env, w, w.disarm)
	if err != nil {
		return nil, err
	}
	w.core = c
	return w, nil
}

// ScheduleWait arms a one-shot wait on h, replacing a pending one.
func (w *WaitWorkItem) ScheduleWait(h Waitable, due Due) error {
	if h == nil {
		return errorc.With(ErrInvalidConfig, errorc.String("handle", "nil"))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.admit(func() {}); err != nil {
		return err
	}
	w.disarmLocked()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if due.IsInfinite() {
		ctx, cancel = context.WithCancel(context.Background())
	} else {
		ctx, cancel = context.WithDeadline(context.Background(), due.resolve(time.Now()))
	}
	w.armed = true
	w.cancel = cancel
	go w.await(ctx, cancel, w.gen, h)
	return nil
}

// IsArmed reports whether a wait is pending.
func (w *WaitWorkItem) IsArmed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed
}

// Join waits for dispatched callbacks. A pending wait stays armed.
func (w *WaitWorkItem) Join() {
	w.calls.wait()
}

// CancelAndJoin removes the pending wait, drops dispatched callbacks that have
// not started and waits for the rest. A signal the handle gave to the wait
// just before it was removed is consumed without a callback; Event and
// Semaphore only lose such a signal if it was handed over before the
// cancellation was observed.
func (w *WaitWorkItem) CancelAndJoin() {
	w.disarm()
	w.cancelQueued()
	w.calls.wait()
}

// Close disarms, joins and releases the wait. It is idempotent.
func (w *WaitWorkItem) Close() {
	w.lc.Close()
}

func (w *WaitWorkItem) disarm() {
	w.mu.Lock()
	w.disarmLocked()
	w.mu.Unlock()
}

func (w *WaitWorkItem) disarmLocked() {
	w.gen++
	w.armed = false
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func (w *WaitWorkItem) await(ctx context.Context, cancel context.CancelFunc, gen uint64, h Waitable) {
	err := h.Wait(ctx)
	cancel()

	var result WaitResult
	switch {
	case err == nil:
		result = WaitSignaled
	case errors.Is(err, context.DeadlineExceeded):
		result = WaitTimeout
	case errors.Is(err, context.Canceled):
		return
	default:
		w.tp.logger.Warn("wait failed", "id", w.id, "error", err)
		w.mu.Lock()
		if gen == w.gen {
			w.armed = false
			w.cancel = nil
		}
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	if gen != w.gen || !w.armed {
		w.mu.Unlock()
		return
	}
	w.armed = false
	w.cancel = nil
	err = w.admit(w.calls.enqueue)
	w.mu.Unlock()
	if err != nil {
		return
	}

	cb := w.callback
	if err := w.submit(w, func(ci *CallbackInstance) { cb(ci, result) }); err != nil {
		w.tp.logger.Warn("wait completion dropped", "id", w.id, "result", result, "error", err)
	}
}
