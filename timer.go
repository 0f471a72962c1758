package tpool

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ygrebnov/errorc"
)

// TimerWorkItem invokes its callback when a due time is reached, and then
// every period if one is set. Firings of a periodic timer are not serialized:
// a callback that outlasts the period overlaps with the next firing.
type TimerWorkItem struct {
	*core
	callback WorkCallback

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	armed  bool
	next   time.Time
	period time.Duration
	window time.Duration
}

func newTimerWorkItem(cb WorkCallback, env CallbackEnvironment) (*TimerWorkItem, error) {
	if cb == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("callback", "nil"))
	}
	t := &TimerWorkItem{callback: cb}
	c, err := newCore(KindTimer, env, t, t.disarm)
	if err != nil {
		return nil, err
	}
	t.core = c
	return t, nil
}

// Schedule arms the timer, replacing any previous schedule. A period > 0 makes
// it recurring. window lets each firing be delayed by up to window so that
// nearby expirations coalesce. An infinite due time only disarms.
func (t *TimerWorkItem) Schedule(due Due, period, window time.Duration) error {
	if period < 0 || window < 0 {
		return errorc.With(ErrInvalidConfig,
			errorc.String("period", period.String()), errorc.String("window", window.String()))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.admit(func() {}); err != nil {
		return err
	}
	t.disarmLocked()
	if due.IsInfinite() {
		return nil
	}

	now := time.Now()
	t.next = due.resolve(now)
	t.period = period
	t.window = window
	t.armed = true
	t.armLocked(now)
	return nil
}

// IsSet reports whether the timer is armed.
func (t *TimerWorkItem) IsSet() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// Join disarms the timer and waits for callbacks already dispatched.
func (t *TimerWorkItem) Join() {
	t.disarm()
	t.calls.wait()
}

// CancelAndJoin disarms the timer, drops dispatched callbacks that have not
// started and waits for the rest.
func (t *TimerWorkItem) CancelAndJoin() {
	t.disarm()
	t.cancelQueued()
	t.calls.wait()
}

// Close disarms, joins and releases the timer. It is idempotent.
func (t *TimerWorkItem) Close() {
	t.lc.Close()
}

func (t *TimerWorkItem) disarm() {
	t.mu.Lock()
	t.disarmLocked()
	t.mu.Unlock()
}

func (t *TimerWorkItem) disarmLocked() {
	t.gen++
	t.armed = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *TimerWorkItem) armLocked(now time.Time) {
	delay := t.next.Sub(now)
	if delay < 0 {
		delay = 0
	}
	if t.window > 0 {
		delay += rand.N(t.window)
	}
	gen := t.gen
	t.timer = time.AfterFunc(delay, func() { t.fire(gen) })
}

func (t *TimerWorkItem) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.armed {
		t.mu.Unlock()
		return
	}
	err := t.admit(t.calls.enqueue)
	if err == nil && t.period > 0 {
		now := time.Now()
		t.next = t.next.Add(t.period)
		if now.Sub(t.next) > t.period {
			// fell behind by more than a period; skip the missed firings
			t.next = now
		}
		t.armLocked(now)
	} else {
		t.armed = false
		t.timer = nil
	}
	t.mu.Unlock()

	if err != nil {
		return
	}
	if err := t.submit(t, t.callback); err != nil {
		t.tp.logger.Warn("timer firing dropped, disarming", "id", t.id, "error", err)
		// the pool rejects everything from now on
		t.mu.Lock()
		if gen == t.gen {
			t.disarmLocked()
		}
		t.mu.Unlock()
	}
}
