package tpool

import (
	"context"
	"errors"
	"sync"

	"github.com/ygrebnov/errorc"
)

// Waitable is a handle a WaitWorkItem can wait on.
//
// Wait blocks until the handle is signaled, consuming the signal for
// auto-reset objects, and returns nil; or returns ctx.Err() once ctx is done.
// A Wait that returns context.Canceled must not consume a signal.
type Waitable interface {
	Wait(ctx context.Context) error
}

// waitQueue is a FIFO of parked waiters. It is guarded by its owner's mutex.
type waitQueue struct {
	waiters []chan struct{}
}

func (q *waitQueue) park() chan struct{} {
	ch := make(chan struct{}, 1)
	q.waiters = append(q.waiters, ch)
	return ch
}

// wake hands one signal to the oldest waiter.
func (q *waitQueue) wake() bool {
	if len(q.waiters) == 0 {
		return false
	}
	ch := q.waiters[0]
	q.waiters[0] = nil
	q.waiters = q.waiters[1:]
	ch <- struct{}{}
	return true
}

func (q *waitQueue) wakeAll() {
	for len(q.waiters) > 0 {
		q.wake()
	}
}

func (q *waitQueue) remove(ch chan struct{}) bool {
	for i, w := range q.waiters {
		if w == ch {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// await implements Waitable.Wait for objects built on a waitQueue. take
// consumes an available signal; giveBack re-publishes one received after a
// cancellation. Both are called with mu held.
func await(ctx context.Context, mu *sync.Mutex, q *waitQueue, take func() bool, giveBack func()) error {
	mu.Lock()
	if errors.Is(ctx.Err(), context.Canceled) {
		mu.Unlock()
		return ctx.Err()
	}
	if take() {
		mu.Unlock()
		return nil
	}
	if err := ctx.Err(); err != nil {
		mu.Unlock()
		return err
	}
	ch := q.park()
	mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	if q.remove(ch) {
		return ctx.Err()
	}
	// signaled; a canceled waiter hands the signal on
	if errors.Is(ctx.Err(), context.Canceled) {
		giveBack()
		return ctx.Err()
	}
	return nil
}

// Event is a manual- or auto-reset event.
type Event struct {
	mu       sync.Mutex
	manual   bool
	signaled bool
	q        waitQueue
}

// NewEvent creates an event. An auto-reset event (manualReset false) releases
// a single waiter per Set and returns to non-signaled.
func NewEvent(manualReset, signaled bool) *Event {
	return &Event{manual: manualReset, signaled: signaled}
}

// Set signals the event.
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setLocked()
}

func (e *Event) setLocked() {
	if e.manual {
		e.signaled = true
		e.q.wakeAll()
		return
	}
	if !e.q.wake() {
		e.signaled = true
	}
}

// Reset returns the event to non-signaled.
func (e *Event) Reset() {
	e.mu.Lock()
	e.signaled = false
	e.mu.Unlock()
}

// IsSet reports whether the event is currently signaled.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signaled
}

func (e *Event) Wait(ctx context.Context) error {
	return await(ctx, &e.mu, &e.q, func() bool {
		if !e.signaled {
			return false
		}
		if !e.manual {
			e.signaled = false
		}
		return true
	}, e.setLocked)
}

// Semaphore is a counting semaphore with a maximum count.
type Semaphore struct {
	mu    sync.Mutex
	count int
	max   int
	q     waitQueue
}

// NewSemaphore creates a semaphore holding initial of maximum units.
func NewSemaphore(initial, maximum int) (*Semaphore, error) {
	if maximum <= 0 || initial < 0 || initial > maximum {
		return nil, errorc.With(ErrInvalidConfig,
			errorc.Int("initial", initial), errorc.Int("maximum", maximum))
	}
	return &Semaphore{count: initial, max: maximum}, nil
}

// Release adds n units, waking up to n waiters.
func (s *Semaphore) Release(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || s.count+n > s.max {
		return errorc.With(ErrSemaphoreLimit,
			errorc.Int("release", n), errorc.Int("count", s.count))
	}
	s.releaseLocked(n)
	return nil
}

func (s *Semaphore) releaseLocked(n int) {
	for n > 0 && s.q.wake() {
		n--
	}
	s.count += n
}

// Count returns the number of available units.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Semaphore) Wait(ctx context.Context) error {
	return await(ctx, &s.mu, &s.q, func() bool {
		if s.count == 0 {
			return false
		}
		s.count--
		return true
	}, func() { s.releaseLocked(1) })
}
