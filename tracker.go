package tpool

import "sync"

// tracker accounts the callback invocations of one trigger object:
//   - expected: announced I/O operations whose completion has not arrived
//   - queued:   dispatched onto the pool, not started
//   - running:  currently executing
//
// idle is closed whenever all three are zero.
type tracker struct {
	mu       sync.Mutex
	expected int
	queued   int
	running  int
	idle     chan struct{}
}

func newTracker() *tracker {
	idle := make(chan struct{})
	close(idle)
	return &tracker{idle: idle}
}

func (t *tracker) totalLocked() int { return t.expected + t.queued + t.running }

func (t *tracker) busyLocked() {
	if t.totalLocked() == 0 {
		t.idle = make(chan struct{})
	}
}

func (t *tracker) settleLocked() {
	if t.totalLocked() == 0 {
		close(t.idle)
	}
}

func (t *tracker) expect() {
	t.mu.Lock()
	t.busyLocked()
	t.expected++
	t.mu.Unlock()
}

// retract withdraws one expectation; false if none was outstanding.
func (t *tracker) retract() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expected == 0 {
		return false
	}
	t.expected--
	t.settleLocked()
	return true
}

// deliver turns one expectation into a queued invocation.
func (t *tracker) deliver() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expected == 0 {
		return false
	}
	t.expected--
	t.queued++
	return true
}

func (t *tracker) enqueue() {
	t.mu.Lock()
	t.busyLocked()
	t.queued++
	t.mu.Unlock()
}

// dequeue drops n queued invocations that will never start.
func (t *tracker) dequeue(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	t.queued -= n
	t.settleLocked()
	t.mu.Unlock()
}

func (t *tracker) begin() {
	t.mu.Lock()
	t.queued--
	t.running++
	t.mu.Unlock()
}

func (t *tracker) end() {
	t.mu.Lock()
	t.running--
	t.settleLocked()
	t.mu.Unlock()
}

// wait blocks until nothing is expected, queued or running.
func (t *tracker) wait() {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()
	<-idle
}

func (t *tracker) counts() (expected, queued, running int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expected, t.queued, t.running
}
