// Package pool implements the host executor that trigger objects dispatch
// callbacks onto: a bounded set of worker goroutines serving prioritized
// FIFO queues.
package pool

import "errors"

// ErrClosed is returned by Submit once Close has been called.
var ErrClosed = errors.New("pool: executor is closed")

// Priority orders queued tasks within one executor.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
	PriorityLow
)

// Task is a unit of work accepted by an executor.
type Task struct {
	// Owner groups tasks so that the queued ones can be removed with Cancel.
	// Nil owners are never matched by Cancel.
	Owner any

	// Run is executed on a worker goroutine. It must not panic: an escaping
	// panic terminates the process.
	Run func()

	Priority Priority

	// RunsLong hints that Run may block for a long time.
	RunsLong bool
}

// Pool is an interface that defines methods on a host executor.
type Pool interface {
	// Submit queues t for execution.
	Submit(t Task) error

	// Cancel removes queued tasks of owner that have not started yet and
	// returns how many were removed.
	Cancel(owner any) int

	// Spare reports whether a worker is idle or another one may be started.
	Spare() bool

	// MayRunLong is called from a running task that is about to block. It
	// starts a worker for queued work nobody is free to take and reports
	// whether the executor still has spare capacity.
	MayRunLong() bool

	// Retain pins one worker alive until the matching ReleasePersistent.
	Retain()
	ReleasePersistent()

	// Close stops accepting tasks, drains the queues and waits for workers.
	Close()

	Stats() Stats
}

// Stats is a point-in-time snapshot of an executor.
type Stats struct {
	Workers    int
	Idle       int
	Queued     int
	Persistent int
	Min        int
	Max        int
}

// Hooks observe executor activity. All fields are optional.
type Hooks struct {
	OnWorkerStart func(workers int)
	OnWorkerStop  func(workers int)
	OnQueued      func(delta int)
}
