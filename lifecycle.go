package tpool

import (
	"sync"
)

// lifecycleCoordinator encapsulates the teardown sequence of a trigger object.
// It doesn't own anything; it orchestrates the steps in a deterministic order.
//
// Close() is safe for concurrent calls; the sequence executes exactly once and
// every caller returns only after it has completed.
type lifecycleCoordinator struct {
	stop    func()
	join    func()
	release func()

	once sync.Once
}

func newLifecycleCoordinator(stop, join, release func()) *lifecycleCoordinator {
	return &lifecycleCoordinator{stop: stop, join: join, release: release}
}

// Close executes the teardown sequence exactly once:
// 1) stop accepting new triggers
// 2) wait for queued and running callbacks
// 3) release the scheduling object
func (lc *lifecycleCoordinator) Close() {
	lc.once.Do(func() {
		if lc.stop != nil {
			lc.stop()
		}
		if lc.join != nil {
			lc.join()
		}
		if lc.release != nil {
			lc.release()
		}
	})
}
