package tpool

import (
	"sync"
)

// CallbackInstance is handed to a running callback. It is valid only for the
// duration of that one invocation and must not be retained.
type CallbackInstance struct {
	tp       *ThreadPool
	runsLong bool
	onReturn []func()
}

// SetEventOnReturn signals e once the callback returns.
func (ci *CallbackInstance) SetEventOnReturn(e *Event) {
	ci.onReturn = append(ci.onReturn, e.Set)
}

// ReleaseSemaphoreOnReturn releases n units of s once the callback returns.
func (ci *CallbackInstance) ReleaseSemaphoreOnReturn(s *Semaphore, n int) {
	ci.onReturn = append(ci.onReturn, func() {
		if err := s.Release(n); err != nil {
			ci.tp.logger.Warn("release semaphore on callback return", "error", err)
		}
	})
}

// ReleaseMutexOnReturn unlocks l once the callback returns.
func (ci *CallbackInstance) ReleaseMutexOnReturn(l sync.Locker) {
	ci.onReturn = append(ci.onReturn, l.Unlock)
}

// FreeModuleOnReturn releases one reference of m once the callback returns.
func (ci *CallbackInstance) FreeModuleOnReturn(m Module) {
	ci.onReturn = append(ci.onReturn, m.Release)
}

// MayRunLong tells the pool this callback may run long, so that queued
// callbacks get another worker if one is allowed. It reports whether the pool
// can still serve other callbacks meanwhile.
func (ci *CallbackInstance) MayRunLong() bool {
	if ci.runsLong {
		// the host already compensated when it picked up the task
		return ci.tp.host.Spare()
	}
	ci.runsLong = true
	return ci.tp.host.MayRunLong()
}

// finish runs on-return actions in registration order.
func (ci *CallbackInstance) finish() {
	for _, fn := range ci.onReturn {
		fn()
	}
	ci.onReturn = nil
}
