package tpool

import (
	"github.com/ygrebnov/errorc"
)

// WorkCallback is the callback of work items and timers.
type WorkCallback func(ci *CallbackInstance)

// WorkItem is a unit of work that can be posted any number of times. Every
// Post schedules one independent invocation; invocations may run concurrently.
type WorkItem struct {
	*core
	callback WorkCallback
}

func newWorkItem(cb WorkCallback, env CallbackEnvironment) (*WorkItem, error) {
	if cb == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("callback", "nil"))
	}
	w := &WorkItem{callback: cb}
	c, err := newCore(KindWork, env, w, nil)
	if err != nil {
		return nil, err
	}
	w.core = c
	return w, nil
}

// Post schedules one invocation of the callback.
func (w *WorkItem) Post() error {
	return w.post(w, w.callback)
}

// Join blocks until every invocation posted so far has finished. It does not
// cancel anything.
func (w *WorkItem) Join() {
	w.calls.wait()
}

// CancelAndJoin drops invocations that have not started and waits for the
// ones that have.
func (w *WorkItem) CancelAndJoin() {
	w.cancelQueued()
	w.calls.wait()
}

// Close stops accepting posts, joins and releases the work item. Posts made
// before Close still run. Close is idempotent.
func (w *WorkItem) Close() {
	w.lc.Close()
}
