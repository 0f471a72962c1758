package tpool

import (
	"sync"
	"time"
)

var (
	defaultOnce sync.Once
	defaultPool *ThreadPool
)

// DefaultPool returns the process-wide pool, creating it on first use from
// the TPOOL_* environment. It lives for the life of the process.
func DefaultPool() *ThreadPool {
	defaultOnce.Do(func() {
		cfg, err := ConfigFromEnv()
		if err != nil {
			cfg = DefaultConfig()
		}
		tp, err := NewThreadPoolFromConfig(cfg)
		if err != nil {
			tp, _ = NewThreadPool()
		}
		tp.isDefault = true
		defaultPool = tp
	})
	return defaultPool
}

// NewWorkItem creates a work item. It targets the default pool unless
// WithPool is given.
func NewWorkItem(cb WorkCallback, opts ...Option) (*WorkItem, error) {
	env, err := NewCallbackEnvironment(opts...)
	if err != nil {
		return nil, err
	}
	return newWorkItem(cb, env)
}

// NewTimerWorkItem creates an unarmed timer.
func NewTimerWorkItem(cb WorkCallback, opts ...Option) (*TimerWorkItem, error) {
	env, err := NewCallbackEnvironment(opts...)
	if err != nil {
		return nil, err
	}
	return newTimerWorkItem(cb, env)
}

// NewWaitWorkItem creates an unarmed wait.
func NewWaitWorkItem(cb WaitCallback, opts ...Option) (*WaitWorkItem, error) {
	env, err := NewCallbackEnvironment(opts...)
	if err != nil {
		return nil, err
	}
	return newWaitWorkItem(cb, env)
}

// NewIoHandler binds h to a handler running cb.
func NewIoHandler(h IoHandle, cb IoCallback, opts ...Option) (*IoHandler, error) {
	env, err := NewCallbackEnvironment(opts...)
	if err != nil {
		return nil, err
	}
	return newIoHandler(h, cb, env)
}

// SubmitWork runs cb once on the default pool.
func SubmitWork(cb WorkCallback, opts ...Option) error {
	return DefaultPool().SubmitWork(cb, opts...)
}

// Post creates a work item on the default pool and posts it once.
func Post(cb WorkCallback, opts ...Option) (*WorkItem, error) {
	return DefaultPool().Post(cb, opts...)
}

// Schedule creates a timer on the default pool and arms it.
func Schedule(cb WorkCallback, due Due, period, window time.Duration, opts ...Option) (*TimerWorkItem, error) {
	return DefaultPool().Schedule(cb, due, period, window, opts...)
}

// ScheduleWait creates a wait on the default pool and arms it on h.
func ScheduleWait(cb WaitCallback, h Waitable, due Due, opts ...Option) (*WaitWorkItem, error) {
	return DefaultPool().ScheduleWait(cb, h, due, opts...)
}
