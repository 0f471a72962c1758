package tpool

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/tpool/metrics"
	"github.com/ygrebnov/tpool/pool"
)

// ThreadPool is a bounded set of workers that trigger objects dispatch their
// callbacks onto. A pool must outlive every trigger object created against it.
type ThreadPool struct {
	host        pool.Pool
	logger      *slog.Logger
	instruments instruments
	stack       *StackInfo
	onPanic     func(error)
	isDefault   bool

	mu     sync.Mutex
	closed bool
	live   int
}

type instruments struct {
	submitted metrics.Counter
	completed metrics.Counter
	cancelled metrics.Counter
	panicked  metrics.Counter

	queueDepth metrics.UpDownCounter
	workers    metrics.UpDownCounter
	ioPending  metrics.UpDownCounter

	duration metrics.Histogram
}

func newInstruments(p metrics.Provider) instruments {
	return instruments{
		submitted: p.Counter("tpool_callbacks_submitted_total",
			metrics.WithDescription("callback invocations dispatched onto the pool"), metrics.WithUnit("1")),
		completed: p.Counter("tpool_callbacks_completed_total",
			metrics.WithDescription("callback invocations that returned"), metrics.WithUnit("1")),
		cancelled: p.Counter("tpool_callbacks_cancelled_total",
			metrics.WithDescription("queued invocations removed before they started"), metrics.WithUnit("1")),
		panicked: p.Counter("tpool_callbacks_panicked_total",
			metrics.WithDescription("callback invocations that panicked"), metrics.WithUnit("1")),
		queueDepth: p.UpDownCounter("tpool_queue_depth",
			metrics.WithDescription("invocations waiting for a worker"), metrics.WithUnit("1")),
		workers: p.UpDownCounter("tpool_workers",
			metrics.WithDescription("running worker goroutines"), metrics.WithUnit("1")),
		ioPending: p.UpDownCounter("tpool_io_pending",
			metrics.WithDescription("started io operations awaiting completion"), metrics.WithUnit("1")),
		duration: p.Histogram("tpool_callback_duration_seconds",
			metrics.WithDescription("callback execution time"), metrics.WithUnit("seconds")),
	}
}

// NewThreadPool creates a pool. Without options it keeps no idle workers and
// runs at most DefaultMaxThreads callbacks at once. A maximum below the
// minimum is raised to the minimum.
func NewThreadPool(opts ...PoolOption) (*ThreadPool, error) {
	cfg := defaultPoolConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.MaxThreads < cfg.MinThreads {
		cfg.Logger.Debug("max threads raised to min threads", "min", cfg.MinThreads, "max", cfg.MaxThreads)
		cfg.MaxThreads = cfg.MinThreads
	}

	tp := &ThreadPool{
		logger:      cfg.Logger,
		instruments: newInstruments(cfg.Metrics),
		stack:       cfg.Stack,
		onPanic:     cfg.OnPanic,
	}
	newHost := pool.NewBounded
	if cfg.MinThreads == cfg.MaxThreads {
		newHost = func(n, _ int, hooks pool.Hooks) pool.Pool { return pool.NewFixed(n, hooks) }
	}
	tp.host = newHost(cfg.MinThreads, cfg.MaxThreads, pool.Hooks{
		OnWorkerStart: func(n int) {
			tp.instruments.workers.Add(1)
			tp.logger.Debug("worker started", "workers", n)
		},
		OnWorkerStop: func(n int) {
			tp.instruments.workers.Add(-1)
			tp.logger.Debug("worker stopped", "workers", n)
		},
		OnQueued: func(delta int) { tp.instruments.queueDepth.Add(int64(delta)) },
	})
	tp.logger.Debug("thread pool created", "min", cfg.MinThreads, "max", cfg.MaxThreads)
	return tp, nil
}

// NewThreadPoolFromConfig creates a pool from cfg; opts are applied after it.
func NewThreadPoolFromConfig(cfg Config, opts ...PoolOption) (*ThreadPool, error) {
	return NewThreadPool(append(cfg.Options(), opts...)...)
}

// StackInformation returns the stack sizes the pool was configured with.
func (tp *ThreadPool) StackInformation() (StackInfo, bool) {
	if tp.stack == nil {
		return StackInfo{}, false
	}
	return *tp.stack, true
}

// PoolStats is a point-in-time snapshot of a pool.
type PoolStats struct {
	pool.Stats
	// Triggers is the number of live trigger objects bound to the pool.
	Triggers int
}

func (tp *ThreadPool) Stats() PoolStats {
	tp.mu.Lock()
	live := tp.live
	tp.mu.Unlock()
	return PoolStats{Stats: tp.host.Stats(), Triggers: live}
}

// Close stops the pool after running the callbacks already queued. Trigger
// objects should be closed first; their later dispatches fail with
// ErrPoolClosed. Closing the default pool has no effect.
func (tp *ThreadPool) Close() {
	if tp.isDefault {
		tp.logger.Warn("default thread pool cannot be closed")
		return
	}
	tp.mu.Lock()
	if tp.closed {
		tp.mu.Unlock()
		return
	}
	tp.closed = true
	live := tp.live
	tp.mu.Unlock()

	if live > 0 {
		tp.logger.Warn("thread pool closed with live trigger objects", "triggers", live)
	}
	tp.host.Close()
	tp.logger.Debug("thread pool closed")
}

func (tp *ThreadPool) attach(env CallbackEnvironment) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.closed {
		return ErrPoolClosed
	}
	tp.live++
	if env.persistent {
		tp.host.Retain()
	}
	return nil
}

func (tp *ThreadPool) detach(env CallbackEnvironment) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.live--
	if env.persistent {
		tp.host.ReleasePersistent()
	}
}

// run executes one callback invocation on the calling worker.
func (tp *ThreadPool) run(kind Kind, id uuid.UUID, env CallbackEnvironment, fn func(*CallbackInstance)) {
	if env.module != nil {
		env.module.Retain()
		defer env.module.Release()
	}
	ci := &CallbackInstance{tp: tp, runsLong: env.runsLong}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			tp.reportPanic(newCallbackError(fmt.Errorf("%w: %v", ErrCallbackPanicked, r), kind, id))
		}
		ci.finish()
		tp.instruments.duration.Record(time.Since(start).Seconds())
		tp.instruments.completed.Add(1)
	}()
	fn(ci)
}

func (tp *ThreadPool) reportPanic(err error) {
	tp.instruments.panicked.Add(1)
	tp.logger.Warn("callback panicked", "error", fmt.Sprintf("%+v", err))
	if tp.onPanic != nil {
		tp.onPanic(err)
	}
}

// environment builds an environment bound to tp.
func (tp *ThreadPool) environment(opts []Option) (CallbackEnvironment, error) {
	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, WithPool(tp))
	return NewCallbackEnvironment(all...)
}

// NewWorkItem creates a work item bound to tp.
func (tp *ThreadPool) NewWorkItem(cb WorkCallback, opts ...Option) (*WorkItem, error) {
	env, err := tp.environment(opts)
	if err != nil {
		return nil, err
	}
	return newWorkItem(cb, env)
}

// NewTimerWorkItem creates an unarmed timer bound to tp.
func (tp *ThreadPool) NewTimerWorkItem(cb WorkCallback, opts ...Option) (*TimerWorkItem, error) {
	env, err := tp.environment(opts)
	if err != nil {
		return nil, err
	}
	return newTimerWorkItem(cb, env)
}

// NewWaitWorkItem creates an unarmed wait bound to tp.
func (tp *ThreadPool) NewWaitWorkItem(cb WaitCallback, opts ...Option) (*WaitWorkItem, error) {
	env, err := tp.environment(opts)
	if err != nil {
		return nil, err
	}
	return newWaitWorkItem(cb, env)
}

// NewIoHandler binds h to a handler running cb on tp.
func (tp *ThreadPool) NewIoHandler(h IoHandle, cb IoCallback, opts ...Option) (*IoHandler, error) {
	env, err := tp.environment(opts)
	if err != nil {
		return nil, err
	}
	return newIoHandler(h, cb, env)
}

// Post creates a work item on tp and posts it once.
func (tp *ThreadPool) Post(cb WorkCallback, opts ...Option) (*WorkItem, error) {
	w, err := tp.NewWorkItem(cb, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.Post(); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// Schedule creates a timer on tp and arms it.
func (tp *ThreadPool) Schedule(cb WorkCallback, due Due, period, window time.Duration, opts ...Option) (*TimerWorkItem, error) {
	t, err := tp.NewTimerWorkItem(cb, opts...)
	if err != nil {
		return nil, err
	}
	if err := t.Schedule(due, period, window); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// ScheduleWait creates a wait on tp and arms it on h.
func (tp *ThreadPool) ScheduleWait(cb WaitCallback, h Waitable, due Due, opts ...Option) (*WaitWorkItem, error) {
	w, err := tp.NewWaitWorkItem(cb, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.ScheduleWait(h, due); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// SubmitWork runs cb once on tp without a trigger object to join. Callers
// that need to wait for it use their own accounting, for example a
// rundown.Protection.
func (tp *ThreadPool) SubmitWork(cb WorkCallback, opts ...Option) error {
	if cb == nil {
		return errorc.With(ErrInvalidConfig, errorc.String("callback", "nil"))
	}
	env, err := tp.environment(opts)
	if err != nil {
		return err
	}
	tp.mu.Lock()
	closed := tp.closed
	tp.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}

	id := uuid.New()
	err = tp.host.Submit(pool.Task{
		Priority: env.priority.host(),
		RunsLong: env.runsLong,
		Run:      func() { tp.run(KindSubmit, id, env, cb) },
	})
	if err != nil {
		return errorc.With(ErrPoolClosed, errorc.String("submit", id.String()))
	}
	tp.instruments.submitted.Add(1)
	return nil
}
