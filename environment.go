package tpool

import (
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/tpool/pool"
)

// Priority affects relative dispatch order among queued callbacks of one pool.
// It is best effort: high before normal before low.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	default:
		return "unknown"
	}
}

func (p Priority) host() pool.Priority {
	switch p {
	case PriorityHigh:
		return pool.PriorityHigh
	case PriorityLow:
		return pool.PriorityLow
	default:
		return pool.PriorityNormal
	}
}

// Module is an owning-module reference. It is retained while a callback bound to
// it runs, so that the code the callback belongs to is not unloaded under it.
type Module interface {
	Retain()
	Release()
}

// CallbackEnvironment is the configuration a trigger object is created with.
// It is copied into the trigger at construction and never changes afterwards.
type CallbackEnvironment struct {
	pool       *ThreadPool
	priority   Priority
	runsLong   bool
	persistent bool
	module     Module
}

// Option configures a CallbackEnvironment.
type Option func(*CallbackEnvironment) error

// NewCallbackEnvironment assembles an environment from options.
func NewCallbackEnvironment(opts ...Option) (CallbackEnvironment, error) {
	var env CallbackEnvironment
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&env); err != nil {
			return CallbackEnvironment{}, err
		}
	}
	return env, nil
}

// WithPriority sets the dispatch priority class.
func WithPriority(p Priority) Option {
	return func(env *CallbackEnvironment) error {
		switch p {
		case PriorityLow, PriorityNormal, PriorityHigh:
			env.priority = p
			return nil
		default:
			return errorc.With(ErrInvalidConfig, errorc.String("priority", p.String()))
		}
	}
}

// WithRunsLong hints that callbacks may block or run long.
func WithRunsLong() Option {
	return func(env *CallbackEnvironment) error { env.runsLong = true; return nil }
}

// WithPersistent marks the trigger as long-lived; its pool keeps a worker
// alive for as long as the trigger exists.
func WithPersistent() Option {
	return func(env *CallbackEnvironment) error { env.persistent = true; return nil }
}

// WithModule binds an owning module reference.
func WithModule(m Module) Option {
	return func(env *CallbackEnvironment) error {
		if m == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("module", "nil"))
		}
		env.module = m
		return nil
	}
}

// WithPool targets an explicit thread pool instead of the process default.
func WithPool(tp *ThreadPool) Option {
	return func(env *CallbackEnvironment) error {
		if tp == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("pool", "nil"))
		}
		env.pool = tp
		return nil
	}
}

func (env CallbackEnvironment) Priority() Priority { return env.priority }
func (env CallbackEnvironment) RunsLong() bool     { return env.runsLong }
func (env CallbackEnvironment) Persistent() bool   { return env.persistent }
func (env CallbackEnvironment) Module() Module     { return env.module }

// Pool returns the target pool, resolving to the default pool when unset.
func (env CallbackEnvironment) Pool() *ThreadPool {
	if env.pool == nil {
		return DefaultPool()
	}
	return env.pool
}

// WithEnvironment copies every setting of a prepared environment.
func WithEnvironment(src CallbackEnvironment) Option {
	return func(env *CallbackEnvironment) error { *env = src; return nil }
}
