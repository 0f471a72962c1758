package tpool

import (
	"io"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/tpool/metrics"
)

// DefaultMaxThreads is the worker ceiling used when none is configured.
const DefaultMaxThreads = 512

// StackInfo carries the per-thread stack sizes a pool was configured with.
// Goroutine stacks are sized by the Go runtime, so the values are advisory and
// only reported back by ThreadPool.StackInformation.
type StackInfo struct {
	Reserve uint64
	Commit  uint64
}

// poolConfig holds ThreadPool configuration.
type poolConfig struct {
	// MinThreads is the number of workers kept alive while idle.
	// Default: 0
	MinThreads int

	// MaxThreads caps the number of concurrently running callbacks.
	// A value below MinThreads is raised to MinThreads.
	// Default: DefaultMaxThreads
	MaxThreads int

	// Stack is the optional stack information.
	Stack *StackInfo

	// Logger receives pool diagnostics. Default: discards everything.
	Logger *slog.Logger

	// Metrics receives pool instruments. Default: no-op.
	Metrics metrics.Provider

	// OnPanic is invoked with a CallbackError for every recovered callback panic.
	OnPanic func(error)
}

func defaultPoolConfig() poolConfig {
	return poolConfig{
		MinThreads: 0,
		MaxThreads: DefaultMaxThreads,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:    metrics.NewNoopProvider(),
	}
}

// PoolOption configures a ThreadPool.
type PoolOption func(*poolConfig) error

// WithMinThreads sets the number of workers kept alive while idle.
func WithMinThreads(n uint) PoolOption {
	return func(cfg *poolConfig) error { cfg.MinThreads = int(n); return nil }
}

// WithMaxThreads sets the worker ceiling (must be > 0).
func WithMaxThreads(n uint) PoolOption {
	return func(cfg *poolConfig) error {
		if n == 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMaxThreads requires n > 0"))
		}
		cfg.MaxThreads = int(n)
		return nil
	}
}

// WithStackInfo records stack sizes for the pool's threads.
func WithStackInfo(si StackInfo) PoolOption {
	return func(cfg *poolConfig) error {
		if si.Commit > si.Reserve && si.Reserve != 0 {
			return errorc.With(ErrInvalidConfig,
				errorc.Int("commit", int(si.Commit)), errorc.Int("reserve", int(si.Reserve)))
		}
		cfg.Stack = &si
		return nil
	}
}

// WithLogger sets the pool logger.
func WithLogger(l *slog.Logger) PoolOption {
	return func(cfg *poolConfig) error {
		if l != nil {
			cfg.Logger = l
		}
		return nil
	}
}

// WithMetrics sets the metrics provider.
func WithMetrics(p metrics.Provider) PoolOption {
	return func(cfg *poolConfig) error {
		if p != nil {
			cfg.Metrics = p
		}
		return nil
	}
}

// WithPanicHandler registers a function receiving recovered callback panics.
func WithPanicHandler(fn func(error)) PoolOption {
	return func(cfg *poolConfig) error { cfg.OnPanic = fn; return nil }
}

// Config is the environment-driven form of the pool options.
type Config struct {
	MinThreads   uint   `env:"TPOOL_MIN_THREADS" envDefault:"0"`
	MaxThreads   uint   `env:"TPOOL_MAX_THREADS" envDefault:"512"`
	StackReserve uint64 `env:"TPOOL_STACK_RESERVE" envDefault:"0"`
	StackCommit  uint64 `env:"TPOOL_STACK_COMMIT" envDefault:"0"`
}

// DefaultConfig mirrors the defaults of NewThreadPool without options.
func DefaultConfig() Config {
	return Config{MinThreads: 0, MaxThreads: DefaultMaxThreads}
}

// ConfigFromEnv parses Config from TPOOL_* environment variables.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errorc.With(ErrInvalidConfig, errorc.Error("env", err))
	}
	return cfg, nil
}

// Options converts cfg to pool options.
func (c Config) Options() []PoolOption {
	opts := []PoolOption{WithMinThreads(c.MinThreads), WithMaxThreads(c.MaxThreads)}
	if c.StackReserve != 0 || c.StackCommit != 0 {
		opts = append(opts, WithStackInfo(StackInfo{Reserve: c.StackReserve, Commit: c.StackCommit}))
	}
	return opts
}
