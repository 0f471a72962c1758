package tpool

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/tpool/internal/registry"
	"github.com/ygrebnov/tpool/pool"
)

// triggers maps every live trigger identity to its trigger object.
var triggers registry.Table

// core is the state shared by all trigger kinds: identity, environment,
// invocation accounting and teardown.
type core struct {
	id    uuid.UUID
	kind  Kind
	env   CallbackEnvironment
	tp    *ThreadPool
	calls *tracker
	lc    *lifecycleCoordinator

	// mu orders admission of new invocations against teardown
	mu      sync.Mutex
	stopped bool
}

// newCore allocates the scheduling state of a trigger and registers self.
// stop is the kind-specific "no new triggers" step of the teardown.
func newCore(kind Kind, env CallbackEnvironment, self any, stop func()) (*core, error) {
	tp := env.Pool()
	if err := tp.attach(env); err != nil {
		return nil, errors.Join(ErrResourceExhausted, errorc.With(err, errorc.String("kind", string(kind))))
	}
	c := &core{
		kind:  kind,
		env:   env,
		tp:    tp,
		calls: newTracker(),
	}
	c.id = triggers.Register(self)
	c.lc = newLifecycleCoordinator(func() {
		c.stopAdmission()
		if stop != nil {
			stop()
		}
	}, c.calls.wait, c.release)
	tp.logger.Debug("trigger created", "kind", kind, "id", c.id, "priority", env.priority)
	return c, nil
}

func (c *core) release() {
	triggers.Unregister(c.id)
	c.tp.detach(c.env)
	c.tp.logger.Debug("trigger released", "kind", c.kind, "id", c.id)
}

func (c *core) stopAdmission() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

// admit runs account under mu unless the trigger is being torn down.
func (c *core) admit(account func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return errorc.With(ErrClosed, errorc.String("trigger", c.id.String()))
	}
	account()
	return nil
}

// post accounts and dispatches one invocation.
func (c *core) post(self any, fn func(*CallbackInstance)) error {
	if err := c.admit(c.calls.enqueue); err != nil {
		return err
	}
	return c.submit(self, fn)
}

// submit dispatches an invocation already accounted as queued.
func (c *core) submit(self any, fn func(*CallbackInstance)) error {
	err := c.tp.host.Submit(pool.Task{
		Owner:    c,
		Priority: c.env.priority.host(),
		RunsLong: c.env.runsLong,
		Run:      func() { c.invoke(self, fn) },
	})
	if err != nil {
		c.calls.dequeue(1)
		return errorc.With(ErrPoolClosed, errorc.String("trigger", c.id.String()))
	}
	c.tp.instruments.submitted.Add(1)
	return nil
}

func (c *core) invoke(self any, fn func(*CallbackInstance)) {
	c.calls.begin()
	defer c.calls.end()
	if !triggers.Validate(c.id, self) {
		err := errorc.With(ErrProtocolViolation,
			errorc.String("trigger", c.id.String()), errorc.String("kind", string(c.kind)))
		c.tp.logger.Error("dispatched callback does not match its trigger", "error", err)
		panic(err)
	}
	c.tp.run(c.kind, c.id, c.env, fn)
}

// cancelQueued removes invocations that have not started yet.
func (c *core) cancelQueued() {
	n := c.tp.host.Cancel(c)
	if n > 0 {
		c.calls.dequeue(n)
		c.tp.instruments.cancelled.Add(int64(n))
	}
}

// ID returns the identity the trigger is registered under.
func (c *core) ID() uuid.UUID { return c.id }

// Environment returns the configuration the trigger was created with.
func (c *core) Environment() CallbackEnvironment { return c.env }
