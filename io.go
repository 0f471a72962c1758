package tpool

import (
	"errors"
	"sync/atomic"

	"github.com/ygrebnov/errorc"
)

// CompletionPort receives completions of asynchronous operations. The issuer
// calls Complete exactly once for every operation it accepted.
type CompletionPort interface {
	Complete(token any, status error, transferred int)
}

// IoHandle is an I/O-capable object whose completions can be routed to a port.
type IoHandle interface {
	BindCompletionPort(port CompletionPort) error
}

// IssueResult is what an issuer reports for one attempted operation.
type IssueResult int

const (
	// IssuePending: the operation was accepted and will complete later.
	IssuePending IssueResult = iota
	// IssueCompletedSync: the operation finished during the issue call; its
	// completion is still delivered through the port.
	IssueCompletedSync
	// IssueFailed: the operation was rejected and will never complete.
	IssueFailed
)

func (r IssueResult) String() string {
	switch r {
	case IssuePending:
		return "pending"
	case IssueCompletedSync:
		return "completed-sync"
	case IssueFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IoCallback receives one completion: the token the operation was issued with,
// its status (nil on success) and the number of bytes transferred.
type IoCallback func(ci *CallbackInstance, token any, status error, transferred int)

// IoHandler routes completions of operations issued against one handle to a
// callback. Every operation must be announced with StartIo before it is issued.
type IoHandler struct {
	*core
	callback IoCallback
	handle   IoHandle
}

func newIoHandler(h IoHandle, cb IoCallback, env CallbackEnvironment) (*IoHandler, error) {
	if h == nil || cb == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("io handler", "nil handle or callback"))
	}
	io := &IoHandler{callback: cb, handle: h}
	c, err := newCore(KindIo, env, io, nil)
	if err != nil {
		return nil, err
	}
	io.core = c
	if err := h.BindCompletionPort(ioPort{io}); err != nil {
		c.lc.Close()
		return nil, errors.Join(ErrResourceExhausted, errorc.With(err, errorc.String("bind", c.id.String())))
	}
	return io, nil
}

// Handle returns the handle the handler is bound to.
func (io *IoHandler) Handle() IoHandle { return io.handle }

// StartIo announces one operation about to be issued. The returned guard must
// be resolved exactly once: Disarm after the issuer accepted the operation,
// FailedStartIo if it did not. Close resolves a still armed guard as failed.
func (io *IoHandler) StartIo() (*IoGuard, error) {
	if err := io.admit(io.calls.expect); err != nil {
		return nil, err
	}
	io.tp.instruments.ioPending.Add(1)
	g := &IoGuard{io: io}
	g.armed.Store(true)
	return g, nil
}

// Pending returns the number of announced operations whose completion has not
// been received.
func (io *IoHandler) Pending() int {
	expected, _, _ := io.calls.counts()
	return expected
}

// Join waits until every accepted operation has been completed and its
// callback has returned.
func (io *IoHandler) Join() {
	io.calls.wait()
}

// Close joins and releases the handler. Closing with armed guards, or with
// accepted operations that never complete, blocks forever.
func (io *IoHandler) Close() {
	io.lc.Close()
}

func (io *IoHandler) retract() {
	if !io.calls.retract() {
		io.violation("operation retracted twice")
	}
	io.tp.instruments.ioPending.Add(-1)
}

func (io *IoHandler) complete(token any, status error, transferred int) {
	if !io.calls.deliver() {
		io.violation("completion without a started operation")
	}
	io.tp.instruments.ioPending.Add(-1)

	cb := io.callback
	err := io.submit(io, func(ci *CallbackInstance) { cb(ci, token, status, transferred) })
	if err != nil {
		io.tp.logger.Error("completion lost", "id", io.id, "error", err)
	}
}

func (io *IoHandler) violation(msg string) {
	err := errorc.With(ErrProtocolViolation, errorc.String("trigger", io.id.String()), errorc.String("reason", msg))
	io.tp.logger.Error("io accounting corrupted", "error", err)
	panic(err)
}

type ioPort struct{ io *IoHandler }

func (p ioPort) Complete(token any, status error, transferred int) {
	p.io.complete(token, status, transferred)
}

// IoGuard is the start obligation of one operation. It is resolved at most once;
// further resolutions are no-ops.
type IoGuard struct {
	io    *IoHandler
	armed atomic.Bool
}

// IsArmed reports whether the guard still awaits resolution.
func (g *IoGuard) IsArmed() bool { return g.armed.Load() }

// Disarm resolves the guard as started: a completion will follow.
func (g *IoGuard) Disarm() {
	g.armed.CompareAndSwap(true, false)
}

// FailedStartIo resolves the guard as failed: no completion will follow.
func (g *IoGuard) FailedStartIo() {
	if g.armed.CompareAndSwap(true, false) {
		g.io.retract()
	}
}

// Resolve disarms or fails the guard according to what the issuer reported.
func (g *IoGuard) Resolve(r IssueResult) {
	if r == IssueFailed {
		g.FailedStartIo()
		return
	}
	g.Disarm()
}

// Close resolves a still armed guard as failed.
func (g *IoGuard) Close() {
	if g.armed.Load() {
		g.io.tp.logger.Debug("armed io guard closed, retracting", "id", g.io.id)
	}
	g.FailedStartIo()
}
