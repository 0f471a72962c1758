package tpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	waitTimeout = 2 * time.Second
	tick        = time.Millisecond
)

// newTestPool creates a pool closed at test cleanup.
func newTestPool(t *testing.T, opts ...PoolOption) *ThreadPool {
	t.Helper()
	tp, err := NewThreadPool(opts...)
	require.NoError(t, err)
	t.Cleanup(tp.Close)
	return tp
}

// blockPool occupies every worker of a single-worker pool until the returned
// release function is called.
func blockPool(t *testing.T, tp *ThreadPool) (release func()) {
	t.Helper()
	started := make(chan struct{})
	gate := make(chan struct{})
	blocker, err := tp.NewWorkItem(func(*CallbackInstance) {
		close(started)
		<-gate
	})
	require.NoError(t, err)
	require.NoError(t, blocker.Post())
	select {
	case <-started:
	case <-time.After(waitTimeout):
		t.Fatalf("blocking callback did not start")
	}
	var released bool
	release = func() {
		if !released {
			released = true
			close(gate)
			blocker.Close()
		}
	}
	t.Cleanup(release)
	return release
}

// recvWithin fails the test if ch does not deliver in time.
func recvWithin[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for a value")
	}
	var zero T
	return zero
}

// catchPanic returns the error fn panicked with.
func catchPanic(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	fn()
	return nil
}
