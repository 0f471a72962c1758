package tpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitReturns(tr *tracker) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		tr.wait()
		close(done)
	}()
	return done
}

func requireBlocked(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
		t.Fatalf("wait returned while work was outstanding")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestTracker_IdleWhenEmpty(t *testing.T) {
	tr := newTracker()
	recvWithin(t, waitReturns(tr))
}

func TestTracker_QueuedAndRunning(t *testing.T) {
	tr := newTracker()
	tr.enqueue()
	tr.enqueue()
	done := waitReturns(tr)

	tr.begin()
	tr.dequeue(1)
	requireBlocked(t, done)

	e, q, r := tr.counts()
	require.Equal(t, [3]int{0, 0, 1}, [3]int{e, q, r})

	tr.end()
	recvWithin(t, done)
}

func TestTracker_ExpectDeliverRetract(t *testing.T) {
	tr := newTracker()
	require.False(t, tr.retract())
	require.False(t, tr.deliver())

	tr.expect()
	tr.expect()
	done := waitReturns(tr)

	require.True(t, tr.retract())
	require.True(t, tr.deliver())
	requireBlocked(t, done)

	tr.begin()
	tr.end()
	recvWithin(t, done)

	require.False(t, tr.retract())
}

func TestTracker_Reusable(t *testing.T) {
	tr := newTracker()
	for i := 0; i < 3; i++ {
		tr.enqueue()
		done := waitReturns(tr)
		requireBlocked(t, done)
		tr.begin()
		tr.end()
		recvWithin(t, done)
	}
}
