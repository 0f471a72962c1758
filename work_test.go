package tpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkItem_JoinWaitsForEveryPost(t *testing.T) {
	tests := []struct {
		name  string
		posts int
		opts  []PoolOption
	}{
		{"single post", 1, nil},
		{"many posts on wide pool", 1000, []PoolOption{WithMaxThreads(32)}},
		{"many posts on one worker", 200, []PoolOption{WithMaxThreads(1)}},
		{"min above max", 100, []PoolOption{WithMinThreads(16), WithMaxThreads(8)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newTestPool(t, tt.opts...)
			var ran, running atomic.Int64
			w, err := tp.NewWorkItem(func(*CallbackInstance) {
				running.Add(1)
				time.Sleep(10 * time.Microsecond)
				running.Add(-1)
				ran.Add(1)
			})
			require.NoError(t, err)
			defer w.Close()

			for i := 0; i < tt.posts; i++ {
				require.NoError(t, w.Post())
			}
			w.Join()
			require.EqualValues(t, tt.posts, ran.Load())
			require.Zero(t, running.Load())
		})
	}
}

func TestWorkItem_CloseRunsOutstandingPosts(t *testing.T) {
	tp := newTestPool(t)
	var ran atomic.Int64
	w, err := tp.NewWorkItem(func(*CallbackInstance) {
		time.Sleep(5 * time.Millisecond)
		ran.Add(1)
	})
	require.NoError(t, err)

	require.NoError(t, w.Post())
	require.NoError(t, w.Post())
	w.Close()
	require.EqualValues(t, 2, ran.Load())
}

func TestWorkItem_CancelAndJoinDropsQueued(t *testing.T) {
	tp := newTestPool(t, WithMaxThreads(1))
	release := blockPool(t, tp)

	var ran atomic.Int64
	w, err := tp.NewWorkItem(func(*CallbackInstance) { ran.Add(1) })
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Post())
	}
	require.Equal(t, 5, tp.Stats().Queued)

	w.CancelAndJoin()
	require.Zero(t, tp.Stats().Queued)
	release()
	require.Zero(t, ran.Load())

	// the item stays usable
	require.NoError(t, w.Post())
	w.Join()
	require.EqualValues(t, 1, ran.Load())
}

func TestWorkItem_CancelAndJoinWaitsForStarted(t *testing.T) {
	tp := newTestPool(t)
	started := make(chan struct{})
	var finished atomic.Bool
	w, err := tp.NewWorkItem(func(*CallbackInstance) {
		close(started)
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Post())
	recvWithin(t, started)
	w.CancelAndJoin()
	require.True(t, finished.Load())
}

func TestWorkItem_NoCallbackAfterClose(t *testing.T) {
	tp := newTestPool(t, WithMaxThreads(4))
	for round := 0; round < 20; round++ {
		var closed, late atomic.Bool
		w, err := tp.NewWorkItem(func(*CallbackInstance) {
			if closed.Load() {
				late.Store(true)
			}
		})
		require.NoError(t, err)
		for i := 0; i < 50; i++ {
			require.NoError(t, w.Post())
		}
		w.Close()
		closed.Store(true)

		require.ErrorIs(t, w.Post(), ErrClosed)
		time.Sleep(time.Millisecond)
		require.False(t, late.Load(), "callback ran after Close returned")
	}
}

func TestWorkItem_PriorityOrder(t *testing.T) {
	tp := newTestPool(t, WithMaxThreads(1))
	release := blockPool(t, tp)

	order := make(chan Priority, 3)
	var items []*WorkItem
	for _, p := range []Priority{PriorityLow, PriorityNormal, PriorityHigh} {
		p := p
		w, err := tp.NewWorkItem(func(*CallbackInstance) { order <- p }, WithPriority(p))
		require.NoError(t, err)
		items = append(items, w)
		require.NoError(t, w.Post())
	}
	release()
	for _, w := range items {
		w.Close()
	}
	close(order)

	var got []Priority
	for p := range order {
		got = append(got, p)
	}
	require.Equal(t, []Priority{PriorityHigh, PriorityNormal, PriorityLow}, got)
}

func TestWorkItem_InvalidConstruction(t *testing.T) {
	tp := newTestPool(t)

	_, err := tp.NewWorkItem(nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = tp.NewWorkItem(func(*CallbackInstance) {}, WithPriority(Priority(42)))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWorkItem_DispatchAgainstReleasedIdentityPanics(t *testing.T) {
	tp := newTestPool(t)
	w, err := tp.NewWorkItem(func(*CallbackInstance) {})
	require.NoError(t, err)
	defer w.Close()

	triggers.Unregister(w.ID())
	w.calls.enqueue()
	require.Panics(t, func() { w.invoke(w, w.callback) })
}

func TestWorkItem_CloseReleasesIdentity(t *testing.T) {
	tp := newTestPool(t)
	w, err := tp.NewWorkItem(func(*CallbackInstance) {})
	require.NoError(t, err)

	got, ok := triggers.Lookup(w.ID())
	require.True(t, ok)
	require.Same(t, w, got)
	require.Equal(t, 1, tp.Stats().Triggers)

	w.Close()
	_, ok = triggers.Lookup(w.ID())
	require.False(t, ok)
	require.Zero(t, tp.Stats().Triggers)
}
