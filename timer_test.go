package tpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerWorkItem_IsSet(t *testing.T) {
	tp := newTestPool(t)
	tm, err := tp.NewTimerWorkItem(func(*CallbackInstance) {})
	require.NoError(t, err)
	defer tm.Close()

	require.False(t, tm.IsSet())
	require.NoError(t, tm.Schedule(After(time.Hour), 0, 0))
	require.True(t, tm.IsSet())

	tm.Join()
	require.False(t, tm.IsSet())
}

func TestTimerWorkItem_OneShot(t *testing.T) {
	tests := []struct {
		name string
		due  func() Due
	}{
		{"relative", func() Due { return After(5 * time.Millisecond) }},
		{"absolute", func() Due { return At(time.Now().Add(5 * time.Millisecond)) }},
		{"absolute in the past", func() Due { return At(time.Now().Add(-time.Hour)) }},
		{"zero value", func() Due { return Due{} }},
		{"negative duration", func() Due { return After(-time.Second) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newTestPool(t)
			fired := make(chan struct{}, 10)
			tm, err := tp.NewTimerWorkItem(func(*CallbackInstance) { fired <- struct{}{} })
			require.NoError(t, err)
			defer tm.Close()

			require.NoError(t, tm.Schedule(tt.due(), 0, 0))
			recvWithin(t, fired)
			require.Eventually(t, func() bool { return !tm.IsSet() }, waitTimeout, tick)

			time.Sleep(20 * time.Millisecond)
			require.Empty(t, fired, "one-shot timer fired more than once")
		})
	}
}

func TestTimerWorkItem_Periodic(t *testing.T) {
	tp := newTestPool(t)
	var fired atomic.Int64
	tm, err := tp.NewTimerWorkItem(func(*CallbackInstance) { fired.Add(1) })
	require.NoError(t, err)
	defer tm.Close()

	require.NoError(t, tm.Schedule(After(20*time.Millisecond), 10*time.Millisecond, 2*time.Millisecond))
	require.Eventually(t, func() bool { return fired.Load() > 2 }, waitTimeout, tick)
	require.True(t, tm.IsSet())

	tm.Join()
	require.False(t, tm.IsSet())
	after := fired.Load()
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, after, fired.Load(), "timer fired after Join")
}

func TestTimerWorkItem_PeriodicOverlaps(t *testing.T) {
	tp := newTestPool(t, WithMaxThreads(8))
	var running, peak atomic.Int64
	tm, err := tp.NewTimerWorkItem(func(*CallbackInstance) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		running.Add(-1)
	})
	require.NoError(t, err)
	defer tm.Close()

	require.NoError(t, tm.Schedule(After(0), 5*time.Millisecond, 0))
	require.Eventually(t, func() bool { return peak.Load() > 1 }, waitTimeout, tick)
}

func TestTimerWorkItem_RescheduleReplaces(t *testing.T) {
	tp := newTestPool(t)
	fired := make(chan time.Time, 4)
	tm, err := tp.NewTimerWorkItem(func(*CallbackInstance) { fired <- time.Now() })
	require.NoError(t, err)
	defer tm.Close()

	start := time.Now()
	require.NoError(t, tm.Schedule(After(10*time.Millisecond), 0, 0))
	require.NoError(t, tm.Schedule(After(60*time.Millisecond), 0, 0))

	at := recvWithin(t, fired)
	require.GreaterOrEqual(t, at.Sub(start), 60*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, fired)
}

func TestTimerWorkItem_InfiniteDisarms(t *testing.T) {
	tp := newTestPool(t)
	var fired atomic.Int64
	tm, err := tp.NewTimerWorkItem(func(*CallbackInstance) { fired.Add(1) })
	require.NoError(t, err)
	defer tm.Close()

	require.NoError(t, tm.Schedule(After(10*time.Millisecond), 0, 0))
	require.NoError(t, tm.Schedule(Infinite(), 0, 0))
	require.False(t, tm.IsSet())
	time.Sleep(30 * time.Millisecond)
	require.Zero(t, fired.Load())
}

func TestTimerWorkItem_CancelAndJoinDropsQueued(t *testing.T) {
	tp := newTestPool(t, WithMaxThreads(1))
	release := blockPool(t, tp)

	var fired atomic.Int64
	tm, err := tp.NewTimerWorkItem(func(*CallbackInstance) { fired.Add(1) })
	require.NoError(t, err)
	defer tm.Close()

	require.NoError(t, tm.Schedule(After(0), 0, 0))
	require.Eventually(t, func() bool { return tp.Stats().Queued == 1 }, waitTimeout, tick)

	tm.CancelAndJoin()
	release()
	require.Zero(t, fired.Load())
	require.False(t, tm.IsSet())
}

func TestTimerWorkItem_Errors(t *testing.T) {
	tp := newTestPool(t)

	_, err := tp.NewTimerWorkItem(nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	tm, err := tp.NewTimerWorkItem(func(*CallbackInstance) {})
	require.NoError(t, err)
	require.ErrorIs(t, tm.Schedule(After(0), -time.Second, 0), ErrInvalidConfig)
	require.ErrorIs(t, tm.Schedule(After(0), 0, -time.Second), ErrInvalidConfig)

	tm.Close()
	tm.Close()
	require.ErrorIs(t, tm.Schedule(After(0), 0, 0), ErrClosed)
	require.False(t, tm.IsSet())
}

func TestTimerWorkItem_CloseStopsPeriodic(t *testing.T) {
	tp := newTestPool(t)
	var closed, late atomic.Bool
	tm, err := tp.Schedule(func(*CallbackInstance) {
		if closed.Load() {
			late.Store(true)
		}
	}, After(0), time.Millisecond, 0)
	require.NoError(t, err)

	time.Sleep(15 * time.Millisecond)
	tm.Close()
	closed.Store(true)
	time.Sleep(15 * time.Millisecond)
	require.False(t, late.Load(), "callback ran after Close returned")
}

func TestDue_String(t *testing.T) {
	require.Equal(t, "after 1s", After(time.Second).String())
	require.Equal(t, "infinite", Infinite().String())
	require.True(t, Infinite().IsInfinite())
	require.False(t, At(time.Unix(0, 0)).IsInfinite())
}

func TestTimerWorkItem_DisarmsWhenPoolCloses(t *testing.T) {
	tp := newTestPool(t)
	var fired atomic.Int64
	tm, err := tp.NewTimerWorkItem(func(*CallbackInstance) { fired.Add(1) })
	require.NoError(t, err)
	defer tm.Close()

	require.NoError(t, tm.Schedule(After(0), 5*time.Millisecond, 0))
	require.Eventually(t, func() bool { return fired.Load() > 0 }, waitTimeout, tick)

	tp.Close()
	require.Eventually(t, func() bool { return !tm.IsSet() }, waitTimeout, tick)
}
