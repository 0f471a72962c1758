//go:build linux

package tpool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventFD_WaitConsumesSignal(t *testing.T) {
	e, err := NewEventFD()
	require.NoError(t, err)
	defer e.Close()
	require.Positive(t, e.Fd())

	require.NoError(t, e.Signal())
	require.NoError(t, e.Signal())
	require.NoError(t, e.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, e.Wait(ctx), context.DeadlineExceeded)
}

func TestEventFD_CanceledWaitLeavesSignal(t *testing.T) {
	e, err := NewEventFD()
	require.NoError(t, err)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Signal())
	require.ErrorIs(t, e.Wait(ctx), context.Canceled)
	require.NoError(t, e.Wait(context.Background()))
}

func TestEventFD_DrivesWaitWorkItem(t *testing.T) {
	tp := newTestPool(t)
	e, err := NewEventFD()
	require.NoError(t, err)
	defer e.Close()

	results := make(chan WaitResult, 1)
	w, err := tp.ScheduleWait(func(_ *CallbackInstance, r WaitResult) { results <- r }, e, After(time.Second))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, e.Signal())
	require.Equal(t, WaitSignaled, recvWithin(t, results))

	require.NoError(t, w.ScheduleWait(e, After(5*time.Millisecond)))
	require.Equal(t, WaitTimeout, recvWithin(t, results))
}

func TestEventFD_Closed(t *testing.T) {
	e, err := NewEventFD()
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	require.ErrorIs(t, e.Signal(), ErrClosed)
}
