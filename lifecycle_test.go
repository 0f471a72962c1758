package tpool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLifecycleCoordinator_OrderAndOnce(t *testing.T) {
	var (
		mu    sync.Mutex
		steps []string
	)
	record := func(s string) func() {
		return func() {
			mu.Lock()
			steps = append(steps, s)
			mu.Unlock()
		}
	}
	lc := newLifecycleCoordinator(record("stop"), record("join"), record("release"))

	var wg sync.WaitGroup
	var returned atomic.Int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lc.Close()
			mu.Lock()
			if len(steps) == 3 {
				returned.Add(1)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, []string{"stop", "join", "release"}, steps)
	require.EqualValues(t, 8, returned.Load(), "every Close must return after the sequence completed")
}

func TestLifecycleCoordinator_NilSteps(t *testing.T) {
	released := false
	lc := newLifecycleCoordinator(nil, nil, func() { released = true })
	lc.Close()
	require.True(t, released)
}
