package rundown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProtection_WaitWithoutPermits(t *testing.T) {
	p := New()
	p.Wait()
	require.True(t, p.Draining())
	require.False(t, p.Acquire())

	select {
	case <-p.Done():
	default:
		t.Fatalf("done must be closed after Wait returned")
	}
}

func TestProtection_WaitBlocksUntilReleased(t *testing.T) {
	p := New()
	require.True(t, p.Acquire())
	require.True(t, p.Acquire())
	require.EqualValues(t, 2, p.Outstanding())

	waited := make(chan struct{})
	go func() {
		p.Wait()
		close(waited)
	}()

	require.Eventually(t, p.Draining, time.Second, time.Millisecond)
	require.False(t, p.Acquire(), "acquire must fail while draining")

	p.Release()
	select {
	case <-waited:
		t.Fatalf("Wait returned with a permit outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	p.Release()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatalf("Wait did not return after last release")
	}
	require.Zero(t, p.Outstanding())
}

func TestProtection_ConcurrentAcquireRelease(t *testing.T) {
	p := New()
	var (
		wg       sync.WaitGroup
		acquired sync.WaitGroup
	)
	const n = 10000
	acquired.Add(n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok := p.Acquire()
			acquired.Done()
			if ok {
				p.Release()
			}
		}()
	}
	acquired.Wait()
	p.Join()
	wg.Wait()
	require.Zero(t, p.Outstanding())
}

func TestProtection_ReleaseWithoutAcquirePanics(t *testing.T) {
	require.Panics(t, func() { New().Release() })

	p := New()
	p.Wait()
	require.Panics(t, func() { p.Release() })
}
