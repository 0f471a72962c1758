// Package rundown implements rundown protection: permits taken before shared
// state is captured by an asynchronous callback, and a drain that waits for
// every permit to be returned before the state is torn down.
package rundown

import (
	"math"
	"sync/atomic"
)

const draining = math.MinInt64

// Protection guards one piece of shared state. The zero value is not usable;
// call New.
type Protection struct {
	// state holds the number of outstanding permits; the sign bit marks a
	// drain in progress.
	state atomic.Int64
	done  chan struct{}
}

func New() *Protection {
	return &Protection{done: make(chan struct{})}
}

// Acquire takes a permit. It fails once Wait has been called.
func (p *Protection) Acquire() bool {
	for {
		v := p.state.Load()
		if v&draining != 0 {
			return false
		}
		if p.state.CompareAndSwap(v, v+1) {
			return true
		}
	}
}

// Release returns a permit taken with Acquire.
func (p *Protection) Release() {
	v := p.state.Add(-1)
	switch {
	case v == draining:
		close(p.done)
	case v == -1 || v == math.MaxInt64:
		panic("rundown: release without acquire")
	}
}

// Outstanding returns the number of permits not yet released.
func (p *Protection) Outstanding() int64 {
	return p.state.Load() &^ draining
}

// Draining reports whether Wait has been called.
func (p *Protection) Draining() bool {
	return p.state.Load()&draining != 0
}

// Wait stops new acquisitions and blocks until every permit is released.
// It may be called more than once.
func (p *Protection) Wait() {
	for {
		v := p.state.Load()
		if v&draining != 0 {
			break
		}
		if p.state.CompareAndSwap(v, v|draining) {
			if v == 0 {
				close(p.done)
			}
			break
		}
	}
	<-p.done
}

// Join is Wait.
func (p *Protection) Join() { p.Wait() }

// Done is closed once the drain has completed.
func (p *Protection) Done() <-chan struct{} { return p.done }
