package pool

import (
	"sync"
)

type bounded struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queues [3][]Task // indexed by queueIndex

	min, max   int
	workers    int
	idle       int
	wakeups    int // signaled idle workers that have not woken yet
	persistent int
	closed     bool

	hooks Hooks
	wg    sync.WaitGroup
}

// NewBounded creates an executor keeping between min and max workers.
// Workers above min (or above one while a persistent owner is retained) exit
// as soon as there is nothing queued. max is raised to min when smaller, and to
// one when zero.
func NewBounded(min, max int, hooks Hooks) Pool {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	if max == 0 {
		max = 1
	}
	p := &bounded{min: min, max: max, hooks: hooks}
	p.cond = sync.NewCond(&p.mu)

	p.mu.Lock()
	for i := 0; i < min; i++ {
		p.spawnLocked()
	}
	p.mu.Unlock()
	return p
}

// NewFixed creates an executor with exactly n workers.
func NewFixed(n int, hooks Hooks) Pool {
	return NewBounded(n, n, hooks)
}

func queueIndex(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

func (p *bounded) Submit(t Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	i := queueIndex(t.Priority)
	p.queues[i] = append(p.queues[i], t)
	if p.hooks.OnQueued != nil {
		p.hooks.OnQueued(1)
	}

	if p.availableLocked() > 0 {
		p.wakeups++
		p.cond.Signal()
	} else if p.workers < p.max {
		p.spawnLocked()
	}
	return nil
}

func (p *bounded) Cancel(owner any) int {
	if owner == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for i := range p.queues {
		q := p.queues[i][:0]
		for _, t := range p.queues[i] {
			if t.Owner == owner {
				removed++
				continue
			}
			q = append(q, t)
		}
		// clear the tail so removed closures can be collected
		for j := len(q); j < len(p.queues[i]); j++ {
			p.queues[i][j] = Task{}
		}
		p.queues[i] = q
	}
	if removed > 0 && p.hooks.OnQueued != nil {
		p.hooks.OnQueued(-removed)
	}
	return removed
}

func (p *bounded) Spare() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.availableLocked() > 0 || p.workers < p.max
}

func (p *bounded) MayRunLong() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.growLocked()
	return p.availableLocked() > 0 || p.workers < p.max
}

func (p *bounded) Retain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.persistent++
	if p.workers == 0 && !p.closed {
		p.spawnLocked()
	}
}

func (p *bounded) ReleasePersistent() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.persistent > 0 {
		p.persistent--
	}
	// let surplus idle workers re-evaluate whether they may exit
	p.cond.Broadcast()
}

func (p *bounded) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.cond.Broadcast()
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *bounded) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Workers:    p.workers,
		Idle:       p.availableLocked(),
		Queued:     p.queuedLocked(),
		Persistent: p.persistent,
		Min:        p.min,
		Max:        p.max,
	}
}

func (p *bounded) queuedLocked() int {
	return len(p.queues[0]) + len(p.queues[1]) + len(p.queues[2])
}

// availableLocked is the number of parked workers no Submit has claimed yet.
func (p *bounded) availableLocked() int {
	return p.idle - p.wakeups
}

// growLocked starts one more worker when queued work has no worker to take it.
func (p *bounded) growLocked() {
	if !p.closed && p.workers < p.max && p.queuedLocked() > p.wakeups && p.availableLocked() == 0 {
		p.spawnLocked()
	}
}

func (p *bounded) floorLocked() int {
	if p.persistent > 0 && p.min < 1 {
		return 1
	}
	return p.min
}

func (p *bounded) spawnLocked() {
	p.workers++
	p.wg.Add(1)
	if p.hooks.OnWorkerStart != nil {
		p.hooks.OnWorkerStart(p.workers)
	}
	go p.work()
}

// popLocked takes the oldest task of the highest non-empty priority class.
func (p *bounded) popLocked() (Task, bool) {
	for i := range p.queues {
		if len(p.queues[i]) == 0 {
			continue
		}
		t := p.queues[i][0]
		p.queues[i][0] = Task{}
		p.queues[i] = p.queues[i][1:]
		if p.hooks.OnQueued != nil {
			p.hooks.OnQueued(-1)
		}
		return t, true
	}
	return Task{}, false
}

func (p *bounded) work() {
	defer p.wg.Done()

	p.mu.Lock()
	for {
		t, ok := p.popLocked()
		if !ok {
			if p.closed || p.workers > p.floorLocked() {
				p.workers--
				if p.hooks.OnWorkerStop != nil {
					p.hooks.OnWorkerStop(p.workers)
				}
				p.mu.Unlock()
				return
			}
			p.idle++
			p.cond.Wait()
			p.idle--
			if p.wakeups > 0 {
				p.wakeups--
			}
			continue
		}

		// a long-running task may occupy this worker for a while; make sure
		// queued work is not starved behind it
		if t.RunsLong {
			p.growLocked()
		}
		p.mu.Unlock()

		t.Run()

		p.mu.Lock()
	}
}

