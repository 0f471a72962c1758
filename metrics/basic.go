package metrics

import (
	"sync"
	"sync/atomic"
)

// BasicProvider keeps instruments in memory. It suits tests and tools that
// read values back by name.
type BasicProvider struct {
	counters   *instrumentSet[*BasicCounter]
	updowns    *instrumentSet[*BasicUpDownCounter]
	histograms *instrumentSet[*BasicHistogram]
}

func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   newInstrumentSet(func() *BasicCounter { return &BasicCounter{} }),
		updowns:    newInstrumentSet(func() *BasicUpDownCounter { return &BasicUpDownCounter{} }),
		histograms: newInstrumentSet(func() *BasicHistogram { return &BasicHistogram{} }),
	}
}

func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	return p.counters.get(name, opts)
}

func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	return p.updowns.get(name, opts)
}

func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	return p.histograms.get(name, opts)
}

// CounterValue returns the value of a counter, zero if it was never created.
func (p *BasicProvider) CounterValue(name string) int64 {
	if c, ok := p.counters.lookup(name); ok {
		return c.Snapshot()
	}
	return 0
}

// UpDownValue returns the level of an up/down counter.
func (p *BasicProvider) UpDownValue(name string) int64 {
	if u, ok := p.updowns.lookup(name); ok {
		return u.Snapshot()
	}
	return 0
}

// HistogramValue returns a snapshot of a histogram.
func (p *BasicProvider) HistogramValue(name string) HistSnapshot {
	if h, ok := p.histograms.lookup(name); ok {
		return h.Snapshot()
	}
	return HistSnapshot{}
}

// Config returns the metadata an instrument was first created with.
func (p *BasicProvider) Config(name string) (InstrumentConfig, bool) {
	for _, cfg := range []func(string) (InstrumentConfig, bool){
		p.counters.config, p.updowns.config, p.histograms.config,
	} {
		if c, ok := cfg(name); ok {
			return c, true
		}
	}
	return InstrumentConfig{}, false
}

// instrumentSet creates instruments of one kind on first use.
type instrumentSet[T any] struct {
	mu     sync.RWMutex
	items  map[string]T
	meta   map[string]InstrumentConfig
	create func() T
}

func newInstrumentSet[T any](mk func() T) *instrumentSet[T] {
	return &instrumentSet[T]{items: make(map[string]T), meta: make(map[string]InstrumentConfig), create: mk}
}

func (s *instrumentSet[T]) lookup(name string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[name]
	return v, ok
}

func (s *instrumentSet[T]) config(name string) (InstrumentConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.meta[name]
	return c, ok
}

func (s *instrumentSet[T]) get(name string, opts []InstrumentOption) T {
	if v, ok := s.lookup(name); ok {
		return v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[name]; ok {
		return v
	}
	v := s.create()
	s.items[name] = v
	s.meta[name] = buildConfig(opts)
	return v
}

// BasicCounter is a monotonic counter.
type BasicCounter struct{ val atomic.Int64 }

func (c *BasicCounter) Add(n int64)     { c.val.Add(n) }
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicUpDownCounter is a level.
type BasicUpDownCounter struct{ val atomic.Int64 }

func (u *BasicUpDownCounter) Add(n int64)     { u.val.Add(n) }
func (u *BasicUpDownCounter) Snapshot() int64 { return u.val.Load() }

// BasicHistogram aggregates count, sum, min and max without buckets.
type BasicHistogram struct {
	mu       sync.Mutex
	count    int64
	sum      float64
	min, max float64
}

func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 || v < h.min {
		h.min = v
	}
	if h.count == 0 || v > h.max {
		h.max = v
	}
	h.count++
	h.sum += v
}

// HistSnapshot is a copy of a BasicHistogram's state.
type HistSnapshot struct {
	Count    int64
	Sum      float64
	Min, Max float64
	Mean     float64
}

func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := HistSnapshot{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
	if h.count > 0 {
		s.Mean = h.sum / float64(h.count)
	}
	return s
}
