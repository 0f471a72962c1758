package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultBuckets are the histogram buckets, in seconds, used by
// PrometheusProvider.
var DefaultBuckets = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 10}

// PrometheusProvider registers instruments as Prometheus collectors:
// counters as counters, up/down counters as gauges, histograms as histograms.
type PrometheusProvider struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewPrometheusProvider registers into reg, or the default registerer when
// reg is nil.
func NewPrometheusProvider(reg prometheus.Registerer) *PrometheusProvider {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusProvider{
		reg:        reg,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

func promHelp(name string, cfg InstrumentConfig) string {
	if cfg.Description != "" {
		return cfg.Description
	}
	return name
}

func (p *PrometheusProvider) Counter(name string, opts ...InstrumentOption) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return promCounter{c}
	}
	cfg := buildConfig(opts)
	c := register(p.reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: name, Help: promHelp(name, cfg), ConstLabels: cfg.Attributes,
	}))
	p.counters[name] = c
	return promCounter{c}
}

func (p *PrometheusProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gauges[name]; ok {
		return promGauge{g}
	}
	cfg := buildConfig(opts)
	g := register(p.reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name, Help: promHelp(name, cfg), ConstLabels: cfg.Attributes,
	}))
	p.gauges[name] = g
	return promGauge{g}
}

func (p *PrometheusProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return promHistogram{h}
	}
	cfg := buildConfig(opts)
	h := register(p.reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: name, Help: promHelp(name, cfg), ConstLabels: cfg.Attributes, Buckets: DefaultBuckets,
	}))
	p.histograms[name] = h
	return promHistogram{h}
}

// register adds c to reg. A collector registered earlier under the same
// descriptor, for example by another pool, is shared. Other registration
// failures leave c working but unexported.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	return c
}

type promCounter struct{ c prometheus.Counter }

func (c promCounter) Add(n int64) {
	if n > 0 {
		c.c.Add(float64(n))
	}
}

type promGauge struct{ g prometheus.Gauge }

func (g promGauge) Add(n int64) { g.g.Add(float64(n)) }

type promHistogram struct{ h prometheus.Histogram }

func (h promHistogram) Record(v float64) { h.h.Observe(v) }
