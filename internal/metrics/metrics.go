// Package metrics defines the span/counter/gauge surface the shard client
// manager, coordinator, and splitter emit through, plus a Prometheus-backed
// Recorder and a no-op one for when metrics are disabled.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Span is an in-flight timed operation. Exactly one of End or Cancel must
// be called once, mirroring the BeginOp/EndOp/CancelBeginOp pattern spec'd
// for the coordinator and the EventBatchReadTime/WriteTime/DeleteTime spans
// spec'd for the splitter.
type Span interface {
	// End records success and observes the elapsed duration.
	End()
	// Cancel records that the operation did not complete successfully; no
	// duration is observed.
	Cancel()
}

// Recorder is the metrics surface consumed by the coordination layer.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// BeginSpan starts a named timer. name is a stable metric name such as
	// "ConfigurationRefresh" or "EventBatchReadTime".
	BeginSpan(name string) Span
	// IncCounter increments a named counter by one.
	IncCounter(name string)
	// SetGauge sets a named gauge to value.
	SetGauge(name string, value float64)
}

type noopSpan struct{}

func (noopSpan) End()    {}
func (noopSpan) Cancel() {}

// Noop is a Recorder that discards everything; used when MetricsEnabled is
// false.
type Noop struct{}

func (Noop) BeginSpan(string) Span    { return noopSpan{} }
func (Noop) IncCounter(string)        {}
func (Noop) SetGauge(string, float64) {}

// Prometheus is a Recorder backed by client_golang histograms, counters and
// gauges, lazily registered on first use of a given name so callers never
// need to pre-declare every span/counter/gauge name up front.
type Prometheus struct {
	mu         sync.Mutex
	registry   *prometheus.Registry
	histograms map[string]prometheus.Histogram
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
}

// NewPrometheus returns a Prometheus recorder backed by registry.
func NewPrometheus(registry *prometheus.Registry) *Prometheus {
	return &Prometheus{
		registry:   registry,
		histograms: make(map[string]prometheus.Histogram),
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
	}
}

type promSpan struct {
	start time.Time
	hist  prometheus.Histogram
}

func (s promSpan) End()    { s.hist.Observe(time.Since(s.start).Seconds()) }
func (s promSpan) Cancel() {}

func (p *Prometheus) BeginSpan(name string) Span {
	p.mu.Lock()
	defer p.mu.Unlock()
	hist, ok := p.histograms[name]
	if !ok {
		hist = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "shardcoordinator_" + name + "_seconds",
			Help: name + " duration in seconds",
		})
		p.registry.MustRegister(hist)
		p.histograms[name] = hist
	}
	return promSpan{start: time.Now(), hist: hist}
}

func (p *Prometheus) IncCounter(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shardcoordinator_" + name + "_total",
			Help: name + " occurrences",
		})
		p.registry.MustRegister(c)
		p.counters[name] = c
	}
	c.Inc()
}

func (p *Prometheus) SetGauge(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.gauges[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shardcoordinator_" + name,
			Help: name + " current value",
		})
		p.registry.MustRegister(g)
		p.gauges[name] = g
	}
	g.Set(value)
}
