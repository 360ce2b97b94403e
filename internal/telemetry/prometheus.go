package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements Metrics on top of github.com/prometheus/client_golang,
// registering instruments lazily by name the first time each is used. Intended
// for the standalone plannerd HTTP daemon, which exposes the registry on /metrics.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	mu        sync.Mutex
	counters  map[string]*prometheus.CounterVec
	timers    map[string]*prometheus.HistogramVec
	gauges    map[string]*prometheus.GaugeVec
}

// NewPrometheusMetrics constructs a Metrics recorder registered against reg.
// Pass prometheus.NewRegistry() (not the global DefaultRegisterer) so callers
// control exactly what is exposed on /metrics.
func NewPrometheusMetrics(reg *prometheus.Registry) *PrometheusMetrics {
	return &PrometheusMetrics{
		registry: reg,
		counters: make(map[string]*prometheus.CounterVec),
		timers:   make(map[string]*prometheus.HistogramVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
}

func tagLabels(tags []string) (names []string, values []string) {
	for i := 0; i+1 < len(tags); i += 2 {
		names = append(names, tags[i])
		values = append(values, tags[i+1])
	}
	return names, values
}

// IncCounter increments a lazily-registered counter metric.
func (m *PrometheusMetrics) IncCounter(name string, value float64, tags ...string) {
	names, values := tagLabels(tags)
	m.mu.Lock()
	c, ok := m.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, names)
		m.registry.MustRegister(c)
		m.counters[name] = c
	}
	m.mu.Unlock()
	c.WithLabelValues(values...).Add(value)
}

// RecordTimer records a duration in seconds against a lazily-registered histogram.
func (m *PrometheusMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	names, values := tagLabels(tags)
	m.mu.Lock()
	h, ok := m.timers[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name}, names)
		m.registry.MustRegister(h)
		m.timers[name] = h
	}
	m.mu.Unlock()
	h.WithLabelValues(values...).Observe(duration.Seconds())
}

// RecordGauge sets a gauge metric to value.
func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags ...string) {
	names, values := tagLabels(tags)
	m.mu.Lock()
	g, ok := m.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, names)
		m.registry.MustRegister(g)
		m.gauges[name] = g
	}
	m.mu.Unlock()
	g.WithLabelValues(values...).Set(value)
}
