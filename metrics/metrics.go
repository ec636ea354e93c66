// Package metrics provides a shared Prometheus registry with per-component
// namespacing, so each subsystem registers its own collectors without
// colliding on metric names.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "relayd"

var (
	registryOnce sync.Once
	registry     *prometheus.Registry
)

// GetRegistry returns the process-wide registry, creating it on first use.
func GetRegistry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
	return registry
}

// Histogram bucket presets shared across components.
var (
	// DurationBuckets covers sub-millisecond handler latencies up to slow proof runs.
	DurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}
	// CountBuckets covers small cardinalities such as queue depths.
	CountBuckets = []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// ComponentRegistry registers collectors under namespace_subsystem_*.
type ComponentRegistry struct {
	subsystem string
	labels    prometheus.Labels
}

// NewComponentRegistry returns a registry view for one component. The
// optional instance label distinguishes multiple instances of a component.
func NewComponentRegistry(subsystem, instance string) *ComponentRegistry {
	var labels prometheus.Labels
	if instance != "" {
		labels = prometheus.Labels{"instance": instance}
	}
	return &ComponentRegistry{subsystem: subsystem, labels: labels}
}

func (r *ComponentRegistry) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	opts.ConstLabels = r.labels
	c := prometheus.NewCounter(opts)
	GetRegistry().MustRegister(c)
	return c
}

func (r *ComponentRegistry) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	opts.ConstLabels = r.labels
	c := prometheus.NewCounterVec(opts, labelNames)
	GetRegistry().MustRegister(c)
	return c
}

func (r *ComponentRegistry) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	opts.ConstLabels = r.labels
	g := prometheus.NewGauge(opts)
	GetRegistry().MustRegister(g)
	return g
}

func (r *ComponentRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	opts.ConstLabels = r.labels
	g := prometheus.NewGaugeVec(opts, labelNames)
	GetRegistry().MustRegister(g)
	return g
}

func (r *ComponentRegistry) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	opts.Namespace = namespace
	opts.Subsystem = r.subsystem
	opts.ConstLabels = r.labels
	h := prometheus.NewHistogram(opts)
	GetRegistry().MustRegister(h)
	return h
}
