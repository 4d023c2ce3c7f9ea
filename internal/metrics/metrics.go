// Package metrics exposes processing counters for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "screenshot_wizard"

// Collector holds the processing metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	detections *prometheus.CounterVec
	inputs     *prometheus.CounterVec
	pages      prometheus.Counter
	duration   *prometheus.HistogramVec
}

// New creates a collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Eligible files detected, by kind.",
		}, []string{"kind"}),
		inputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_processed_total",
			Help:      "Inputs processed, by result.",
		}, []string{"result"}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_analyzed_total",
			Help:      "Page units sent for analysis.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "input_duration_seconds",
			Help:      "Time to process one input.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"result"}),
	}
	c.registry.MustRegister(
		c.detections,
		c.inputs,
		c.pages,
		c.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Detected counts one detection.
func (c *Collector) Detected(kind string) {
	if c == nil {
		return
	}
	c.detections.WithLabelValues(kind).Inc()
}

// PageAnalyzed counts one analyzed page unit.
func (c *Collector) PageAnalyzed() {
	if c == nil {
		return
	}
	c.pages.Inc()
}

// InputProcessed records the result and duration of one input.
func (c *Collector) InputProcessed(success bool, d time.Duration) {
	if c == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	c.inputs.WithLabelValues(result).Inc()
	c.duration.WithLabelValues(result).Observe(d.Seconds())
}
