// Package metrics exports Prometheus telemetry for weave environments.
// A Collector produces the Hooks and FaultHandler an environment is created
// with and records constructions, resolutions, passes and faults.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/junioryono/weave"
)

// Collector provides resolution metrics collection.
type Collector struct {
	registry *prometheus.Registry

	// Resolution metrics
	constructions      *prometheus.CounterVec
	resolutions        *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec

	// Pass metrics
	passes    prometheus.Counter
	discarded prometheus.Histogram

	// Fault metrics
	faults prometheus.Counter
}

// NewCollector creates a new resolution metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "weave"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
	}

	c.constructions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolution",
			Name:      "constructions_total",
			Help:      "Total number of instances created by factories",
		},
		[]string{"key", "lifetime"},
	)

	c.resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolution",
			Name:      "resolutions_total",
			Help:      "Total number of accessor resolutions",
		},
		[]string{"key", "lifetime", "result"},
	)

	c.resolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolution",
			Name:      "duration_seconds",
			Help:      "Time taken to resolve an accessor, nested resolutions included",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		},
		[]string{"key", "lifetime"},
	)

	c.passes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "completed_total",
			Help:      "Total number of completed resolution passes",
		},
	)

	c.discarded = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "discarded_instances",
			Help:      "Number of in-flight instances discarded when a pass completes",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		},
	)

	c.faults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolution",
			Name:      "faults_total",
			Help:      "Total number of usage faults reported",
		},
	)

	// Register all collectors
	c.registry.MustRegister(
		c.constructions,
		c.resolutions,
		c.resolutionDuration,
		c.passes,
		c.discarded,
		c.faults,
	)

	return c
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Hooks returns the environment hooks that feed the collector.
//
//	collector := metrics.NewCollector("app")
//	env := weave.New(weave.WithHooks(collector.Hooks()))
func (c *Collector) Hooks() weave.Hooks {
	return weave.Hooks{
		OnConstruct:    c.RecordConstruction,
		OnResolve:      c.RecordResolution,
		OnPassComplete: c.RecordPass,
	}
}

// FaultHandler returns a handler that counts faults before delegating to next.
// A nil next only counts.
func (c *Collector) FaultHandler(next weave.FaultHandler) weave.FaultHandler {
	return func(f weave.Fault) {
		c.faults.Inc()
		if next != nil {
			next(f)
		}
	}
}

// RecordConstruction records an instance created by a factory.
func (c *Collector) RecordConstruction(key weave.Key, lifetime weave.Lifetime) {
	c.constructions.WithLabelValues(key.String(), lifetime.String()).Inc()
}

// RecordResolution records an accessor resolution and its latency.
func (c *Collector) RecordResolution(key weave.Key, lifetime weave.Lifetime, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	c.resolutions.WithLabelValues(key.String(), lifetime.String(), result).Inc()
	c.resolutionDuration.WithLabelValues(key.String(), lifetime.String()).Observe(duration.Seconds())
}

// RecordPass records a completed pass.
func (c *Collector) RecordPass(discarded int) {
	c.passes.Inc()
	c.discarded.Observe(float64(discarded))
}

// Reset resets all labelled metrics.
func (c *Collector) Reset() {
	c.constructions.Reset()
	c.resolutions.Reset()
	c.resolutionDuration.Reset()
}
