// Package metrics provides performance tracking and observability for
// Harvest using Prometheus metrics.
//
// # Basic Usage
//
//	// Record fetched observations
//	metrics.RecordsFetched.WithLabelValues("fred", "sp500").Add(250)
//
//	// Track run duration
//	timer := prometheus.NewTimer(metrics.RunDuration.WithLabelValues("sp500", "ok"))
//	defer timer.ObserveDuration()
//
// Metrics are registered through promauto at package load; a batch run
// that wants to expose them can mount promhttp on a debug listener, and
// a scheduler-driven run can simply ignore them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsFetched counts observations returned by source adapters
	// before normalization drops. Labels: provider, collector.
	RecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_records_fetched_total",
			Help: "Total number of raw observations fetched from providers",
		},
		[]string{"provider", "collector"},
	)

	// RecordsWritten counts observations upserted into the sink.
	// Labels: collector, mode (live/dry).
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_records_written_total",
			Help: "Total number of observations written to storage",
		},
		[]string{"collector", "mode"},
	)

	// RecordsDropped counts raw rows rejected during normalization.
	// Labels: provider, collector, reason.
	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_records_dropped_total",
			Help: "Total number of raw rows dropped during normalization",
		},
		[]string{"provider", "collector", "reason"},
	)

	// SubWindowFailures counts sub-window fetches that exhausted retries.
	// Labels: provider, collector.
	SubWindowFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_subwindow_failures_total",
			Help: "Total number of sub-windows that failed after retries",
		},
		[]string{"provider", "collector"},
	)

	// RunDuration tracks end-to-end collection run durations in seconds.
	// Labels: collector, status.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "harvest_run_duration_seconds",
			Help: "Collection run duration in seconds",
			Buckets: []float64{
				0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600,
			},
		},
		[]string{"collector", "status"},
	)

	// ProviderRequestLatency tracks provider call latencies in seconds.
	// Labels: provider.
	ProviderRequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvest_provider_request_seconds",
			Help:    "Provider request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

// Collector provides a per-collector metrics recording surface so the
// engine does not thread label values through every call site.
type Collector struct {
	provider  string
	collector string
}

// NewCollector creates a metrics collector scoped to one named
// collector and its provider.
func NewCollector(provider, collector string) *Collector {
	return &Collector{
		provider:  provider,
		collector: collector,
	}
}

// Fetched records raw observations fetched from the provider
func (c *Collector) Fetched(n int) {
	RecordsFetched.WithLabelValues(c.provider, c.collector).Add(float64(n))
}

// Written records observations written to storage
func (c *Collector) Written(n int, dry bool) {
	mode := "live"
	if dry {
		mode = "dry"
	}
	RecordsWritten.WithLabelValues(c.collector, mode).Add(float64(n))
}

// Dropped records raw rows rejected during normalization
func (c *Collector) Dropped(n int, reason string) {
	if n == 0 {
		return
	}
	RecordsDropped.WithLabelValues(c.provider, c.collector, reason).Add(float64(n))
}

// SubWindowFailed records a sub-window that exhausted its retries
func (c *Collector) SubWindowFailed() {
	SubWindowFailures.WithLabelValues(c.provider, c.collector).Inc()
}

// RunCompleted records the run duration under its terminal status
func (c *Collector) RunCompleted(status string, elapsed time.Duration) {
	RunDuration.WithLabelValues(c.collector, status).Observe(elapsed.Seconds())
}

// RequestObserved records one provider request latency
func (c *Collector) RequestObserved(elapsed time.Duration) {
	ProviderRequestLatency.WithLabelValues(c.provider).Observe(elapsed.Seconds())
}
