// Package observability holds the Prometheus instrumentation for the
// water-level pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the counters and histograms the service records.
type Metrics struct {
	// SourceFetches counts adapter outcomes. labels: source, outcome={success,empty,error}
	SourceFetches *prometheus.CounterVec
	// SourceFetchDuration times each adapter fetch. label: source
	SourceFetchDuration *prometheus.HistogramVec
	// CacheLookups counts cache results. label: result={hit,miss}
	CacheLookups *prometheus.CounterVec
	// Responses counts fused responses by their provenance label.
	Responses *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vandstand",
			Name:      "source_fetches_total",
			Help:      "Source adapter fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vandstand",
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of a single source adapter fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vandstand",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
		Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vandstand",
			Name:      "responses_total",
			Help:      "Fused responses by provenance of the current value.",
		}, []string{"source"}),
	}

	prometheus.MustRegister(
		m.SourceFetches,
		m.SourceFetchDuration,
		m.CacheLookups,
		m.Responses,
	)
	return m
}

// NewTestMetrics creates unregistered metrics for use in tests, where the
// default registry would reject duplicate registration across cases.
func NewTestMetrics() *Metrics {
	return &Metrics{
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "source_fetches_total",
		}, []string{"source", "outcome"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "source_fetch_duration_seconds",
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
		}, []string{"result"}),
		Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "responses_total",
		}, []string{"source"}),
	}
}
