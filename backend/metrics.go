/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-aikit/internal/libinfo"
)

// DefaultRequestDurationBuckets are default buckets for the backend request duration histogram.
var DefaultRequestDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// MetricsCollector is an interface for collecting metrics of backend requests.
type MetricsCollector interface {
	// ObserveRequest observes the duration of the request with its kind and response status code.
	ObserveRequest(kind, status string, duration time.Duration)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// DurationBuckets is a list of buckets for the request duration histogram.
	// DefaultRequestDurationBuckets is used if empty.
	DurationBuckets []float64

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics of backend requests.
type PrometheusMetrics struct {
	Durations *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = DefaultRequestDurationBuckets
	}
	return &PrometheusMetrics{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "backend_request_duration_seconds",
			Help:        "A histogram of the backend requests durations.",
			Buckets:     buckets,
			ConstLabels: libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels),
		}, []string{"kind", "status"}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Durations)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Durations)
}

// ObserveRequest implements MetricsCollector.
func (pm *PrometheusMetrics) ObserveRequest(kind, status string, duration time.Duration) {
	pm.Durations.WithLabelValues(kind, status).Observe(duration.Seconds())
}
