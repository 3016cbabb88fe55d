/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package pacer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector represents a collector of metrics for analyzing how often requests are delayed.
type MetricsCollector interface {
	// ObserveAdmission is called for every admitted request with the total time it was delayed.
	ObserveAdmission(waited time.Duration)

	// IncAbandoned increments the number of callers that stopped waiting before admission.
	IncAbandoned()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// WaitDurationBuckets is a list of buckets for the wait duration histogram.
	// By default, buckets from 10ms to 1m are used.
	WaitDurationBuckets []float64
}

// PrometheusMetrics represents Prometheus metrics for Pacer.
type PrometheusMetrics struct {
	AdmissionsTotal        prometheus.Counter
	DelayedAdmissionsTotal prometheus.Counter
	AbandonedWaitsTotal    prometheus.Counter
	WaitDuration           prometheus.Histogram
}

var defaultWaitDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.WaitDurationBuckets
	if buckets == nil {
		buckets = defaultWaitDurationBuckets
	}
	return &PrometheusMetrics{
		AdmissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "pacer_admissions_total",
			Help:        "Number of admitted outbound requests.",
			ConstLabels: opts.ConstLabels,
		}),
		DelayedAdmissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "pacer_delayed_admissions_total",
			Help:        "Number of outbound requests that were admitted after waiting.",
			ConstLabels: opts.ConstLabels,
		}),
		AbandonedWaitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "pacer_abandoned_waits_total",
			Help:        "Number of callers that stopped waiting before admission.",
			ConstLabels: opts.ConstLabels,
		}),
		WaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "pacer_wait_duration_seconds",
			Help:        "Time spent by delayed requests waiting for admission.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.AdmissionsTotal, pm.DelayedAdmissionsTotal, pm.AbandonedWaitsTotal, pm.WaitDuration)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.AdmissionsTotal)
	prometheus.Unregister(pm.DelayedAdmissionsTotal)
	prometheus.Unregister(pm.AbandonedWaitsTotal)
	prometheus.Unregister(pm.WaitDuration)
}

// ObserveAdmission implements MetricsCollector.
func (pm *PrometheusMetrics) ObserveAdmission(waited time.Duration) {
	pm.AdmissionsTotal.Inc()
	if waited > 0 {
		pm.DelayedAdmissionsTotal.Inc()
		pm.WaitDuration.Observe(waited.Seconds())
	}
}

// IncAbandoned implements MetricsCollector.
func (pm *PrometheusMetrics) IncAbandoned() {
	pm.AbandonedWaitsTotal.Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) ObserveAdmission(time.Duration) {}
func (disabledMetrics) IncAbandoned()                  {}
