package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the engine's Prometheus instrumentation: per-activity-type
// histograms/counters and an active-instance gauge. A nil *Metrics is
// valid everywhere below — New
// leaves Options.Metrics nil when the caller doesn't pass one, and every
// method here is a no-op on a nil receiver so advance() never branches on
// whether metrics were configured.
type Metrics struct {
	activityDuration *prometheus.HistogramVec
	activityAttempts *prometheus.CounterVec
	retries          *prometheus.CounterVec
	activeInstances  prometheus.Gauge
}

// NewMetrics builds a Metrics and, if registerer is non-nil, registers its
// collectors. Pass prometheus.DefaultRegisterer for the global registry, or
// a prometheus.NewRegistry() in tests that don't want global state.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		activityDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowforge",
			Subsystem: "engine",
			Name:      "activity_duration_seconds",
			Help:      "Activity handler execution duration in seconds, by type and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"activity_type", "result"}),
		activityAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowforge",
			Subsystem: "engine",
			Name:      "activity_attempts_total",
			Help:      "Activity attempts, by type and outcome.",
		}, []string{"activity_type", "result"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowforge",
			Subsystem: "engine",
			Name:      "activity_retries_total",
			Help:      "Retries scheduled, by activity type.",
		}, []string{"activity_type"}),
		activeInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowforge",
			Subsystem: "engine",
			Name:      "active_instances",
			Help:      "Instances currently inside Execute.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.activityDuration, m.activityAttempts, m.retries, m.activeInstances)
	}
	return m
}

func (m *Metrics) observeActivity(activityType, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.activityDuration.WithLabelValues(activityType, result).Observe(d.Seconds())
	m.activityAttempts.WithLabelValues(activityType, result).Inc()
}

func (m *Metrics) observeRetry(activityType string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(activityType).Inc()
}

func (m *Metrics) incActive() {
	if m != nil {
		m.activeInstances.Inc()
	}
}

func (m *Metrics) decActive() {
	if m != nil {
		m.activeInstances.Dec()
	}
}
