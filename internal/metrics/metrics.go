// Package metrics holds the Prometheus collectors exported by the WeCare
// binaries. All recording methods are safe on a nil *Metrics so packages can
// be used without a registry in tests and tools.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	transitions         *prometheus.CounterVec
	ratings             *prometheus.CounterVec
	reconcileCorrection prometheus.Counter
	lockContention      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wecare_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wecare_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wecare_appointment_transitions_total",
				Help: "Appointment workflow transitions by action and outcome",
			},
			[]string{"action", "result"},
		),
		ratings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wecare_appointment_ratings_total",
				Help: "Rating submissions by outcome",
			},
			[]string{"result"},
		),
		reconcileCorrection: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wecare_rating_reconcile_corrections_total",
				Help: "Nurse listings whose aggregate rating was repaired by reconciliation",
			},
		),
		lockContention: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wecare_lock_contention_total",
				Help: "Workflow lock acquisitions rejected because the key was held",
			},
			[]string{"scope"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.transitions,
		m.ratings,
		m.reconcileCorrection,
		m.lockContention,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Transition(action, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Rating(result string) {
	if m == nil {
		return
	}
	m.ratings.WithLabelValues(result).Inc()
}

func (m *Metrics) ReconcileCorrection() {
	if m == nil {
		return
	}
	m.reconcileCorrection.Inc()
}

func (m *Metrics) LockContention(scope string) {
	if m == nil {
		return
	}
	m.lockContention.WithLabelValues(scope).Inc()
}
