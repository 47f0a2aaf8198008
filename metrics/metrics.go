// Package metrics exposes prometheus counters for shorten, resolve and click outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "link_shortener"

// Outcome labels.
const (
	OutcomeCreated        = "created"
	OutcomeFound          = "found"
	OutcomeInvalidInput   = "invalid_input"
	OutcomeDuplicate      = "duplicate_shortcode"
	OutcomeExhausted      = "allocation_exhausted"
	OutcomeNotFound       = "not_found"
	OutcomeExpired        = "expired"
	OutcomeStorageFailure = "storage_failure"
	OutcomeUnexpected     = "unexpected"
)

// Metrics holds the collectors on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	shortened *prometheus.CounterVec
	resolved  *prometheus.CounterVec
	clicks    *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		shortened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shorten_requests_total",
			Help:      "Shorten requests by outcome.",
		}, []string{"outcome"}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_requests_total",
			Help:      "Shortcode resolutions by outcome.",
		}, []string{"outcome"}),
		clicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_total",
			Help:      "Recorded clicks by visitor device type.",
		}, []string{"device"}),
	}

	m.registry.MustRegister(
		m.shortened,
		m.resolved,
		m.clicks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveShorten counts one shorten request.
func (m *Metrics) ObserveShorten(outcome string) {
	if m == nil {
		return
	}
	m.shortened.WithLabelValues(outcome).Inc()
}

// ObserveResolve counts one resolution.
func (m *Metrics) ObserveResolve(outcome string) {
	if m == nil {
		return
	}
	m.resolved.WithLabelValues(outcome).Inc()
}

// ObserveClick counts one recorded click from a device type.
func (m *Metrics) ObserveClick(device string) {
	if m == nil {
		return
	}
	m.clicks.WithLabelValues(device).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
