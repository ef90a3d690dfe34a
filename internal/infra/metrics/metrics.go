// Package metrics collects Prometheus metrics and serves them for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"authgate/internal/domain/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authgate"

// Collector is the Prometheus implementation of service.AuthMetrics.
// It also records HTTP request latency for the echo middleware.
type Collector struct {
	attempts        *prometheus.CounterVec
	registrations   *prometheus.CounterVec
	sessionResolves *prometheus.CounterVec
	accountEvents   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var (
	_ service.AuthMetrics  = (*Collector)(nil)
	_ service.AuditMetrics = (*Collector)(nil)
)

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Local account registrations by outcome.",
		}, []string{"outcome"}),
		sessionResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resolves_total",
			Help:      "Session lookups on protected routes by result.",
		}, []string{"result"}),
		accountEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_events_total",
			Help:      "Account events consumed by the audit worker by type and result.",
		}, []string{"type", "result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		c.attempts,
		c.registrations,
		c.sessionResolves,
		c.accountEvents,
		c.requestDuration,
	)

	return c
}

// NewAuthMetrics exposes the collector through the interface the usecases depend on.
func NewAuthMetrics(c *Collector) service.AuthMetrics {
	return c
}

// NewAuditMetrics exposes the collector to the audit consumer.
func NewAuditMetrics(c *Collector) service.AuditMetrics {
	return c
}

func (c *Collector) RecordAttempt(strategy, outcome string) {
	c.attempts.WithLabelValues(strategy, outcome).Inc()
}

func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSessionResolve(result string) {
	c.sessionResolves.WithLabelValues(result).Inc()
}

func (c *Collector) RecordAccountEvent(eventType, result string) {
	c.accountEvents.WithLabelValues(eventType, result).Inc()
}

// RecordRequest observes one HTTP request. route is the registered path pattern, never the raw URL.
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards every observation. Tests use it where metrics are irrelevant.
type Noop struct{}

func (Noop) RecordAttempt(string, string) {}

func (Noop) RecordRegistration(string) {}

func (Noop) RecordSessionResolve(string) {}

func (Noop) RecordAccountEvent(string, string) {}
