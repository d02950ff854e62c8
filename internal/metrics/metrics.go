package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector exported by the service.
type Metrics struct {
	ProviderLatency     *prometheus.HistogramVec
	ProviderFailures    *prometheus.CounterVec
	TokenIssuances      *prometheus.CounterVec
	CacheLookups        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "travel_provider_latency_seconds",
			Help:    "Latency of a single provider search call",
			Buckets: prometheus.DefBuckets,
		}, []string{"category", "provider"}),
		ProviderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "travel_provider_failures_total",
			Help: "Provider search calls that returned an error",
		}, []string{"category", "provider"}),
		TokenIssuances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "travel_token_issuances_total",
			Help: "OAuth2 token issuance attempts by outcome",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "travel_cache_lookups_total",
			Help: "Aggregated-result cache lookups by result",
		}, []string{"result"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		registry: reg,
	}

	reg.MustRegister(
		m.ProviderLatency,
		m.ProviderFailures,
		m.TokenIssuances,
		m.CacheLookups,
		m.HTTPRequestDuration,
		m.HTTPRequestsTotal,
	)

	return m
}

func (m *Metrics) ObserveProviderLatency(category, provider string, d time.Duration) {
	m.ProviderLatency.WithLabelValues(category, provider).Observe(d.Seconds())
}

func (m *Metrics) IncProviderFailure(category, provider string) {
	m.ProviderFailures.WithLabelValues(category, provider).Inc()
}

// IncTokenIssuance records one issuer call.
func (m *Metrics) IncTokenIssuance(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.TokenIssuances.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	s := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, route, s).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route, s).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
