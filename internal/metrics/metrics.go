// Package metrics exposes the dashboard's Prometheus instruments on a
// dedicated registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch result label values.
const (
	ResultOK      = "ok"
	ResultCached  = "cached"
	ResultPartial = "partial"
	ResultError   = "error"
)

// Metrics holds the registered instruments.
type Metrics struct {
	registry *prometheus.Registry

	FetchesTotal    *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	UnitFailures    *prometheus.CounterVec
	RateLimitAborts prometheus.Counter
	CacheWrites     *prometheus.CounterVec
}

// New creates the instrument set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitpulse_fetches_total",
			Help: "Fetch operations by scope and result.",
		}, []string{"scope", "result"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gitpulse_fetch_duration_seconds",
			Help:    "Wall time of non-cached fetch operations.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"scope"}),
		UnitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitpulse_fetch_unit_failures_total",
			Help: "Work units that failed inside otherwise-completed fetches.",
		}, []string{"scope"}),
		RateLimitAborts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitpulse_rate_limit_aborts_total",
			Help: "Fetches stopped early by the GitHub rate limiter.",
		}),
		CacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitpulse_cache_writes_total",
			Help: "Whole-value cache writes by scope.",
		}, []string{"scope"}),
	}

	registry.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.UnitFailures,
		m.RateLimitAborts,
		m.CacheWrites,
	)
	return m
}

// Handler renders the registry through the OpenMetrics-capable encoder.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveFetch records one finished fetch.
func (m *Metrics) ObserveFetch(scope, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(scope, result).Inc()
	if result != ResultCached {
		m.FetchDuration.WithLabelValues(scope).Observe(elapsed.Seconds())
	}
}

// ObserveUnitFailures records failed work units for one fetch scope.
func (m *Metrics) ObserveUnitFailures(scope string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.UnitFailures.WithLabelValues(scope).Add(float64(count))
}

// ObserveRateLimitAbort records one rate-limit early stop.
func (m *Metrics) ObserveRateLimitAbort() {
	if m == nil {
		return
	}
	m.RateLimitAborts.Inc()
}

// ObserveCacheWrite records one whole-value cache write.
func (m *Metrics) ObserveCacheWrite(scope string) {
	if m == nil {
		return
	}
	m.CacheWrites.WithLabelValues(scope).Inc()
}
