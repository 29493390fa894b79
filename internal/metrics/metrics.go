// Package metrics exposes Prometheus collectors for engine runs, persistence,
// the price cache and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine labels
const (
	EngineAnalytics   = "analytics"
	EngineRebalancing = "rebalancing"
	EngineBacktesting = "backtesting"
)

// Outcome labels
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Cache result labels
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics holds the registered collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	engineRuns      *prometheus.CounterVec
	engineDuration  *prometheus.HistogramVec
	persistFailures *prometheus.CounterVec
	backtestTrades  *prometheus.CounterVec
	cacheRequests   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		engineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcore_engine_runs_total",
				Help: "Engine invocations by engine and outcome",
			},
			[]string{"engine", "outcome"},
		),
		engineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantcore_engine_duration_seconds",
				Help:    "Wall time of a service operation including loading inputs",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"engine"},
		),
		persistFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcore_persist_failures_total",
				Help: "Best-effort result writes that failed",
			},
			[]string{"engine"},
		),
		backtestTrades: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcore_backtest_trades_total",
				Help: "Closed simulated trades by strategy type",
			},
			[]string{"strategy"},
		),
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcore_price_cache_requests_total",
				Help: "Price cache lookups by result",
			},
			[]string{"result"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantcore_http_requests_total",
				Help: "HTTP requests by method and status code",
			},
			[]string{"method", "code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantcore_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// ObserveEngineRun records one engine invocation.
func (m *Metrics) ObserveEngineRun(engine string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.engineRuns.WithLabelValues(engine, outcome).Inc()
	m.engineDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}

// PersistFailed counts a failed best-effort write.
func (m *Metrics) PersistFailed(engine string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(engine).Inc()
}

// AddBacktestTrades counts closed trades for a strategy type.
func (m *Metrics) AddBacktestTrades(strategy string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.backtestTrades.WithLabelValues(strategy).Add(float64(n))
}

// CacheLookup counts a price cache lookup.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, code).Inc()
	m.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
