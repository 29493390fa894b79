package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveEngineRun(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveEngineRun(EngineAnalytics, 5*time.Millisecond, nil)
	m.ObserveEngineRun(EngineAnalytics, 7*time.Millisecond, nil)
	m.ObserveEngineRun(EngineAnalytics, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.engineRuns.WithLabelValues(EngineAnalytics, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.engineRuns.WithLabelValues(EngineAnalytics, OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.engineDuration))
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.PersistFailed(EngineBacktesting)
	m.AddBacktestTrades("sma_crossover", 3)
	m.AddBacktestTrades("sma_crossover", 0)
	m.CacheLookup(CacheHit)
	m.CacheLookup(CacheHit)
	m.CacheLookup(CacheMiss)
	m.ObserveHTTP("GET", "200", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistFailures.WithLabelValues(EngineBacktesting)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.backtestTrades.WithLabelValues("sma_crossover")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues(CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEngineRun(EngineRebalancing, time.Second, nil)
		m.PersistFailed(EngineRebalancing)
		m.AddBacktestTrades("rsi", 1)
		m.CacheLookup(CacheError)
		m.ObserveHTTP("POST", "500", time.Second)
	})
}

func TestNew_RegistersOncePerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) }, "duplicate registration")
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}
