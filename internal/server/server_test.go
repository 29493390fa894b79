package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fingenie/quantcore/internal/metrics"
	"github.com/fingenie/quantcore/internal/modules/analytics"
	"github.com/fingenie/quantcore/internal/modules/backtesting"
	"github.com/fingenie/quantcore/internal/modules/portfolio"
	testhelpers "github.com/fingenie/quantcore/internal/testing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, func()) {
	t.Helper()
	db, cleanup := testhelpers.NewTestDB(t, "server")

	reg := prometheus.NewRegistry()
	holdings := portfolio.NewHoldingRepository(db, zerolog.Nop())
	cfg := Config{
		Log:       zerolog.Nop(),
		DB:        db,
		DevMode:   true,
		Gatherer:  reg,
		Metrics:   metrics.New(reg),
		Holdings:  holdings,
		Analytics: analytics.NewService(holdings, analytics.NewRepository(db, zerolog.Nop()), nil, zerolog.Nop()),
		Backtesting: backtesting.NewService(
			testhelpers.NewMockPriceHistory(), nil, nil, nil, zerolog.Nop(),
		),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg), cleanup
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s, cleanup := newTestServer(t, nil)
	defer cleanup()

	rec := serve(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_Health_DatabaseClosed(t *testing.T) {
	s, cleanup := newTestServer(t, nil)
	cleanup()

	rec := serve(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy")
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s, cleanup := newTestServer(t, nil)
	defer cleanup()

	require.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health", "").Code)

	rec := serve(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `quantcore_http_requests_total{code="200",method="GET"} 1`)
}

func TestServer_HoldingsThenAnalytics(t *testing.T) {
	s, cleanup := newTestServer(t, nil)
	defer cleanup()

	rec := serve(s, http.MethodPost, "/api/analytics/calculate", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(s, http.MethodPut, "/api/portfolio/holdings",
		`{"symbol":"TCS","name":"Tata Consultancy","quantity":10,"buy_price":3000,"current_price":3300,"sector":"IT"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(s, http.MethodPost, "/api/analytics/calculate", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			HoldingsCount int  `json:"holdings_count"`
			Persisted     bool `json:"persisted"`
			Result        struct {
				TotalValue float64 `json:"total_value"`
			} `json:"result"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.HoldingsCount)
	assert.True(t, body.Data.Persisted)
	assert.InDelta(t, 33000.0, body.Data.Result.TotalValue, 1e-9)
}

func TestServer_ComputeRateLimit(t *testing.T) {
	s, cleanup := newTestServer(t, func(cfg *Config) { cfg.RateLimitRPS = 1 })
	defer cleanup()

	first := serve(s, http.MethodPost, "/api/backtests", "{")
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := serve(s, http.MethodPost, "/api/backtests", "{")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	req := httptest.NewRequest(http.MethodPost, "/api/backtests", strings.NewReader("{"))
	req.RemoteAddr = "198.51.100.7:4000"
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "other clients keep their own budget")

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/api/portfolio/holdings", "").Code)
	}
}

func TestServer_RateLimitDisabled(t *testing.T) {
	s, cleanup := newTestServer(t, nil)
	defer cleanup()

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusBadRequest, serve(s, http.MethodPost, "/api/backtests", "{").Code)
	}
}

func TestServer_UnconfiguredModulesNotMounted(t *testing.T) {
	s, cleanup := newTestServer(t, nil)
	defer cleanup()

	rec := serve(s, http.MethodGet, "/api/rebalancing/plans", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIsComputeRequest(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/backtests", true},
		{http.MethodPost, "/api/backtests/", true},
		{http.MethodPost, "/api/rebalancing/plans", true},
		{http.MethodPost, "/api/analytics/calculate", true},
		{http.MethodGet, "/api/backtests", false},
		{http.MethodPost, "/api/rebalancing/plans/abc/status", false},
		{http.MethodPost, "/api/historical/TCS/bars", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			assert.Equal(t, tt.want, isComputeRequest(req))
		})
	}
}

func TestServer_CORSAllowedOrigins(t *testing.T) {
	s, cleanup := newTestServer(t, func(c *Config) {
		c.AllowedOrigins = []string{"https://app.example"}
	})
	defer cleanup()

	for _, tt := range []struct {
		origin string
		want   string
	}{
		{"https://app.example", "https://app.example"},
		{"https://evil.example", ""},
	} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)

		assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"), tt.origin)
	}
}

func TestServer_CORSDefaultsToAnyOrigin(t *testing.T) {
	s, cleanup := newTestServer(t, nil)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
