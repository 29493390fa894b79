package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// computePaths are the POST endpoints that run an engine.
var computePaths = map[string]bool{
	"/api/analytics/calculate": true,
	"/api/rebalancing/plans":   true,
	"/api/backtests":           true,
}

// loggingMiddleware logs HTTP requests and records request metrics
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.cfg.Metrics.ObserveHTTP(r.Method, strconv.Itoa(status), elapsed)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// rateLimitMiddleware throttles compute requests per client address.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || !isComputeRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		client := clientKey(r)
		if !s.limiter.Allow(client) {
			s.log.Warn().
				Str("client", client).
				Str("path", r.URL.Path).
				Msg("Compute request rate limited")
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"error": "Rate limit exceeded",
				"metadata": map[string]interface{}{
					"timestamp": time.Now().Format(time.RFC3339),
				},
			}, s.log)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isComputeRequest(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	return computePaths[path]
}

// clientKey identifies the caller. RemoteAddr is already rewritten by
// middleware.RealIP when a proxy header is present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func computeBurst(rps float64) int {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return burst
}

// clientLimiter keeps one token bucket per client
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Allow reports whether a request from client may proceed now
func (l *clientLimiter) Allow(client string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[client]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.limiters[client] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
