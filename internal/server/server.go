// Package server provides the HTTP server and routing for quantcore.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fingenie/quantcore/internal/database"
	"github.com/fingenie/quantcore/internal/metrics"
	"github.com/fingenie/quantcore/internal/modules/analytics"
	analyticshandlers "github.com/fingenie/quantcore/internal/modules/analytics/handlers"
	"github.com/fingenie/quantcore/internal/modules/backtesting"
	backtestinghandlers "github.com/fingenie/quantcore/internal/modules/backtesting/handlers"
	"github.com/fingenie/quantcore/internal/modules/historical"
	historicalhandlers "github.com/fingenie/quantcore/internal/modules/historical/handlers"
	"github.com/fingenie/quantcore/internal/modules/portfolio"
	portfoliohandlers "github.com/fingenie/quantcore/internal/modules/portfolio/handlers"
	"github.com/fingenie/quantcore/internal/modules/rebalancing"
	rebalancinghandlers "github.com/fingenie/quantcore/internal/modules/rebalancing/handlers"
)

// Config holds server configuration
type Config struct {
	Log     zerolog.Logger
	DB      *database.DB
	Port    int
	DevMode bool

	// RateLimitRPS bounds compute requests per client. Zero disables limiting.
	RateLimitRPS float64

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics

	Holdings    *portfolio.HoldingRepository
	History     historical.BarStore
	Analytics   *analytics.Service
	Rebalancing *rebalancing.Service
	Backtesting *backtesting.Service

	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string

	CacheEnabled   bool
	ArchiveEnabled bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            Config
	limiter        *clientLimiter
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DB, SystemFeatures{
			CacheEnabled:   cfg.CacheEnabled,
			ArchiveEnabled: cfg.ArchiveEnabled,
		}),
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = newClientLimiter(cfg.RateLimitRPS, computeBurst(cfg.RateLimitRPS))
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.AllowedOrigins
}

// Router exposes the configured router for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging and request metrics
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
		})

		if s.cfg.Holdings != nil {
			portfoliohandlers.NewHandler(s.cfg.Holdings, s.log).RegisterRoutes(r)
		}
		if s.cfg.History != nil {
			historicalhandlers.NewHandler(s.cfg.History, s.log).RegisterRoutes(r)
		}
		if s.cfg.Analytics != nil {
			analyticshandlers.NewHandler(s.cfg.Analytics, s.log).RegisterRoutes(r)
		}
		if s.cfg.Rebalancing != nil {
			rebalancinghandlers.NewHandler(s.cfg.Rebalancing, s.log).RegisterRoutes(r)
		}
		if s.cfg.Backtesting != nil {
			backtestinghandlers.NewHandler(s.cfg.Backtesting, s.log).RegisterRoutes(r)
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
