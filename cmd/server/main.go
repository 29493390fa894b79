// Package main is the quantcore HTTP service.
//
// Startup order:
//  1. Load configuration (.env + environment)
//  2. Build the logger
//  3. Wire database, clients, repositories, services and jobs
//  4. Start the scheduler and the HTTP server
//  5. Wait for a shutdown signal and stop everything gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fingenie/quantcore/internal/config"
	"github.com/fingenie/quantcore/internal/di"
	"github.com/fingenie/quantcore/internal/server"
	"github.com/fingenie/quantcore/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("db_driver", cfg.DBDriver).
		Msg("Starting quantcore")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, _, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	srv := server.New(server.Config{
		Log:            log,
		DB:             container.DB,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		RateLimitRPS:   cfg.APIRateLimitRPS,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Gatherer:       container.Registry,
		Metrics:        container.Metrics,
		Holdings:       container.HoldingRepo,
		History:        container.PriceHistory,
		Analytics:      container.AnalyticsService,
		Rebalancing:    container.RebalancingService,
		Backtesting:    container.BacktestingService,
		CacheEnabled:   container.CacheEnabled(),
		ArchiveEnabled: container.ArchiveEnabled(),
	})

	container.Scheduler.Start()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}

	log.Info().Msg("Server stopped")
}
