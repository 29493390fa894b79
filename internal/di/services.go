package di

import (
	"context"
	"fmt"

	"github.com/fingenie/quantcore/internal/clients/redis"
	"github.com/fingenie/quantcore/internal/clients/s3archive"
	"github.com/fingenie/quantcore/internal/config"
	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/metrics"
	"github.com/fingenie/quantcore/internal/modules/analytics"
	"github.com/fingenie/quantcore/internal/modules/backtesting"
	"github.com/fingenie/quantcore/internal/modules/historical"
	"github.com/fingenie/quantcore/internal/modules/rebalancing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// InitializeServices creates metrics, optional clients and the engine services
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.HoldingRepo == nil {
		return fmt.Errorf("repositories not initialized")
	}

	container.Registry = prometheus.NewRegistry()
	container.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	container.Metrics = metrics.New(container.Registry)

	container.PriceCache = initPriceCache(container, cfg, log)
	container.PriceHistory = historical.NewCachedHistory(
		container.HistoryRepo,
		container.PriceCache,
		cfg.PriceCacheTTL,
		container.Metrics,
		log,
	)

	var archive domain.ResultArchive
	if cfg.Archive.Bucket != "" {
		a, err := s3archive.New(ctx, s3archive.Config{
			Bucket:          cfg.Archive.Bucket,
			Prefix:          cfg.Archive.Prefix,
			Region:          cfg.Archive.Region,
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize result archive: %w", err)
		}
		container.Archive = a
		archive = a
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("S3 result archive enabled")
	}

	container.AnalyticsService = analytics.NewService(
		container.HoldingRepo,
		container.AnalyticsRepo,
		container.Metrics,
		log,
	)
	container.RebalancingService = rebalancing.NewService(
		container.HoldingRepo,
		container.PriceHistory,
		container.PlanRepo,
		container.Metrics,
		cfg.RebalanceThresholdPercent,
		log,
	)
	container.BacktestingService = backtesting.NewService(
		container.PriceHistory,
		container.RunRepo,
		archive,
		container.Metrics,
		log,
	)

	log.Debug().Msg("Services initialized")
	return nil
}

// initPriceCache prefers Redis and falls back to the in-process cache when
// Redis is not configured or unreachable.
func initPriceCache(container *Container, cfg *config.Config, log zerolog.Logger) domain.PriceCache {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("Using in-memory price cache")
		return historical.NewMemoryCache()
	}

	cache, err := redis.New(redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, using in-memory price cache")
		return historical.NewMemoryCache()
	}

	container.RedisCache = cache
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis price cache enabled")
	return cache
}
