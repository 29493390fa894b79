// Package di wires quantcore's databases, clients, repositories, services
// and scheduled jobs.
package di

import (
	"github.com/fingenie/quantcore/internal/clients/redis"
	"github.com/fingenie/quantcore/internal/clients/s3archive"
	"github.com/fingenie/quantcore/internal/database"
	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/metrics"
	"github.com/fingenie/quantcore/internal/modules/analytics"
	"github.com/fingenie/quantcore/internal/modules/backtesting"
	"github.com/fingenie/quantcore/internal/modules/historical"
	"github.com/fingenie/quantcore/internal/modules/portfolio"
	"github.com/fingenie/quantcore/internal/modules/rebalancing"
	"github.com/fingenie/quantcore/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
)

// Container holds all dependencies for the application.
// Optional clients are nil when their configuration is absent.
type Container struct {
	DB *database.DB

	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Clients
	RedisCache *redis.PriceCache
	Archive    *s3archive.Archive

	// Repositories
	HoldingRepo   *portfolio.HoldingRepository
	HistoryRepo   *historical.HistoryRepository
	AnalyticsRepo *analytics.Repository
	PlanRepo      *rebalancing.Repository
	RunRepo       *backtesting.Repository

	// Services
	PriceCache         domain.PriceCache
	PriceHistory       *historical.CachedHistory
	AnalyticsService   *analytics.Service
	RebalancingService *rebalancing.Service
	BacktestingService *backtesting.Service

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	AnalyticsSnapshot *scheduler.AnalyticsSnapshotJob
	WALCheckpoint     *scheduler.WALCheckpointJob
}

// CacheEnabled reports whether the shared Redis cache is in use
func (c *Container) CacheEnabled() bool {
	return c.RedisCache != nil
}

// ArchiveEnabled reports whether results are archived to S3
func (c *Container) ArchiveEnabled() bool {
	return c.Archive != nil
}

// Close releases clients and the database. Safe to call on a partial container.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.RedisCache != nil {
		_ = c.RedisCache.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
