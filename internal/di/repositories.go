package di

import (
	"fmt"

	"github.com/fingenie/quantcore/internal/modules/analytics"
	"github.com/fingenie/quantcore/internal/modules/backtesting"
	"github.com/fingenie/quantcore/internal/modules/historical"
	"github.com/fingenie/quantcore/internal/modules/portfolio"
	"github.com/fingenie/quantcore/internal/modules/rebalancing"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories over the container's database
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container database not initialized")
	}

	container.HoldingRepo = portfolio.NewHoldingRepository(container.DB, log)
	container.HistoryRepo = historical.NewHistoryRepository(container.DB, log)
	container.AnalyticsRepo = analytics.NewRepository(container.DB, log)
	container.PlanRepo = rebalancing.NewRepository(container.DB, log)
	container.RunRepo = backtesting.NewRepository(container.DB, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
