package di

import (
	"fmt"

	"github.com/fingenie/quantcore/internal/config"
	"github.com/fingenie/quantcore/internal/scheduler"
	"github.com/rs/zerolog"
)

// walCheckpointSchedule runs the checkpoint hourly at minute 5
const walCheckpointSchedule = "0 5 * * * *"

// RegisterJobs creates the scheduler and registers all jobs.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.AnalyticsService == nil {
		return nil, fmt.Errorf("services not initialized")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{
		AnalyticsSnapshot: scheduler.NewAnalyticsSnapshotJob(container.AnalyticsService, log),
		WALCheckpoint:     scheduler.NewWALCheckpointJob(container.DB, log),
	}

	if err := container.Scheduler.AddJob(cfg.AnalyticsSnapshotSchedule, instances.AnalyticsSnapshot); err != nil {
		return nil, fmt.Errorf("failed to register analytics snapshot job: %w", err)
	}
	if err := container.Scheduler.AddJob(walCheckpointSchedule, instances.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	return instances, nil
}
