package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/modules/analytics"
	"github.com/rs/zerolog"
)

// Analyzer computes and stores an analytics snapshot of the stored holdings.
type Analyzer interface {
	Analyze(ctx context.Context) (*analytics.Analysis, error)
}

// AnalyticsSnapshotJob records a periodic analytics snapshot.
type AnalyticsSnapshotJob struct {
	analyzer Analyzer
	log      zerolog.Logger
}

// NewAnalyticsSnapshotJob creates a new AnalyticsSnapshotJob
func NewAnalyticsSnapshotJob(analyzer Analyzer, log zerolog.Logger) *AnalyticsSnapshotJob {
	return &AnalyticsSnapshotJob{
		analyzer: analyzer,
		log:      log.With().Str("job", "analytics_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *AnalyticsSnapshotJob) Name() string {
	return "analytics_snapshot"
}

// Run executes the snapshot. An empty portfolio is not an error.
func (j *AnalyticsSnapshotJob) Run(ctx context.Context) error {
	analysis, err := j.analyzer.Analyze(ctx)
	if errors.Is(err, domain.ErrNoHoldings) || errors.Is(err, domain.ErrNoPortfolioValue) {
		j.log.Debug().Err(err).Msg("Nothing to value, skipping analytics snapshot")
		return nil
	}
	if err != nil {
		return fmt.Errorf("analytics snapshot failed: %w", err)
	}

	j.log.Info().
		Str("id", analysis.ID).
		Int("holdings", analysis.HoldingsCount).
		Int("risk_score", analysis.Result.RiskScore).
		Bool("persisted", analysis.Persisted).
		Msg("Analytics snapshot recorded")

	return nil
}
