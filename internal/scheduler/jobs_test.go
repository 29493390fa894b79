package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/fingenie/quantcore/internal/database"
	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/modules/analytics"
	testhelpers "github.com/fingenie/quantcore/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsSnapshotJob_Run(t *testing.T) {
	db, cleanup := testhelpers.NewTestDB(t, "snapshot")
	defer cleanup()

	repo := analytics.NewRepository(db, zerolog.Nop())
	holdings := testhelpers.NewMockHoldingsProvider(testhelpers.NewHoldingFixtures())
	svc := analytics.NewService(holdings, repo, nil, zerolog.Nop())

	job := NewAnalyticsSnapshotJob(svc, zerolog.Nop())
	assert.Equal(t, "analytics_snapshot", job.Name())
	require.NoError(t, job.Run(context.Background()))

	latest, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(testhelpers.NewHoldingFixtures()), latest.HoldingsCount)
}

func TestAnalyticsSnapshotJob_EmptyPortfolio(t *testing.T) {
	holdings := testhelpers.NewMockHoldingsProvider(nil)
	svc := analytics.NewService(holdings, nil, nil, zerolog.Nop())

	job := NewAnalyticsSnapshotJob(svc, zerolog.Nop())
	assert.NoError(t, job.Run(context.Background()))
}

func TestAnalyticsSnapshotJob_ZeroValuePortfolioSkipped(t *testing.T) {
	db, cleanup := testhelpers.NewTestDB(t, "snapshot_zero_value")
	defer cleanup()

	repo := analytics.NewRepository(db, zerolog.Nop())
	holdings := testhelpers.NewMockHoldingsProvider([]domain.Holding{
		{Symbol: "INFY", Quantity: 10, BuyPrice: 1500, CurrentPrice: 0, Sector: "IT"},
	})
	job := NewAnalyticsSnapshotJob(analytics.NewService(holdings, repo, nil, zerolog.Nop()), zerolog.Nop())

	require.NoError(t, job.Run(context.Background()))

	_, err := repo.Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnalyticsSnapshotJob_ProviderError(t *testing.T) {
	holdings := testhelpers.NewMockHoldingsProvider(nil)
	holdings.SetError(errors.New("db down"))
	svc := analytics.NewService(holdings, nil, nil, zerolog.Nop())

	job := NewAnalyticsSnapshotJob(svc, zerolog.Nop())
	err := job.Run(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNoHoldings))
	assert.Contains(t, err.Error(), "db down")
}

func TestWALCheckpointJob_Run(t *testing.T) {
	db, cleanup := testhelpers.NewTestDB(t, "wal")
	defer cleanup()

	job := NewWALCheckpointJob(db, zerolog.Nop())
	assert.Equal(t, "wal_checkpoint", job.Name())
	assert.NoError(t, job.Run(context.Background()))
}

func TestWALCheckpointJob_NilDatabase(t *testing.T) {
	var db *database.DB
	job := NewWALCheckpointJob(db, zerolog.Nop())
	assert.NoError(t, job.Run(context.Background()))
}

func TestWALCheckpointJob_CancelledContext(t *testing.T) {
	db, cleanup := testhelpers.NewTestDB(t, "wal_cancel")
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewWALCheckpointJob(db, zerolog.Nop())
	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
}
