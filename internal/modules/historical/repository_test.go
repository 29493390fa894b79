package historical

import (
	"context"
	"testing"
	"time"

	"github.com/fingenie/quantcore/internal/domain"
	testhelpers "github.com/fingenie/quantcore/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *HistoryRepository {
	t.Helper()
	db, cleanup := testhelpers.NewTestDB(t, "history")
	t.Cleanup(cleanup)
	return NewHistoryRepository(db, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestHistoryRepository_SaveAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	bars := testhelpers.NewBars(100, 101, 102, 103, 104)

	require.NoError(t, repo.SaveBars(ctx, "infy", bars))

	got, err := repo.GetBars(ctx, "INFY", bars[1].Date, bars[3].Date)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, bars[1:4], got)
}

func TestHistoryRepository_ReimportReplacesSameDay(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	bars := testhelpers.NewBars(100, 101)
	require.NoError(t, repo.SaveBars(ctx, "INFY", bars))

	revised := bars[1]
	revised.Date = revised.Date.Add(15 * time.Hour)
	revised.Close = 99
	require.NoError(t, repo.SaveBars(ctx, "INFY", bars[:1]))
	require.NoError(t, repo.SaveBars(ctx, "INFY", []domain.PriceBar{revised}))

	got, err := repo.GetBars(ctx, "INFY", testhelpers.SeriesStart, testhelpers.SeriesStart.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 99.0, got[1].Close)
	assert.Equal(t, bars[1].Date, got[1].Date)
}

func TestHistoryRepository_UnknownSymbol(t *testing.T) {
	repo := newRepo(t)

	got, err := repo.GetBars(context.Background(), "NONE", testhelpers.SeriesStart, time.Now())
	require.NoError(t, err)
	assert.Empty(t, got)
}
