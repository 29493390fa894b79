// Package historical stores daily price bars and serves them to the engines.
package historical

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fingenie/quantcore/internal/database"
	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/utils"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// HistoryRepository handles price bar database operations.
// It implements domain.PriceHistoryProvider.
type HistoryRepository struct {
	db      *sqlx.DB
	timeout time.Duration
	log     zerolog.Logger
}

type barRow struct {
	Date   int64   `db:"date"`
	Open   float64 `db:"open"`
	High   float64 `db:"high"`
	Low    float64 `db:"low"`
	Close  float64 `db:"close"`
	Volume float64 `db:"volume"`
}

// NewHistoryRepository creates a new price bar repository
func NewHistoryRepository(db *database.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:      db.X(),
		timeout: db.QueryTimeout(),
		log:     log.With().Str("repository", "history").Logger(),
	}
}

// SaveBars upserts bars for a symbol in one transaction. A bar replaces any
// existing bar with the same date.
func (r *HistoryRepository) SaveBars(ctx context.Context, symbol string, bars []domain.PriceBar) error {
	symbol = utils.NormalizeSymbol(symbol)
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := r.db.Rebind(`
		INSERT INTO price_bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)

	err := database.WithTransaction(r.db.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare bar insert: %w", err)
		}
		defer stmt.Close()

		for _, b := range bars {
			if _, err := stmt.ExecContext(ctx, symbol, dayKey(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
				return fmt.Errorf("failed to insert bar %s %s: %w", symbol, b.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Saved price bars")
	return nil
}

// GetBars returns bars within [from, to] ascending by date
func (r *HistoryRepository) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceBar, error) {
	symbol = utils.NormalizeSymbol(symbol)
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []barRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT date, open, high, low, close, volume FROM price_bars
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`), symbol, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query bars for %s: %w", symbol, err)
	}

	bars := make([]domain.PriceBar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, domain.PriceBar{
			Date:   time.Unix(row.Date, 0).UTC(),
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	return bars, nil
}

// dayKey truncates a bar date to its UTC day so re-imports dedupe.
func dayKey(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}
