// Package portfolio stores the holdings the engines run on.
package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fingenie/quantcore/internal/database"
	"github.com/fingenie/quantcore/internal/domain"
	"github.com/fingenie/quantcore/internal/utils"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// ErrInvalidHolding is returned for a holding that cannot be stored
var ErrInvalidHolding = errors.New("invalid holding")

// ValidateHolding checks the fields every engine relies on
func ValidateHolding(h domain.Holding) error {
	switch {
	case strings.TrimSpace(h.Symbol) == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidHolding)
	case !(h.Quantity > 0):
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidHolding)
	case !(h.BuyPrice > 0):
		return fmt.Errorf("%w: buy_price must be positive", ErrInvalidHolding)
	case !(h.CurrentPrice >= 0):
		return fmt.Errorf("%w: current_price must not be negative", ErrInvalidHolding)
	}
	return nil
}

// HoldingRepository handles holding database operations.
// It implements domain.HoldingsProvider.
type HoldingRepository struct {
	db      *sqlx.DB
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

type holdingRow struct {
	Symbol       string        `db:"symbol"`
	Name         string        `db:"name"`
	Quantity     float64       `db:"quantity"`
	BuyPrice     float64       `db:"buy_price"`
	CurrentPrice float64       `db:"current_price"`
	Sector       string        `db:"sector"`
	AcquiredAt   sql.NullInt64 `db:"acquired_at"`
}

const holdingColumns = `symbol, name, quantity, buy_price, current_price, sector, acquired_at`

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *database.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:      db.X(),
		timeout: db.QueryTimeout(),
		now:     time.Now,
		log:     log.With().Str("repository", "holding").Logger(),
	}
}

// GetAll returns all holdings ordered by symbol
func (r *HoldingRepository) GetAll(ctx context.Context) ([]domain.Holding, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []holdingRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+holdingColumns+` FROM holdings ORDER BY symbol`); err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}

	holdings := make([]domain.Holding, 0, len(rows))
	for _, row := range rows {
		holdings = append(holdings, row.toDomain())
	}
	return holdings, nil
}

// Get returns one holding or domain.ErrNotFound
func (r *HoldingRepository) Get(ctx context.Context, symbol string) (*domain.Holding, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row holdingRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+holdingColumns+` FROM holdings WHERE symbol = ?`),
		utils.NormalizeSymbol(symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query holding %s: %w", symbol, err)
	}
	h := row.toDomain()
	return &h, nil
}

// Upsert inserts or replaces a holding keyed by its normalized symbol
func (r *HoldingRepository) Upsert(ctx context.Context, h domain.Holding) error {
	if err := ValidateHolding(h); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var acquired sql.NullInt64
	if h.AcquiredAt != nil {
		acquired = sql.NullInt64{Int64: h.AcquiredAt.Unix(), Valid: true}
	}

	query := r.db.Rebind(`
		INSERT INTO holdings (symbol, name, quantity, buy_price, current_price, sector, acquired_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			name = excluded.name,
			quantity = excluded.quantity,
			buy_price = excluded.buy_price,
			current_price = excluded.current_price,
			sector = excluded.sector,
			acquired_at = excluded.acquired_at,
			updated_at = excluded.updated_at`)
	_, err := r.db.ExecContext(ctx, query,
		utils.NormalizeSymbol(h.Symbol),
		h.Name,
		h.Quantity,
		h.BuyPrice,
		h.CurrentPrice,
		h.Sector,
		acquired,
		r.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s: %w", h.Symbol, err)
	}

	r.log.Debug().Str("symbol", h.Symbol).Float64("quantity", h.Quantity).Msg("Upserted holding")
	return nil
}

// Delete removes a holding. It returns domain.ErrNotFound when nothing was deleted.
func (r *HoldingRepository) Delete(ctx context.Context, symbol string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM holdings WHERE symbol = ?`), utils.NormalizeSymbol(symbol))
	if err != nil {
		return fmt.Errorf("failed to delete holding %s: %w", symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (row holdingRow) toDomain() domain.Holding {
	h := domain.Holding{
		Symbol:       row.Symbol,
		Name:         row.Name,
		Quantity:     row.Quantity,
		BuyPrice:     row.BuyPrice,
		CurrentPrice: row.CurrentPrice,
		Sector:       row.Sector,
	}
	if row.AcquiredAt.Valid {
		t := time.Unix(row.AcquiredAt.Int64, 0).UTC()
		h.AcquiredAt = &t
	}
	return h
}
