package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fingenie/quantcore/internal/database"
	"github.com/fingenie/quantcore/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// StoredAnalytics is a persisted analytics snapshot.
type StoredAnalytics struct {
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	HoldingsCount int             `json:"holdings_count"`
	Result        AnalyticsResult `json:"result"`
}

// Repository persists analytics snapshots.
// Database: analytics_results table, payload is msgpack-encoded AnalyticsResult.
type Repository struct {
	db      *sqlx.DB
	timeout time.Duration
	log     zerolog.Logger
}

type analyticsRow struct {
	ID            string `db:"id"`
	CreatedAt     int64  `db:"created_at"`
	HoldingsCount int    `db:"holdings_count"`
	Payload       []byte `db:"payload"`
}

// NewRepository creates a new analytics repository
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:      db.X(),
		timeout: db.QueryTimeout(),
		log:     log.With().Str("repository", "analytics").Logger(),
	}
}

// Save inserts a snapshot
func (r *Repository) Save(ctx context.Context, rec StoredAnalytics) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload, err := msgpack.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to encode analytics result: %w", err)
	}

	query := r.db.Rebind(`
		INSERT INTO analytics_results (id, created_at, holdings_count, total_value, risk_score, payload)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.CreatedAt.Unix(),
		rec.HoldingsCount,
		rec.Result.TotalValue,
		rec.Result.RiskScore,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analytics result %s: %w", rec.ID, err)
	}

	r.log.Debug().Str("id", rec.ID).Int("holdings", rec.HoldingsCount).Msg("Saved analytics result")
	return nil
}

// Latest returns the most recent snapshot or domain.ErrNotFound
func (r *Repository) Latest(ctx context.Context) (*StoredAnalytics, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row analyticsRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, created_at, holdings_count, payload
		FROM analytics_results
		ORDER BY created_at DESC, id DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest analytics result: %w", err)
	}

	rec, err := row.decode()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns up to limit snapshots, newest first
func (r *Repository) List(ctx context.Context, limit int) ([]StoredAnalytics, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []analyticsRow
	query := r.db.Rebind(`
		SELECT id, created_at, holdings_count, payload
		FROM analytics_results
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list analytics results: %w", err)
	}

	out := make([]StoredAnalytics, 0, len(rows))
	for _, row := range rows {
		rec, err := row.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (row analyticsRow) decode() (StoredAnalytics, error) {
	var result AnalyticsResult
	if err := msgpack.Unmarshal(row.Payload, &result); err != nil {
		return StoredAnalytics{}, fmt.Errorf("failed to decode analytics result %s: %w", row.ID, err)
	}
	return StoredAnalytics{
		ID:            row.ID,
		CreatedAt:     time.Unix(row.CreatedAt, 0).UTC(),
		HoldingsCount: row.HoldingsCount,
		Result:        result,
	}, nil
}
