package rebalancing

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

// Repository persists rebalancing plans.
// Database: rebalancing_plans table, payload is msgpack-encoded RebalancingPlan.
type Repository struct {
	db      *sqlx.DB
	timeout time.Duration
	log     zerolog.Logger
}

type planRow struct {
	ID               string  `db:"id"`
	CreatedAt        int64   `db:"created_at"`
	UpdatedAt        int64   `db:"updated_at"`
	Strategy         string  `db:"strategy"`
	Status           string  `db:"status"`
	ThresholdPercent float64 `db:"threshold_percent"`
	Payload          []byte  `db:"payload"`
}

const planColumns = `id, created_at, updated_at, strategy, status, threshold_percent, payload`

// NewRepository creates a new plan repository
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:      db.X(),
		timeout: db.QueryTimeout(),
		log:     log.With().Str("repository", "rebalancing_plan").Logger(),
	}
}

// Save inserts a plan
func (r *Repository) Save(ctx context.Context, p StoredPlan) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload, err := msgpack.Marshal(p.Plan)
	if err != nil {
		return fmt.Errorf("failed to encode rebalancing plan: %w", err)
	}

	query := r.db.Rebind(`
		INSERT INTO rebalancing_plans
		(id, created_at, updated_at, strategy, status, threshold_percent, total_tax_liability, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.CreatedAt.Unix(),
		p.UpdatedAt.Unix(),
		string(p.Strategy),
		string(p.Status),
		p.ThresholdPercent,
		p.Plan.TotalTaxLiability,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rebalancing plan %s: %w", p.ID, err)
	}

	r.log.Debug().Str("id", p.ID).Str("strategy", string(p.Strategy)).Msg("Saved rebalancing plan")
	return nil
}

// Get returns a plan by id or domain.ErrNotFound
func (r *Repository) Get(ctx context.Context, id string) (*StoredPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row planRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+planColumns+` FROM rebalancing_plans WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rebalancing plan %s: %w", id, err)
	}

	p, err := row.decode()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns up to limit plans, newest first. An empty status matches all.
func (r *Repository) List(ctx context.Context, status PlanStatus, limit int) ([]StoredPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		rows []planRow
		err  error
	)
	if status == "" {
		err = r.db.SelectContext(ctx, &rows, r.db.Rebind(`
			SELECT `+planColumns+` FROM rebalancing_plans
			ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	} else {
		err = r.db.SelectContext(ctx, &rows, r.db.Rebind(`
			SELECT `+planColumns+` FROM rebalancing_plans
			WHERE status = ?
			ORDER BY created_at DESC, id DESC LIMIT ?`), string(status), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list rebalancing plans: %w", err)
	}

	out := make([]StoredPlan, 0, len(rows))
	for _, row := range rows {
		p, err := row.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// UpdateStatus moves a plan from one status to another. It fails with
// ErrInvalidTransition when the stored status is no longer from.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to PlanStatus, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return database.WithTransaction(r.db.DB, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, r.db.Rebind(`SELECT status FROM rebalancing_plans WHERE id = ?`), id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read plan status: %w", err)
		}
		if PlanStatus(current) != from {
			return fmt.Errorf("%w: plan %s is %s", ErrInvalidTransition, id, current)
		}

		_, err = tx.ExecContext(ctx, r.db.Rebind(`
			UPDATE rebalancing_plans SET status = ?, updated_at = ? WHERE id = ?`),
			string(to), at.Unix(), id)
		if err != nil {
			return fmt.Errorf("failed to update plan status: %w", err)
		}
		return nil
	})
}

func (row planRow) decode() (StoredPlan, error) {
	var plan RebalancingPlan
	if err := msgpack.Unmarshal(row.Payload, &plan); err != nil {
		return StoredPlan{}, fmt.Errorf("failed to decode rebalancing plan %s: %w", row.ID, err)
	}
	return StoredPlan{
		ID:               row.ID,
		Strategy:         Strategy(row.Strategy),
		Status:           PlanStatus(row.Status),
		ThresholdPercent: row.ThresholdPercent,
		CreatedAt:        time.Unix(row.CreatedAt, 0).UTC(),
		UpdatedAt:        time.Unix(row.UpdatedAt, 0).UTC(),
		Plan:             plan,
	}, nil
}
