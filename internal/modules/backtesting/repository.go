package backtesting

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

// StoredRun is a persisted backtest
type StoredRun struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	Symbols    []string       `json:"symbols"`
	Config     StrategyConfig `json:"config"`
	Result     BacktestResult `json:"result"`
	ArchiveURL string         `json:"archive_url,omitempty"`
}

// Repository persists backtest runs.
// Database: backtest_runs table, payload is msgpack-encoded runPayload.
type Repository struct {
	db      *sqlx.DB
	timeout time.Duration
	log     zerolog.Logger
}

type runPayload struct {
	Symbols []string       `msgpack:"symbols"`
	Config  StrategyConfig `msgpack:"config"`
	Result  BacktestResult `msgpack:"result"`
}

type runRow struct {
	ID         string `db:"id"`
	CreatedAt  int64  `db:"created_at"`
	ArchiveURL string `db:"archive_url"`
	Payload    []byte `db:"payload"`
}

// NewRepository creates a new backtest run repository
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:      db.X(),
		timeout: db.QueryTimeout(),
		log:     log.With().Str("repository", "backtest_run").Logger(),
	}
}

// Save inserts a run
func (r *Repository) Save(ctx context.Context, run StoredRun) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload, err := msgpack.Marshal(runPayload{Symbols: run.Symbols, Config: run.Config, Result: run.Result})
	if err != nil {
		return fmt.Errorf("failed to encode backtest run: %w", err)
	}

	query := r.db.Rebind(`
		INSERT INTO backtest_runs
		(id, created_at, strategy_type, start_date, end_date, initial_capital, total_return, archive_url, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.CreatedAt.Unix(),
		string(run.Config.Type),
		run.Config.StartDate.Unix(),
		run.Config.EndDate.Unix(),
		run.Config.InitialCapital,
		run.Result.TotalReturn,
		run.ArchiveURL,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert backtest run %s: %w", run.ID, err)
	}

	r.log.Debug().Str("id", run.ID).Int("trades", run.Result.TotalTrades).Msg("Saved backtest run")
	return nil
}

// Get returns a run by id or domain.ErrNotFound
func (r *Repository) Get(ctx context.Context, id string) (*StoredRun, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, created_at, archive_url, payload FROM backtest_runs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest run %s: %w", id, err)
	}

	run, err := row.decode()
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns up to limit runs, newest first
func (r *Repository) List(ctx context.Context, limit int) ([]StoredRun, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, created_at, archive_url, payload FROM backtest_runs
		ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list backtest runs: %w", err)
	}

	out := make([]StoredRun, 0, len(rows))
	for _, row := range rows {
		run, err := row.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

// SetArchiveURL records where a run was archived
func (r *Repository) SetArchiveURL(ctx context.Context, id, url string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE backtest_runs SET archive_url = ? WHERE id = ?`), url, id)
	if err != nil {
		return fmt.Errorf("failed to update archive url for %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (row runRow) decode() (StoredRun, error) {
	var p runPayload
	if err := msgpack.Unmarshal(row.Payload, &p); err != nil {
		return StoredRun{}, fmt.Errorf("failed to decode backtest run %s: %w", row.ID, err)
	}
	return StoredRun{
		ID:         row.ID,
		CreatedAt:  time.Unix(row.CreatedAt, 0).UTC(),
		Symbols:    p.Symbols,
		Config:     p.Config,
		Result:     p.Result,
		ArchiveURL: row.ArchiveURL,
	}, nil
}
