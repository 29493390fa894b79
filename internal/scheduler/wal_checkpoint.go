package scheduler

import (
	"context"

	"github.com/fingenie/quantcore/internal/database"
	"github.com/rs/zerolog"
)

// walWarnBytes is the WAL size above which a checkpoint is logged at warn.
const walWarnBytes = 64 << 20

// WALCheckpointJob truncates the SQLite write-ahead log.
type WALCheckpointJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewWALCheckpointJob creates a new WALCheckpointJob. db may be nil.
func NewWALCheckpointJob(db *database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints the database. It is a no-op on PostgreSQL.
func (j *WALCheckpointJob) Run(ctx context.Context) error {
	if j.db == nil || j.db.Driver() != database.DriverSQLite {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	before, err := j.db.GetStats()
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read database stats")
	} else if before.WALSizeBytes > walWarnBytes {
		j.log.Warn().
			Int64("wal_bytes", before.WALSizeBytes).
			Msg("WAL file is large, truncating")
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		return err
	}

	j.log.Debug().Str("database", j.db.Name()).Msg("WAL checkpoint completed")
	return nil
}
