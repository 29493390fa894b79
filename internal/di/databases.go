package di

import (
	"fmt"

	"github.com/fingenie/quantcore/internal/config"
	"github.com/fingenie/quantcore/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the configured database and applies the schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Driver:  database.Driver(cfg.DBDriver),
		Path:    cfg.SQLitePath(),
		DSN:     cfg.DBDSN,
		Profile: database.ProfileStandard,
		Name:    "quantcore",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().
		Str("driver", cfg.DBDriver).
		Str("name", db.Name()).
		Msg("Database initialized")

	return &Container{DB: db}, nil
}
