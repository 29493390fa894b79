// Package database provides database connection and initialization functionality.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed schemas/*.sql
var schemaFS embed.FS

// Driver selects the SQL backend
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// DatabaseProfile defines different configuration profiles for SQLite databases
type DatabaseProfile string

const (
	// ProfileDurable - fsync after every write, for stored results
	ProfileDurable DatabaseProfile = "durable"
	// ProfileCache - Maximum speed for ephemeral data
	ProfileCache DatabaseProfile = "cache"
	// ProfileStandard - Balanced configuration for most databases
	ProfileStandard DatabaseProfile = "standard"
)

// DB wraps the database connection with production-grade configuration
type DB struct {
	conn    *sqlx.DB
	driver  Driver
	path    string
	profile DatabaseProfile
	name    string // Database name for logging
	timeout time.Duration
}

// DefaultQueryTimeout bounds a single repository call when Config.QueryTimeout is unset.
const DefaultQueryTimeout = 10 * time.Second

// Config holds database configuration
type Config struct {
	Driver       Driver
	Path         string // SQLite file path
	DSN          string // PostgreSQL DSN
	Profile      DatabaseProfile
	Name         string // Friendly name for logging
	QueryTimeout time.Duration
}

// New creates a new database connection with production-grade configuration
func New(cfg Config) (*DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	if cfg.Profile == "" {
		cfg.Profile = ProfileStandard
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}

	var dataSource string
	switch cfg.Driver {
	case DriverSQLite:
		if !strings.HasPrefix(cfg.Path, "file:") {
			absPath, err := filepath.Abs(cfg.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
			cfg.Path = absPath
		}
		dataSource = buildConnectionString(cfg.Path, cfg.Profile)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database DSN is required for %s", cfg.Driver)
		}
		dataSource = cfg.DSN
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := sqlx.Open(string(cfg.Driver), dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Name, err)
	}

	configureConnectionPool(conn, cfg.Driver, cfg.Profile)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Name, err)
	}

	return &DB{
		conn:    conn,
		driver:  cfg.Driver,
		path:    cfg.Path,
		profile: cfg.Profile,
		name:    cfg.Name,
		timeout: cfg.QueryTimeout,
	}, nil
}

// buildConnectionString creates SQLite connection string with profile-specific PRAGMAs
func buildConnectionString(path string, profile DatabaseProfile) string {
	connStr := path + "?_pragma=journal_mode(WAL)"

	switch profile {
	case ProfileDurable:
		connStr += "&_pragma=synchronous(FULL)"
		connStr += "&_pragma=auto_vacuum(NONE)"

	case ProfileCache:
		connStr += "&_pragma=synchronous(OFF)"
		connStr += "&_pragma=auto_vacuum(FULL)"
		connStr += "&_pragma=temp_store(MEMORY)"

	case ProfileStandard:
		connStr += "&_pragma=synchronous(NORMAL)"
		connStr += "&_pragma=auto_vacuum(INCREMENTAL)"
		connStr += "&_pragma=temp_store(MEMORY)"
	}

	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=busy_timeout(5000)"
	connStr += "&_pragma=wal_autocheckpoint(1000)" // pages
	connStr += "&_pragma=cache_size(-64000)"       // 64MB (negative = KB)

	return connStr
}

// configureConnectionPool sets up connection pool for long-term operation
func configureConnectionPool(conn *sqlx.DB, driver Driver, profile DatabaseProfile) {
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(24 * time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)

	if driver == DriverPostgres {
		conn.SetConnMaxLifetime(30 * time.Minute)
		conn.SetConnMaxIdleTime(5 * time.Minute)
		return
	}

	if profile == ProfileCache {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(2)
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn.DB
}

// X returns the sqlx handle used by repositories
func (db *DB) X() *sqlx.DB {
	return db.conn
}

// Driver returns the SQL backend in use
func (db *DB) Driver() Driver {
	return db.driver
}

// QueryTimeout returns the per-call timeout repositories apply
func (db *DB) QueryTimeout() time.Duration {
	return db.timeout
}

// Name returns the database name for logging
func (db *DB) Name() string {
	return db.name
}

// Profile returns the database profile
func (db *DB) Profile() DatabaseProfile {
	return db.profile
}

// Path returns the database file path (empty for PostgreSQL)
func (db *DB) Path() string {
	return db.path
}

// Migrate applies the embedded schema for the active driver.
// Every statement is idempotent so Migrate is safe to run on each start.
func (db *DB) Migrate() error {
	schemaFile := fmt.Sprintf("schemas/quantcore_%s.sql", db.driver)
	content, err := schemaFS.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read schema %s: %w", schemaFile, err)
	}

	return WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute schema %s for %s: %w", schemaFile, db.name, err)
		}
		return nil
	})
}

// WithTransaction executes a function within a database transaction.
// It handles begin, commit, rollback, panic recovery, and error wrapping automatically.
func WithTransaction(db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rollbackErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck performs a comprehensive health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed for %s: %w", db.name, err)
	}

	if db.driver != DriverSQLite {
		return nil
	}

	var integrityResult string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		return fmt.Errorf("integrity check query failed for %s: %w", db.name, err)
	}
	if integrityResult != "ok" {
		return fmt.Errorf("integrity check failed for %s: %s", db.name, integrityResult)
	}

	return nil
}

// WALCheckpoint forces a WAL checkpoint to prevent bloat. No-op on PostgreSQL.
func (db *DB) WALCheckpoint(mode string) error {
	if db.driver != DriverSQLite {
		return nil
	}
	// Modes: PASSIVE, FULL, RESTART, TRUNCATE
	if mode == "" {
		mode = "TRUNCATE"
	}

	if _, err := db.conn.Exec(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode)); err != nil {
		return fmt.Errorf("WAL checkpoint failed for %s: %w", db.name, err)
	}

	return nil
}

// Stats returns database statistics
type Stats struct {
	Driver          string `json:"driver"`
	SizeBytes       int64  `json:"size_bytes"`
	WALSizeBytes    int64  `json:"wal_size_bytes"`
	PageCount       int64  `json:"page_count"`
	PageSize        int64  `json:"page_size"`
	FreelistCount   int64  `json:"freelist_count"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
}

// GetStats retrieves database statistics. File and page figures are only
// reported for SQLite.
func (db *DB) GetStats() (*Stats, error) {
	pool := db.conn.Stats()
	stats := &Stats{
		Driver:          string(db.driver),
		OpenConnections: pool.OpenConnections,
		InUse:           pool.InUse,
	}
	if db.driver != DriverSQLite {
		return stats, nil
	}

	if fileInfo, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = fileInfo.Size()
	}
	if fileInfo, err := os.Stat(db.path + "-wal"); err == nil {
		stats.WALSizeBytes = fileInfo.Size()
	}

	if err := db.conn.QueryRow("PRAGMA page_count").Scan(&stats.PageCount); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := db.conn.QueryRow("PRAGMA page_size").Scan(&stats.PageSize); err != nil {
		return nil, fmt.Errorf("failed to get page size: %w", err)
	}
	if err := db.conn.QueryRow("PRAGMA freelist_count").Scan(&stats.FreelistCount); err != nil {
		return nil, fmt.Errorf("failed to get freelist count: %w", err)
	}

	return stats, nil
}
