// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fingenie/quantcore/internal/utils"
	"github.com/joho/godotenv"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Directory for the sqlite file, always absolute
	DBDriver string
	DBDSN    string // Postgres DSN, required when DBDriver is postgres
	Port     int
	LogLevel string
	DevMode  bool

	CORSAllowedOrigins []string

	Redis         RedisConfig
	PriceCacheTTL time.Duration

	Archive ArchiveConfig

	RebalanceThresholdPercent float64
	AnalyticsSnapshotSchedule string // cron spec with seconds
	APIRateLimitRPS           float64
}

// RedisConfig enables the Redis price cache when Addr is set
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ArchiveConfig enables S3 result archiving when Bucket is set
type ArchiveConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("QUANT_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            dataDir,
		DBDriver:           getEnv("QUANT_DB_DRIVER", DriverSQLite),
		DBDSN:              getEnv("QUANT_DB_DSN", ""),
		Port:               getEnvAsInt("QUANT_PORT", 8080),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		PriceCacheTTL: getEnvAsDuration("PRICE_CACHE_TTL", 15*time.Minute),
		Archive: ArchiveConfig{
			Bucket:          getEnv("S3_ARCHIVE_BUCKET", ""),
			Prefix:          getEnv("S3_ARCHIVE_PREFIX", "quantcore/"),
			Region:          getEnv("S3_ARCHIVE_REGION", ""),
			Endpoint:        getEnv("S3_ARCHIVE_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_ARCHIVE_SECRET_ACCESS_KEY", ""),
		},
		RebalanceThresholdPercent: getEnvAsFloat("REBALANCE_THRESHOLD_PERCENT", 5),
		AnalyticsSnapshotSchedule: getEnv("ANALYTICS_SNAPSHOT_SCHEDULE", "0 0 18 * * MON-FRI"),
		APIRateLimitRPS:           getEnvAsFloat("API_RATE_LIMIT_RPS", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("QUANT_DB_DSN is required when QUANT_DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported QUANT_DB_DRIVER %q", c.DBDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid QUANT_PORT %d", c.Port)
	}
	if c.RebalanceThresholdPercent < 0 {
		return fmt.Errorf("REBALANCE_THRESHOLD_PERCENT must not be negative")
	}
	if c.APIRateLimitRPS <= 0 {
		return fmt.Errorf("API_RATE_LIMIT_RPS must be positive")
	}
	return nil
}

// SQLitePath is the database file used with the sqlite driver
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "quantcore.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if list := utils.ParseList(os.Getenv(key)); list != nil {
		return list
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
