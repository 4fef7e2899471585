package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"spinly/internal/blobstore"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP
	Addr string

	// Storage
	DataDir       string
	StorageDriver string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SeedStockFile string

	// Sessions
	SettleTimeout   time.Duration
	IdleTimeout     time.Duration
	JanitorSchedule string

	// Spin endpoint rate limit, per client IP
	SpinRateLimit float64
	SpinRateBurst int

	LogVerbose  bool
	Environment string // "development" or "production"
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg := &Config{
		Addr:            getEnvWithDefault("ADDR", ":8080"),
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
		DataDir:         getEnvWithDefault("DATA_DIR", filepath.Join(wd, "data")),
		StorageDriver:   getEnvWithDefault("STORAGE_DRIVER", blobstore.DriverFile),
		SQLitePath:      os.Getenv("SQLITE_PATH"),
		RedisAddr:       getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		SeedStockFile:   os.Getenv("SEED_STOCK_FILE"),
		JanitorSchedule: getEnvWithDefault("JANITOR_SCHEDULE", "@every 1m"),
	}

	if cfg.RedisDB, err = getIntEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.SettleTimeout, err = getDurationEnv("SETTLE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.IdleTimeout, err = getDurationEnv("SESSION_IDLE_TIMEOUT", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SpinRateLimit, err = getFloatEnv("SPIN_RATE_LIMIT", 2); err != nil {
		return nil, err
	}
	if cfg.SpinRateBurst, err = getIntEnv("SPIN_RATE_BURST", 5); err != nil {
		return nil, err
	}
	if cfg.LogVerbose, err = getBoolEnv("LOG_VERBOSE", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// validate checks that the loaded values are usable
func (c *Config) validate() error {
	switch c.StorageDriver {
	case blobstore.DriverMemory, blobstore.DriverFile, blobstore.DriverSQLite, blobstore.DriverRedis:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of memory, file, sqlite, redis; got %q", c.StorageDriver)
	}
	if c.SettleTimeout <= 0 {
		return fmt.Errorf("SETTLE_TIMEOUT must be positive")
	}
	if c.IdleTimeout <= c.SettleTimeout {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be longer than SETTLE_TIMEOUT")
	}
	if c.SpinRateLimit <= 0 || c.SpinRateBurst <= 0 {
		return fmt.Errorf("SPIN_RATE_LIMIT and SPIN_RATE_BURST must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// BlobOptions returns the storage backend settings.
func (c *Config) BlobOptions() blobstore.Options {
	return blobstore.Options{
		Driver:     c.StorageDriver,
		DataDir:    c.DataDir,
		SQLitePath: c.SQLitePath,
		Redis: blobstore.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   "spinly",
		},
	}
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getFloatEnv(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}

func getBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s: %w", key, err)
	}
	return v, nil
}
