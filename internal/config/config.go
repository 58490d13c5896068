package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"./data/budgetory.db"`
	DatabaseURL    string `env:"DATABASE_URL"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`

	RatesBaseURL         string        `env:"RATES_BASE_URL" envDefault:"https://api.frankfurter.app"`
	RatesAnchor          string        `env:"RATES_ANCHOR" envDefault:"EUR"`
	RatesTimeout         time.Duration `env:"RATES_TIMEOUT" envDefault:"5s"`
	RatesCacheTTL        time.Duration `env:"RATES_CACHE_TTL" envDefault:"10m"`
	RatesCacheSize       int           `env:"RATES_CACHE_SIZE" envDefault:"32"`
	RatesRefreshInterval time.Duration `env:"RATES_REFRESH_INTERVAL" envDefault:"0s"`

	IdempotencySweepInterval time.Duration `env:"IDEMPOTENCY_SWEEP_INTERVAL" envDefault:"1h"`
}

// Load reads configuration from the environment, after applying any .env
// file in the working directory. Variables already set take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.RatesBaseURL == "" {
		return errors.New("RATES_BASE_URL must not be empty")
	}
	if c.RatesTimeout <= 0 {
		return errors.New("RATES_TIMEOUT must be positive")
	}
	if c.RatesCacheSize <= 0 {
		return errors.New("RATES_CACHE_SIZE must be positive")
	}
	if c.RatesRefreshInterval < 0 {
		return errors.New("RATES_REFRESH_INTERVAL must not be negative")
	}
	if c.IdempotencySweepInterval < 0 {
		return errors.New("IDEMPOTENCY_SWEEP_INTERVAL must not be negative")
	}
	return nil
}
