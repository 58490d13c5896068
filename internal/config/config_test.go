package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"PORT", "STORAGE_BACKEND", "SQLITE_PATH", "DATABASE_URL", "RATES_BASE_URL", "RATES_TIMEOUT", "RATES_REFRESH_INTERVAL", "IDEMPOTENCY_SWEEP_INTERVAL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, "./data/budgetory.db", cfg.SQLitePath)
	assert.Equal(t, "https://api.frankfurter.app", cfg.RatesBaseURL)
	assert.Equal(t, "EUR", cfg.RatesAnchor)
	assert.Equal(t, 5*time.Second, cfg.RatesTimeout)
	assert.Equal(t, 10*time.Minute, cfg.RatesCacheTTL)
	assert.Equal(t, time.Duration(0), cfg.RatesRefreshInterval)
	assert.Equal(t, time.Hour, cfg.IdempotencySweepInterval)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/budgetory")
	t.Setenv("RATES_TIMEOUT", "750ms")
	t.Setenv("RATES_REFRESH_INTERVAL", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StorageBackend)
	assert.Equal(t, 750*time.Millisecond, cfg.RatesTimeout)
	assert.Equal(t, 2*time.Minute, cfg.RatesRefreshInterval)
}

func TestValidate(t *testing.T) {
	valid := Config{
		StorageBackend: BackendSQLite,
		SQLitePath:     "ledger.db",
		RatesBaseURL:   "http://localhost:8081",
		RatesTimeout:   time.Second,
		RatesCacheSize: 8,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid sqlite", func(c *Config) {}, ""},
		{"memory needs nothing", func(c *Config) { c.StorageBackend = BackendMemory; c.SQLitePath = "" }, ""},
		{"unknown backend", func(c *Config) { c.StorageBackend = "redis" }, "unknown STORAGE_BACKEND"},
		{"postgres without url", func(c *Config) { c.StorageBackend = BackendPostgres }, "DATABASE_URL"},
		{"sqlite without path", func(c *Config) { c.SQLitePath = "" }, "SQLITE_PATH"},
		{"zero timeout", func(c *Config) { c.RatesTimeout = 0 }, "RATES_TIMEOUT"},
		{"zero cache size", func(c *Config) { c.RatesCacheSize = 0 }, "RATES_CACHE_SIZE"},
		{"negative refresh", func(c *Config) { c.RatesRefreshInterval = -time.Second }, "RATES_REFRESH_INTERVAL"},
		{"negative sweep", func(c *Config) { c.IdempotencySweepInterval = -time.Second }, "IDEMPOTENCY_SWEEP_INTERVAL"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	t.Setenv("STORAGE_BACKEND", "memory")

	require.NoError(t, os.WriteFile(dir+"/.env", []byte("PORT=7070\nSTORAGE_BACKEND=postgres\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StorageBackend, "environment wins over .env")
}
