package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: ledger.db
reconcile:
  amount_tolerance: "0.05"
  max_subset_size: 4
  outgoing_window_days: 7
  invoice_prefixes: ["INV-", "BILL-"]
  bank_account_cache_ttl: 90s
observability:
  logging:
    level: debug
    format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ledger.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 4, cfg.Reconcile.MaxSubsetSize)
	assert.Equal(t, 7, cfg.Reconcile.OutgoingWindowDays)
	assert.Equal(t, []string{"INV-", "BILL-"}, cfg.Reconcile.InvoicePrefixes)
	assert.Equal(t, 90*time.Second, cfg.Reconcile.BankAccountCacheTTL)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)

	tol, err := cfg.Reconcile.Tolerance()
	require.NoError(t, err)
	assert.True(t, tol.Equal(decimal.RequireFromString("0.05")))

	// Keys absent from the file keep their defaults
	assert.Equal(t, 3, cfg.Reconcile.IncomingWindowDays)
	assert.Equal(t, 200000, cfg.Reconcile.MaxSearchNodes)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RECONCILE_DB_PATH", "test.db")
	t.Setenv("RECONCILE_MAX_SUBSET_SIZE", "6")
	t.Setenv("RECONCILE_INVOICE_PREFIXES", "INV-, TAX-")
	t.Setenv("RECONCILE_BANK_ACCOUNT_CACHE_TTL", "1m")

	cfg := LoadFromEnv()
	assert.Equal(t, "test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 6, cfg.Reconcile.MaxSubsetSize)
	assert.Equal(t, []string{"INV-", "TAX-"}, cfg.Reconcile.InvoicePrefixes)
	assert.Equal(t, time.Minute, cfg.Reconcile.BankAccountCacheTTL)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	os.Unsetenv("RECONCILE_DB_PATH")
	os.Unsetenv("RECONCILE_MAX_SUBSET_SIZE")

	cfg := LoadFromEnv()
	assert.Equal(t, "reconcile.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 5, cfg.Reconcile.MaxSubsetSize)
	assert.Equal(t, "0.01", cfg.Reconcile.AmountTolerance)
	assert.Equal(t, 5*time.Minute, cfg.Reconcile.BankAccountCacheTTL)
}

func TestLoadOrEnv_FallbackToEnv(t *testing.T) {
	t.Setenv("RECONCILE_DB_PATH", "fallback.db")

	cfg := LoadOrEnv_WithPath("nonexistent.yaml")
	assert.NotNil(t, cfg)
	assert.Equal(t, "fallback.db", cfg.Storage.DatabasePath)
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "expanded.db")
	path := writeConfig(t, `
storage:
  database_path: "${TEST_DB_PATH}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded.db", cfg.Storage.DatabasePath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero subset size", func(c *Config) { c.Reconcile.MaxSubsetSize = 0 }, "max_subset_size"},
		{"negative tolerance", func(c *Config) { c.Reconcile.AmountTolerance = "-0.01" }, "amount_tolerance"},
		{"bad tolerance", func(c *Config) { c.Reconcile.AmountTolerance = "cents" }, "amount_tolerance"},
		{"negative window", func(c *Config) { c.Reconcile.OutgoingWindowDays = -1 }, "window"},
		{"bad log format", func(c *Config) { c.Observability.Logging.Format = "xml" }, "format"},
		{"no database", func(c *Config) { c.Storage.DatabasePath = "" }, "database_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
