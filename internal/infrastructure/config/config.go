// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	tolerance, _ := cfg.Reconcile.Tolerance()
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ReconcileConfig holds matching and linking settings
type ReconcileConfig struct {
	AmountTolerance     string        `yaml:"amount_tolerance"`
	MaxSubsetSize       int           `yaml:"max_subset_size"`
	MaxSearchNodes      int           `yaml:"max_search_nodes"`
	IncomingWindowDays  int           `yaml:"incoming_window_days"`
	OutgoingWindowDays  int           `yaml:"outgoing_window_days"`
	InvoicePrefixes     []string      `yaml:"invoice_prefixes"`
	BankAccountCacheTTL time.Duration `yaml:"bank_account_cache_ttl"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: "reconcile.db",
		},
		Reconcile: ReconcileConfig{
			AmountTolerance:     "0.01",
			MaxSubsetSize:       5,
			MaxSearchNodes:      200000,
			IncomingWindowDays:  3,
			OutgoingWindowDays:  5,
			InvoicePrefixes:     []string{"INV-"},
			BankAccountCacheTTL: 5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// Load reads and parses the config file. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECONCILE_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	def := Default()
	return &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("RECONCILE_DB_PATH", def.Storage.DatabasePath),
		},
		Reconcile: ReconcileConfig{
			AmountTolerance:     getEnv("RECONCILE_AMOUNT_TOLERANCE", def.Reconcile.AmountTolerance),
			MaxSubsetSize:       getEnvInt("RECONCILE_MAX_SUBSET_SIZE", def.Reconcile.MaxSubsetSize),
			MaxSearchNodes:      getEnvInt("RECONCILE_MAX_SEARCH_NODES", def.Reconcile.MaxSearchNodes),
			IncomingWindowDays:  getEnvInt("RECONCILE_INCOMING_WINDOW_DAYS", def.Reconcile.IncomingWindowDays),
			OutgoingWindowDays:  getEnvInt("RECONCILE_OUTGOING_WINDOW_DAYS", def.Reconcile.OutgoingWindowDays),
			InvoicePrefixes:     getEnvList("RECONCILE_INVOICE_PREFIXES", def.Reconcile.InvoicePrefixes),
			BankAccountCacheTTL: getEnvDuration("RECONCILE_BANK_ACCOUNT_CACHE_TTL", def.Reconcile.BankAccountCacheTTL),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", def.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", def.Observability.Logging.Format),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Tolerance parses the configured amount tolerance
func (r ReconcileConfig) Tolerance() (decimal.Decimal, error) {
	tol, err := decimal.NewFromString(strings.TrimSpace(r.AmountTolerance))
	if err != nil {
		return decimal.Zero, fmt.Errorf("reconcile.amount_tolerance: %w", err)
	}
	return tol, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Storage.DatabasePath) == "" {
		errs = append(errs, errors.New("storage.database_path is required"))
	}

	r := c.Reconcile
	if tol, err := r.Tolerance(); err != nil {
		errs = append(errs, err)
	} else if tol.IsNegative() {
		errs = append(errs, errors.New("reconcile.amount_tolerance must not be negative"))
	}
	if r.MaxSubsetSize < 1 {
		errs = append(errs, errors.New("reconcile.max_subset_size must be positive"))
	}
	if r.MaxSearchNodes < 0 {
		errs = append(errs, errors.New("reconcile.max_search_nodes must not be negative"))
	}
	if r.IncomingWindowDays < 0 || r.OutgoingWindowDays < 0 {
		errs = append(errs, errors.New("reconcile window days must not be negative"))
	}
	if r.BankAccountCacheTTL < 0 {
		errs = append(errs, errors.New("reconcile.bank_account_cache_ttl must not be negative"))
	}

	switch c.Observability.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("observability.logging.format %q is not text or json", c.Observability.Logging.Format))
	}

	return errors.Join(errs...)
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvDuration retrieves a duration environment variable (e.g. "90s")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList retrieves a comma-separated environment variable
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
