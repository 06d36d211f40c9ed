// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/siteledger/capital/internal/modules/fees"
	"github.com/siteledger/capital/internal/utils"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for ledger.db (defaults to "./data", always absolute)
	LogLevel         string
	Port             int
	DevMode          bool
	CORSOrigins      []string
	SnapshotSchedule string // Cron spec for the platform gauge refresh; empty disables it
	FeePolicyFile    string
	DefaultTerms     fees.FinanceTerms
	Policy           fees.Policy
}

// feePolicyFile is the YAML overlay for fee parameters.
// Amounts are strings so they parse exactly into decimals.
type feePolicyFile struct {
	DefaultTerms struct {
		PlatformFeeRate           string `yaml:"platform_fee_rate"`
		PlatformFeeCap            string `yaml:"platform_fee_cap"`
		ParticipationFeeRateDaily string `yaml:"participation_fee_rate_daily"`
	} `yaml:"default_terms"`
	Policy struct {
		ManagementFeeRate  string `yaml:"management_fee_rate"`
		HurdleRate         string `yaml:"hurdle_rate"`
		PerformanceFeeRate string `yaml:"performance_fee_rate"`
	} `yaml:"policy"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("CAPITAL_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("GO_PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSOrigins:      utils.ParseCSV(getEnv("CORS_ORIGINS", "")),
		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "@every 5m"),
		FeePolicyFile:    getEnv("FEE_POLICY_FILE", ""),
		DefaultTerms:     fees.DefaultTerms(),
		Policy:           fees.DefaultPolicy(),
	}

	// Environment overrides for the platform default terms
	if cfg.DefaultTerms.PlatformFeeRate, err = getEnvAsDecimal("DEFAULT_PLATFORM_FEE_RATE", cfg.DefaultTerms.PlatformFeeRate); err != nil {
		return nil, err
	}
	if cfg.DefaultTerms.PlatformFeeCap, err = getEnvAsDecimal("DEFAULT_PLATFORM_FEE_CAP", cfg.DefaultTerms.PlatformFeeCap); err != nil {
		return nil, err
	}
	if cfg.DefaultTerms.ParticipationFeeRateDaily, err = getEnvAsDecimal("DEFAULT_PARTICIPATION_FEE_RATE_DAILY", cfg.DefaultTerms.ParticipationFeeRateDaily); err != nil {
		return nil, err
	}

	// The policy file wins over environment values
	if cfg.FeePolicyFile != "" {
		if err := cfg.applyFeePolicyFile(cfg.FeePolicyFile); err != nil {
			return nil, err
		}
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyFeePolicyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fee policy file: %w", err)
	}

	var file feePolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse fee policy file: %w", err)
	}

	overrides := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"default_terms.platform_fee_rate", file.DefaultTerms.PlatformFeeRate, &c.DefaultTerms.PlatformFeeRate},
		{"default_terms.platform_fee_cap", file.DefaultTerms.PlatformFeeCap, &c.DefaultTerms.PlatformFeeCap},
		{"default_terms.participation_fee_rate_daily", file.DefaultTerms.ParticipationFeeRateDaily, &c.DefaultTerms.ParticipationFeeRateDaily},
		{"policy.management_fee_rate", file.Policy.ManagementFeeRate, &c.Policy.ManagementFeeRate},
		{"policy.hurdle_rate", file.Policy.HurdleRate, &c.Policy.HurdleRate},
		{"policy.performance_fee_rate", file.Policy.PerformanceFeeRate, &c.Policy.PerformanceFeeRate},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		d, err := decimal.NewFromString(o.value)
		if err != nil {
			return fmt.Errorf("invalid %s in fee policy file: %w", o.name, err)
		}
		*o.dst = d
	}
	return nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT: %d", c.Port)
	}

	for name, v := range map[string]decimal.Decimal{
		"platform fee rate":      c.DefaultTerms.PlatformFeeRate,
		"platform fee cap":       c.DefaultTerms.PlatformFeeCap,
		"participation fee rate": c.DefaultTerms.ParticipationFeeRateDaily,
		"management fee rate":    c.Policy.ManagementFeeRate,
		"hurdle rate":            c.Policy.HurdleRate,
		"performance fee rate":   c.Policy.PerformanceFeeRate,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s must not be negative, got %s", name, v.String())
		}
	}

	if c.SnapshotSchedule != "" {
		if _, err := cron.ParseStandard(c.SnapshotSchedule); err != nil {
			return fmt.Errorf("invalid SNAPSHOT_SCHEDULE %q: %w", c.SnapshotSchedule, err)
		}
	}

	return nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDecimal returns an error for a malformed value instead of the default.
func getEnvAsDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
