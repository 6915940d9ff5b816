// Package config provides configuration management for the loan engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Engine        EngineConfig       `mapstructure:"engine"`
	Policy        PolicyConfig       `mapstructure:"policy"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	UI            UIConfig           `mapstructure:"ui"`
}

// EngineConfig holds servicing engine knobs.
type EngineConfig struct {
	SweepWorkers  int `mapstructure:"sweep_workers"`  // parallel workers for batch jobs
	DayCountBasis int `mapstructure:"day_count_basis"` // days per year for interest accrual
}

// PolicyConfig holds risk policy defaults applied when a product does not
// override them. It is passed into the engine at construction; there is no
// process-wide mutable policy cache.
type PolicyConfig struct {
	MarginCallGraceDays      int     `mapstructure:"margin_call_grace_days"`
	PenaltyTaxPercent        float64 `mapstructure:"penalty_tax_percent"`
	PenaltyWaiverMonths      int     `mapstructure:"penalty_waiver_months"`
	MediumUrgencyBandPercent float64 `mapstructure:"medium_urgency_band_percent"`
}

// ServerConfig holds operational HTTP server configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // "release", "debug"
}

// DatabaseConfig holds persistence configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// UIConfig holds CLI output configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/lamf-engine"
	}
	return filepath.Join(home, ".config", "lamf-engine")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("engine.sweep_workers", 8)
	v.SetDefault("engine.day_count_basis", 365)
	v.SetDefault("policy.margin_call_grace_days", 3)
	v.SetDefault("policy.penalty_tax_percent", 18.0)
	v.SetDefault("policy.penalty_waiver_months", 12)
	v.SetDefault("policy.medium_urgency_band_percent", 5.0)
	v.SetDefault("server.addr", ":8086")
	v.SetDefault("server.mode", "release")
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template and continue on defaults
			if werr := createTemplateConfig(configDir, name); werr != nil {
				return werr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LAMF_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LAMF_HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LAMF_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Webhook.URL = v
		cfg.Notifications.Webhook.Enabled = true
		cfg.Notifications.Enabled = true
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(DefaultConfigDir(), "lamf.db")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.SweepWorkers <= 0 {
		return fmt.Errorf("sweep_workers must be positive")
	}
	if c.Engine.DayCountBasis != 360 && c.Engine.DayCountBasis != 365 {
		return fmt.Errorf("day_count_basis must be 360 or 365")
	}
	if c.Policy.MarginCallGraceDays < 0 {
		return fmt.Errorf("margin_call_grace_days must be non-negative")
	}
	if c.Policy.PenaltyTaxPercent < 0 || c.Policy.PenaltyTaxPercent > 100 {
		return fmt.Errorf("penalty_tax_percent must be between 0 and 100")
	}
	if c.Policy.PenaltyWaiverMonths < 0 {
		return fmt.Errorf("penalty_waiver_months must be non-negative")
	}
	if c.Policy.MediumUrgencyBandPercent < 0 {
		return fmt.Errorf("medium_urgency_band_percent must be non-negative")
	}
	if c.Server.Mode != "" && c.Server.Mode != "release" && c.Server.Mode != "debug" {
		return fmt.Errorf("invalid server mode: %s (must be 'release' or 'debug')", c.Server.Mode)
	}
	return nil
}
