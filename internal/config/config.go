// Package config provides configuration management for the trading assistant.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading TradingConfig `mapstructure:"trading"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TradingConfig holds the trade lifecycle settings. The intervals are
// fixed waits, not adaptive backoff.
type TradingConfig struct {
	Mode             string        `mapstructure:"mode"`               // "live", "paper"
	PollInterval     time.Duration `mapstructure:"poll_interval"`      // condition check cadence
	OrderSettle      time.Duration `mapstructure:"order_settle"`       // wait after placing an order
	QuoteSettle      time.Duration `mapstructure:"quote_settle"`       // wait after a quote refresh
	MaxEntryAttempts int           `mapstructure:"max_entry_attempts"` // re-peg budget for the entry order
	MaxExitAttempts  int           `mapstructure:"max_exit_attempts"`  // re-peg budget for the exit order
	HistoryDuration  string        `mapstructure:"history_duration"`   // candle lookback, e.g. "2d"
}

// GatewayConfig holds the Tradier gateway settings.
type GatewayConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	AccountID string `mapstructure:"account_id"`
}

// ChainConfig holds option chain candidate selection settings.
type ChainConfig struct {
	StrikeWindowPercent float64 `mapstructure:"strike_window_percent"` // OTM strike distance from spot
	MaxStrikes          int     `mapstructure:"max_strikes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	Dir        string `mapstructure:"dir"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/options-trader"
	}
	return filepath.Join(home, ".config", "options-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, fmt.Errorf("creating config template: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.poll_interval", "15s")
	v.SetDefault("trading.order_settle", "5s")
	v.SetDefault("trading.quote_settle", "2s")
	v.SetDefault("trading.max_entry_attempts", 10)
	v.SetDefault("trading.max_exit_attempts", 10)
	v.SetDefault("trading.history_duration", "2d")

	v.SetDefault("gateway.base_url", "https://sandbox.tradier.com/v1")

	v.SetDefault("chain.strike_window_percent", 10.0)
	v.SetDefault("chain.max_strikes", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.dir", filepath.Join(configDir, "logs"))
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age", 30)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADIER_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("TRADIER_ACCOUNT_ID"); v != "" {
		cfg.Gateway.AccountID = v
	}
	if v := os.Getenv("TRADIER_BASE_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}
	if c.Trading.PollInterval < 0 || c.Trading.OrderSettle < 0 || c.Trading.QuoteSettle < 0 {
		return fmt.Errorf("trading intervals must be non-negative")
	}
	if c.Trading.MaxEntryAttempts < 1 {
		return fmt.Errorf("max_entry_attempts must be at least 1")
	}
	if c.Trading.MaxExitAttempts < 1 {
		return fmt.Errorf("max_exit_attempts must be at least 1")
	}
	if c.Chain.StrikeWindowPercent <= 0 || c.Chain.StrikeWindowPercent > 100 {
		return fmt.Errorf("strike_window_percent must be between 0 and 100")
	}
	if c.IsLiveMode() && c.Gateway.APIKey == "" {
		return fmt.Errorf("gateway api_key is required in live mode")
	}
	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode == "paper"
}

// IsLiveMode returns true if live trading mode is enabled.
func (c *Config) IsLiveMode() bool {
	return c.Trading.Mode == "live"
}
