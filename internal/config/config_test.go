package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesTemplateAndDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	// First run leaves a commented template behind.
	_, statErr := os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, statErr)

	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.Equal(t, 15*time.Second, cfg.Trading.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Trading.OrderSettle)
	assert.Equal(t, 2*time.Second, cfg.Trading.QuoteSettle)
	assert.Equal(t, 10, cfg.Trading.MaxEntryAttempts)
	assert.Equal(t, 10, cfg.Trading.MaxExitAttempts)
	assert.Equal(t, 10.0, cfg.Chain.StrikeWindowPercent)
	assert.True(t, cfg.IsPaperMode())
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[trading]
mode = "paper"
poll_interval = "1s"
max_entry_attempts = 5

[chain]
strike_window_percent = 5.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Trading.PollInterval)
	assert.Equal(t, 5, cfg.Trading.MaxEntryAttempts)
	assert.Equal(t, 5.0, cfg.Chain.StrikeWindowPercent)
	// Unset keys keep their defaults.
	assert.Equal(t, 10, cfg.Trading.MaxExitAttempts)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADIER_API_KEY", "env-token")
	t.Setenv("TRADING_MODE", "live")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Gateway.APIKey)
	assert.True(t, cfg.IsLiveMode())
}

func TestLiveModeRequiresAPIKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADING_MODE", "live")
	t.Setenv("TRADIER_API_KEY", "")

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Trading.Mode = "yolo"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Trading.MaxEntryAttempts = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Trading.PollInterval = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Chain.StrikeWindowPercent = 150
	assert.Error(t, cfg.Validate())
}
