package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Options Trader Configuration

[trading]
# Trading mode: "live" or "paper"
mode = "paper"
# Condition check cadence while waiting for entry/exit levels
poll_interval = "15s"
# Wait after placing an order before checking its status
order_settle = "5s"
# Wait after requesting a quote refresh
quote_settle = "2s"
# Re-peg budget for the entry order
max_entry_attempts = 10
# Re-peg budget for the exit order
max_exit_attempts = 10
# Candle lookback for the monitor display, e.g. "2d"
history_duration = "2d"

[gateway]
# Tradier API base URL (use https://api.tradier.com/v1 for live)
base_url = "https://sandbox.tradier.com/v1"
# Bearer token; can also be set via TRADIER_API_KEY
api_key = ""
# Account ID for order placement; can also be set via TRADIER_ACCOUNT_ID
account_id = ""

[chain]
# Keep OTM strikes within this percent of the spot price
strike_window_percent = 10.0
# Maximum number of strikes to quote
max_strikes = 20

[logging]
# Log level: debug, info, warn, error
level = "info"
# Log to console
console = true
# Log to rotating files (one per symbol during a session)
file = true
`

// createTemplateConfig writes a commented config template so a first run
// leaves the user something to edit.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
