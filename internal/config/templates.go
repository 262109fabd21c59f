package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Paper Trader Configuration

[account]
# Starting cash for each simulated session
initial_capital = 1000000.0
# Display currency
currency = "INR"

[execution]
# Slippage model: "fixed" or "volume"
slippage_model = "fixed"
# Slippage in basis points of the reference price
slippage_bps = 5.0
# Additional slippage scaling for the volume model
volume_factor = 0.1
# Flat fee charged per fill
fee_flat = 0.0
# Proportional fee in basis points of notional
fee_bps = 10.0
# Reject orders when the latest quote is older than this
quote_stale_tolerance = "5m"

[margin]
# Futures margin as percentage of notional
futures_percent = 15.0
# Short option margin as percentage of underlying notional
short_option_percent = 10.0
# Short option out-of-the-money floor percentage
short_option_floor = 5.0
# Margin offset factor for recognized multi-leg strategies
offset_factor = 0.70

[risk]
# Maximum single-instrument exposure as percentage of equity
max_position_percent = 25.0
# Maximum number of concurrent open positions (0 = unlimited)
max_concurrent_positions = 20

[performance]
# Annual risk-free rate used for Sharpe and Sortino
risk_free_rate = 0.06
# Equity curve periods per year (252 daily, 52 weekly)
periods_per_year = 252
# Historical VaR confidence level
var_confidence = 0.95

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"

[store]
# SQLite database for persisted runs (empty uses the default path)
path = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
