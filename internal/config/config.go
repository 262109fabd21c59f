// Package config provides configuration management for the simulator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "paper-trader/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Account     AccountConfig     `mapstructure:"account"`
	Execution   ExecutionConfig   `mapstructure:"execution"`
	Margin      MarginConfig      `mapstructure:"margin"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Performance PerformanceConfig `mapstructure:"performance"`
	UI          UIConfig          `mapstructure:"ui"`
	Store       StoreConfig       `mapstructure:"store"`
}

// AccountConfig holds the simulated account parameters.
type AccountConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	Currency       string  `mapstructure:"currency"`
}

// ExecutionConfig holds fill simulation parameters.
type ExecutionConfig struct {
	SlippageModel   string  `mapstructure:"slippage_model"` // "fixed", "volume"
	SlippageBps     float64 `mapstructure:"slippage_bps"`
	VolumeFactor    float64 `mapstructure:"volume_factor"`
	FeeFlat         float64 `mapstructure:"fee_flat"`
	FeeBps          float64 `mapstructure:"fee_bps"`
	QuoteStaleToler string  `mapstructure:"quote_stale_tolerance"` // duration, e.g. "5m"
}

// MarginConfig holds margin rule percentages.
type MarginConfig struct {
	FuturesPercent     float64 `mapstructure:"futures_percent"`
	ShortOptionPercent float64 `mapstructure:"short_option_percent"`
	ShortOptionFloor   float64 `mapstructure:"short_option_floor"`
	OffsetFactor       float64 `mapstructure:"offset_factor"`
}

// RiskConfig holds pre-trade risk limits.
type RiskConfig struct {
	MaxPositionPercent     float64 `mapstructure:"max_position_percent"`
	MaxConcurrentPositions int     `mapstructure:"max_concurrent_positions"`
}

// PerformanceConfig holds analyzer parameters.
type PerformanceConfig struct {
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`
	PeriodsPerYear int     `mapstructure:"periods_per_year"`
	VaRConfidence  float64 `mapstructure:"var_confidence"`
}

// UIConfig holds output formatting configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// StoreConfig holds session persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/paper-trader"
	}
	return filepath.Join(home, ".config", "paper-trader")
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialCapital: 1_000_000,
			Currency:       "INR",
		},
		Execution: ExecutionConfig{
			SlippageModel:   "fixed",
			SlippageBps:     5,
			VolumeFactor:    0.1,
			FeeFlat:         0,
			FeeBps:          10,
			QuoteStaleToler: "5m",
		},
		Margin: MarginConfig{
			FuturesPercent:     15,
			ShortOptionPercent: 10,
			ShortOptionFloor:   5,
			OffsetFactor:       0.70,
		},
		Risk: RiskConfig{
			MaxPositionPercent:     25,
			MaxConcurrentPositions: 20,
		},
		Performance: PerformanceConfig{
			RiskFreeRate:   0.06,
			PeriodsPerYear: 252,
			VaRConfidence:  0.95,
		},
		UI: UIConfig{
			ColorEnabled: true,
			DateFormat:   "02-Jan-2006",
			TimeFormat:   "15:04:05",
		},
		Store: StoreConfig{
			Path: filepath.Join(DefaultConfigDir(), "sessions.db"),
		},
	}
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
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if cerr := createTemplateConfig(configDir); cerr != nil {
				return nil, fmt.Errorf("creating config template: %w", cerr)
			}
		} else {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "sessions.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("account.initial_capital", def.Account.InitialCapital)
	v.SetDefault("account.currency", def.Account.Currency)

	v.SetDefault("execution.slippage_model", def.Execution.SlippageModel)
	v.SetDefault("execution.slippage_bps", def.Execution.SlippageBps)
	v.SetDefault("execution.volume_factor", def.Execution.VolumeFactor)
	v.SetDefault("execution.fee_flat", def.Execution.FeeFlat)
	v.SetDefault("execution.fee_bps", def.Execution.FeeBps)
	v.SetDefault("execution.quote_stale_tolerance", def.Execution.QuoteStaleToler)

	v.SetDefault("margin.futures_percent", def.Margin.FuturesPercent)
	v.SetDefault("margin.short_option_percent", def.Margin.ShortOptionPercent)
	v.SetDefault("margin.short_option_floor", def.Margin.ShortOptionFloor)
	v.SetDefault("margin.offset_factor", def.Margin.OffsetFactor)

	v.SetDefault("risk.max_position_percent", def.Risk.MaxPositionPercent)
	v.SetDefault("risk.max_concurrent_positions", def.Risk.MaxConcurrentPositions)

	v.SetDefault("performance.risk_free_rate", def.Performance.RiskFreeRate)
	v.SetDefault("performance.periods_per_year", def.Performance.PeriodsPerYear)
	v.SetDefault("performance.var_confidence", def.Performance.VaRConfidence)

	v.SetDefault("ui.color_enabled", def.UI.ColorEnabled)
	v.SetDefault("ui.date_format", def.UI.DateFormat)
	v.SetDefault("ui.time_format", def.UI.TimeFormat)

	v.SetDefault("store.path", def.Store.Path)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAPER_TRADER_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PAPER_TRADER_CONFIG_DIR"); v != "" {
		cfg.Store.Path = filepath.Join(v, "sessions.db")
	}
}

// QuoteStaleTolerance parses the configured staleness tolerance.
func (c *Config) QuoteStaleTolerance() time.Duration {
	d, err := time.ParseDuration(c.Execution.QuoteStaleToler)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// Validate validates the configuration. Failures wrap ErrConfigInvalid.
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "initial_capital must be positive")
	}
	if c.Execution.SlippageModel != "fixed" && c.Execution.SlippageModel != "volume" {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "invalid slippage_model: %s (must be 'fixed' or 'volume')", c.Execution.SlippageModel)
	}
	if c.Execution.SlippageBps < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "slippage_bps must be non-negative")
	}
	if c.Execution.FeeFlat < 0 || c.Execution.FeeBps < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "fees must be non-negative")
	}
	if _, err := time.ParseDuration(c.Execution.QuoteStaleToler); err != nil {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "invalid quote_stale_tolerance %q", c.Execution.QuoteStaleToler)
	}
	if c.Margin.FuturesPercent <= 0 || c.Margin.FuturesPercent > 100 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "futures_percent must be between 0 and 100")
	}
	if c.Margin.OffsetFactor < 0 || c.Margin.OffsetFactor > 1 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "offset_factor must be between 0 and 1")
	}
	if c.Risk.MaxPositionPercent < 0 || c.Risk.MaxPositionPercent > 100 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "max_position_percent must be between 0 and 100")
	}
	if c.Risk.MaxConcurrentPositions < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "max_concurrent_positions must be non-negative")
	}
	if c.Performance.PeriodsPerYear <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "periods_per_year must be positive")
	}
	if c.Performance.VaRConfidence <= 0 || c.Performance.VaRConfidence >= 1 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "var_confidence must be between 0 and 1 exclusive")
	}
	return nil
}
