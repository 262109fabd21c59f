// Package backtest drives the simulation core over historical or simulated
// price series.
package backtest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "paper-trader/internal/errors"
)

// Scenario describes one backtest: the instrument universe, the data
// source, the strategy and sizing. Loaded from YAML.
type Scenario struct {
	Name       string           `yaml:"name"`
	Instrument InstrumentSpec   `yaml:"instrument"`
	Data       DataSpec         `yaml:"data"`
	Strategy   StrategySpec     `yaml:"strategy"`
	Sizing     SizingSpec       `yaml:"sizing"`
}

// InstrumentSpec identifies what is traded.
type InstrumentSpec struct {
	ID         string  `yaml:"id"`
	Symbol     string  `yaml:"symbol"`
	Class      string  `yaml:"class"` // EQUITY, INDEX, FUTURE, OPTION
	Multiplier int     `yaml:"multiplier"`
	Strike     float64 `yaml:"strike,omitempty"`
	Right      string  `yaml:"right,omitempty"`
	Expiry     string  `yaml:"expiry,omitempty"` // RFC3339
}

// DataSpec selects the price source: a CSV/stored candle series or a
// seeded simulated walk.
type DataSpec struct {
	Source    string  `yaml:"source"` // "historical", "simulated"
	Seed      int64   `yaml:"seed"`
	StartSpot float64 `yaml:"start_spot"`
	Drift     float64 `yaml:"drift"`
	Vol       float64 `yaml:"vol"`
	DefaultIV float64 `yaml:"default_iv"`
	Bars      int     `yaml:"bars"`
	Start     string  `yaml:"start"`    // RFC3339; simulated series start
	Interval  string  `yaml:"interval"` // duration between bars
}

// StrategySpec selects and parameterizes the signal source.
type StrategySpec struct {
	Kind   string         `yaml:"kind"` // "ma_crossover", "rsi", "breakout"
	Params map[string]int `yaml:"params"`
}

// SizingSpec controls order size per signal.
type SizingSpec struct {
	Quantity int `yaml:"quantity"`
}

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario for structural problems.
func (s *Scenario) Validate() error {
	if s.Instrument.ID == "" {
		return apperrors.NewValidationError("instrument.id", s.Instrument.ID, "required")
	}
	switch s.Data.Source {
	case "historical", "simulated":
	default:
		return apperrors.NewValidationError("data.source", s.Data.Source, "must be historical or simulated")
	}
	if s.Data.Source == "simulated" {
		if s.Data.Bars <= 0 {
			return apperrors.NewValidationError("data.bars", s.Data.Bars, "must be positive")
		}
		if s.Data.StartSpot <= 0 {
			return apperrors.NewValidationError("data.start_spot", s.Data.StartSpot, "must be positive")
		}
		if _, err := time.ParseDuration(s.Data.Interval); s.Data.Interval != "" && err != nil {
			return apperrors.NewValidationError("data.interval", s.Data.Interval, "invalid duration")
		}
	}
	switch s.Strategy.Kind {
	case "ma_crossover", "rsi", "breakout":
	default:
		return apperrors.NewValidationError("strategy.kind", s.Strategy.Kind, "unknown strategy")
	}
	if s.Sizing.Quantity <= 0 {
		return apperrors.NewValidationError("sizing.quantity", s.Sizing.Quantity, "must be positive")
	}
	return nil
}

// Interval returns the bar interval, defaulting to one day.
func (d DataSpec) IntervalDuration() time.Duration {
	if d.Interval == "" {
		return 24 * time.Hour
	}
	dur, err := time.ParseDuration(d.Interval)
	if err != nil {
		return 24 * time.Hour
	}
	return dur
}

// StartTime returns the series start, defaulting to a fixed epoch so
// unseeded scenarios still replay deterministically.
func (d DataSpec) StartTime() time.Time {
	if d.Start == "" {
		return time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	}
	t, err := time.Parse(time.RFC3339, d.Start)
	if err != nil {
		return time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	}
	return t
}
