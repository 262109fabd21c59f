package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "paper-trader/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.QuoteStaleTolerance())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capital", func(c *Config) { c.Account.InitialCapital = 0 }},
		{"unknown slippage model", func(c *Config) { c.Execution.SlippageModel = "parabolic" }},
		{"negative slippage", func(c *Config) { c.Execution.SlippageBps = -1 }},
		{"negative fees", func(c *Config) { c.Execution.FeeBps = -1 }},
		{"bad staleness tolerance", func(c *Config) { c.Execution.QuoteStaleToler = "soon" }},
		{"futures percent out of range", func(c *Config) { c.Margin.FuturesPercent = 150 }},
		{"offset factor out of range", func(c *Config) { c.Margin.OffsetFactor = 1.5 }},
		{"position percent out of range", func(c *Config) { c.Risk.MaxPositionPercent = 101 }},
		{"negative position count", func(c *Config) { c.Risk.MaxConcurrentPositions = -1 }},
		{"zero periods per year", func(c *Config) { c.Performance.PeriodsPerYear = 0 }},
		{"confidence at bound", func(c *Config) { c.Performance.VaRConfidence = 1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
		})
	}
}

func TestQuoteStaleToleranceFallsBack(t *testing.T) {
	cfg := Default()
	cfg.Execution.QuoteStaleToler = "not a duration"
	assert.Equal(t, 5*time.Minute, cfg.QuoteStaleTolerance())
}
