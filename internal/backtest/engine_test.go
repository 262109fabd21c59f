package backtest

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-trader/internal/config"
	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/marketdata"
)

func simScenario() *Scenario {
	return &Scenario{
		Name: "sim-equity",
		Instrument: InstrumentSpec{
			ID:     "ACME",
			Symbol: "ACME",
			Class:  "EQUITY",
		},
		Data: DataSpec{
			Source:    "simulated",
			Seed:      7,
			StartSpot: 100,
			Vol:       0.3,
			Bars:      60,
			Interval:  "24h",
		},
		Strategy: StrategySpec{
			Kind:   "ma_crossover",
			Params: map[string]int{"fast": 3, "slow": 8},
		},
		Sizing: SizingSpec{Quantity: 10},
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	return NewEngine(cfg, zerolog.Nop())
}

func TestEngineDeterministicReplay(t *testing.T) {
	sc := simScenario()

	first, err := testEngine(t).Run(context.Background(), sc)
	require.NoError(t, err)
	second, err := testEngine(t).Run(context.Background(), sc)
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(first.Report, second.Report),
		"same scenario and seed must reproduce the report")
	assert.Equal(t, first.EquityCurve, second.EquityCurve)
	assert.Equal(t, first.Rejections, second.Rejections)

	require.Equal(t, len(first.Trades), len(second.Trades))
	for i := range first.Trades {
		assert.True(t, first.Trades[i].RealizedPnL.Equal(second.Trades[i].RealizedPnL))
		assert.Equal(t, first.Trades[i].OpenedAt, second.Trades[i].OpenedAt)
	}
}

func TestEngineEquityCurve(t *testing.T) {
	sc := simScenario()

	res, err := testEngine(t).Run(context.Background(), sc)
	require.NoError(t, err)

	// One point per bar plus the final mark.
	assert.Len(t, res.EquityCurve, sc.Data.Bars+1)
	assert.Equal(t, sc.Name, res.Scenario)
	assert.Equal(t, "ma_crossover_3_8", res.Strategy)
	assert.NotNil(t, res.Report)
}

func TestEngineDifferentSeedsDiverge(t *testing.T) {
	a := simScenario()
	b := simScenario()
	b.Data.Seed = 8

	resA, err := testEngine(t).Run(context.Background(), a)
	require.NoError(t, err)
	resB, err := testEngine(t).Run(context.Background(), b)
	require.NoError(t, err)

	assert.NotEqual(t, resA.EquityCurve, resB.EquityCurve)
}

func TestEngineCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testEngine(t).Run(ctx, simScenario())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineHistoricalNeedsProvider(t *testing.T) {
	sc := simScenario()
	sc.Data.Source = "historical"

	_, err := testEngine(t).Run(context.Background(), sc)
	assert.ErrorIs(t, err, apperrors.ErrQuoteMissing)
}

func TestEngineEmptyHistoricalSeries(t *testing.T) {
	sc := simScenario()
	sc.Data.Source = "historical"

	engine := testEngine(t)
	engine.SetHistorical(marketdata.NewHistoricalProvider(5 * time.Minute))

	_, err := engine.Run(context.Background(), sc)
	assert.ErrorIs(t, err, apperrors.ErrSeriesExhausted)
}

func TestScenarioValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Scenario)
	}{
		{"missing instrument id", func(sc *Scenario) { sc.Instrument.ID = "" }},
		{"unknown data source", func(sc *Scenario) { sc.Data.Source = "replay" }},
		{"zero bars", func(sc *Scenario) { sc.Data.Bars = 0 }},
		{"negative start spot", func(sc *Scenario) { sc.Data.StartSpot = -1 }},
		{"bad interval", func(sc *Scenario) { sc.Data.Interval = "tomorrow" }},
		{"unknown strategy", func(sc *Scenario) { sc.Strategy.Kind = "martingale" }},
		{"zero quantity", func(sc *Scenario) { sc.Sizing.Quantity = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc := simScenario()
			tc.mutate(sc)
			err := sc.Validate()
			assert.ErrorIs(t, err, apperrors.ErrInvalidOrder)
		})
	}

	assert.NoError(t, simScenario().Validate())
}

func TestBuildInstrument(t *testing.T) {
	instr, err := buildInstrument(InstrumentSpec{ID: "ACME"})
	require.NoError(t, err)
	assert.Equal(t, "ACME", instr.Symbol, "symbol defaults to id")

	_, err = buildInstrument(InstrumentSpec{ID: "X", Class: "CRYPTO"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrder)

	_, err = buildInstrument(InstrumentSpec{ID: "X", Class: "OPTION", Right: "CALL", Expiry: "2026-06-25T15:30:00Z"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrder, "option needs a strike")

	_, err = buildInstrument(InstrumentSpec{ID: "X", Class: "OPTION", Strike: 100, Right: "STRADDLE", Expiry: "2026-06-25T15:30:00Z"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrder)

	_, err = buildInstrument(InstrumentSpec{ID: "X", Class: "FUTURE", Expiry: "next thursday"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrder)

	opt, err := buildInstrument(InstrumentSpec{
		ID: "NIFTY26JUN25000CE", Class: "OPTION",
		Strike: 25000, Right: "CALL", Expiry: "2026-06-25T15:30:00Z",
	})
	require.NoError(t, err)
	assert.True(t, opt.Strike.Equal(decimal.NewFromInt(25000)))
	assert.False(t, opt.Expiry.IsZero())
}

func TestBuildSource(t *testing.T) {
	_, err := buildSource(StrategySpec{Kind: "ma_crossover", Params: map[string]int{"fast": 30, "slow": 10}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrder)

	_, err = buildSource(StrategySpec{Kind: "momentum"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrder)

	src, err := buildSource(StrategySpec{Kind: "rsi", Params: map[string]int{"period": 7, "oversold": 20, "overbought": 80}})
	require.NoError(t, err)
	assert.Equal(t, "rsi_7", src.Name())

	src, err = buildSource(StrategySpec{Kind: "breakout"})
	require.NoError(t, err)
	assert.Equal(t, "breakout_20", src.Name(), "window defaults to 20")
}

func TestSweepOrdering(t *testing.T) {
	sc := simScenario()
	variants := []StrategySpec{
		{Kind: "ma_crossover", Params: map[string]int{"fast": 3, "slow": 8}},
		{Kind: "ma_crossover", Params: map[string]int{"fast": 5, "slow": 20}},
		{Kind: "rsi", Params: map[string]int{"period": 5}},
		{Kind: "ma_crossover", Params: map[string]int{"fast": 20, "slow": 5}}, // invalid, must sort last
	}

	results := testEngine(t).Sweep(context.Background(), sc, variants, 2)
	require.Len(t, results, len(variants))

	require.Error(t, results[len(results)-1].Err)
	for _, r := range results[:len(results)-1] {
		require.NoError(t, r.Err)
		require.NotNil(t, r.Result)
	}

	// Successful runs come back best Sharpe first, missing Sharpe last.
	for i := 0; i < len(results)-2; i++ {
		a, b := results[i].Result.Report.SharpeRatio, results[i+1].Result.Report.SharpeRatio
		if a == nil {
			assert.Nil(t, b)
			continue
		}
		if b != nil {
			assert.GreaterOrEqual(t, *a, *b)
		}
	}
}

func TestSweepRunsAreIsolated(t *testing.T) {
	sc := simScenario()
	variant := StrategySpec{Kind: "ma_crossover", Params: map[string]int{"fast": 3, "slow": 8}}

	solo, err := testEngine(t).Run(context.Background(), sc)
	require.NoError(t, err)

	results := testEngine(t).Sweep(context.Background(), sc, []StrategySpec{variant, variant, variant}, 3)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, solo.EquityCurve, r.Result.EquityCurve,
			"concurrent runs must not share ledger state")
	}
}
