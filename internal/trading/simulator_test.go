package trading

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-trader/internal/config"
	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/models"
)

func testSimulator(t *testing.T, mutate func(*config.Config)) *Simulator {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	return NewSimulator(cfg, NewCalculator(cfg.Margin), zerolog.Nop())
}

func quoteAt(id string, last float64, at time.Time) models.Quote {
	return models.Quote{
		InstrumentID: id,
		Timestamp:    at,
		Last:         decimal.NewFromFloat(last),
		Volume:       100000,
	}
}

func richSnapshot() AccountSnapshot {
	cash := decimal.NewFromInt(1_000_000)
	return AccountSnapshot{
		Timestamp: testStart,
		Cash:      cash,
		Equity:    cash,
		Positions: map[string]models.Position{},
	}
}

func marketOrder(id string, side models.OrderSide, qty int, at time.Time) models.Order {
	return models.Order{
		ID: "ord-1", InstrumentID: id, Side: side,
		Type: models.OrderTypeMarket, Quantity: qty, PlacedAt: at,
	}
}

func TestSimulatorMarketFillWithSlippageAndFees(t *testing.T) {
	sim := testSimulator(t, nil) // fixed 5 bps slippage, 10 bps fee
	instr := equityInstrument("EQ")
	sim.Register(instr)

	order := marketOrder("EQ", models.OrderSideBuy, 100, testStart)
	quote := quoteAt("EQ", 500, testStart)

	fill, err := sim.Execute(order, quote, quote.Last, richSnapshot())
	require.NoError(t, err)

	// 5 bps of 500 = 0.25 added on a buy.
	assert.Equal(t, "500.25", fill.Price.String())
	assert.Equal(t, "0.25", fill.Slippage.String())
	// 10 bps of 100 x 500.25 = 50.025
	assert.Equal(t, "50.025", fill.Fee.String())
	assert.Equal(t, 100, fill.Quantity)
	assert.True(t, fill.MarginHeld.IsZero())

	// Sells get slippage against them.
	sell := marketOrder("EQ", models.OrderSideSell, 100, testStart)
	fill, err = sim.Execute(sell, quote, quote.Last, richSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "499.75", fill.Price.String())
}

func TestSimulatorLimitOrders(t *testing.T) {
	sim := testSimulator(t, nil)
	instr := equityInstrument("EQ")
	sim.Register(instr)

	quote := quoteAt("EQ", 500, testStart)
	quote.Bid = decimal.NewFromInt(499)
	quote.Ask = decimal.NewFromInt(501)

	// Marketable buy fills at the offer, no slippage.
	buy := marketOrder("EQ", models.OrderSideBuy, 10, testStart)
	buy.Type = models.OrderTypeLimit
	buy.LimitPrice = decimal.NewFromInt(502)
	fill, err := sim.Execute(buy, quote, quote.Last, richSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "501", fill.Price.String())
	assert.True(t, fill.Slippage.IsZero())

	// Buy below the offer is not marketable.
	buy.LimitPrice = decimal.NewFromInt(500)
	_, err = sim.Execute(buy, quote, quote.Last, richSnapshot())
	assert.ErrorIs(t, err, apperrors.ErrLimitNotMarketable)

	// Without a book the last price stands in.
	bare := quoteAt("EQ", 500, testStart)
	sell := marketOrder("EQ", models.OrderSideSell, 10, testStart)
	sell.Type = models.OrderTypeLimit
	sell.LimitPrice = decimal.NewFromInt(499)
	fill, err = sim.Execute(sell, bare, bare.Last, richSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "500", fill.Price.String())
}

func TestSimulatorValidationRejections(t *testing.T) {
	sim := testSimulator(t, nil)
	instr := equityInstrument("EQ")
	sim.Register(instr)
	snap := richSnapshot()
	quote := quoteAt("EQ", 500, testStart)

	tests := []struct {
		name   string
		mutate func(*models.Order)
		want   error
	}{
		{"zero quantity", func(o *models.Order) { o.Quantity = 0 }, apperrors.ErrInvalidOrder},
		{"negative quantity", func(o *models.Order) { o.Quantity = -5 }, apperrors.ErrInvalidOrder},
		{"bad side", func(o *models.Order) { o.Side = "SHORT" }, apperrors.ErrInvalidOrder},
		{"bad type", func(o *models.Order) { o.Type = "STOP" }, apperrors.ErrInvalidOrder},
		{"unknown instrument", func(o *models.Order) { o.InstrumentID = "NOPE" }, apperrors.ErrUnknownInstrument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			order := marketOrder("EQ", models.OrderSideBuy, 10, testStart)
			tc.mutate(&order)
			_, err := sim.Execute(order, quote, quote.Last, snap)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, apperrors.IsRejection(err))
		})
	}

	// Quote for a different instrument.
	other := quoteAt("OTHER", 500, testStart)
	_, err := sim.Execute(marketOrder("EQ", models.OrderSideBuy, 10, testStart), other, other.Last, snap)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrder)
}

func TestSimulatorStaleQuote(t *testing.T) {
	sim := testSimulator(t, nil) // 5m tolerance
	instr := equityInstrument("EQ")
	sim.Register(instr)

	stale := quoteAt("EQ", 500, testStart.Add(-10*time.Minute))
	order := marketOrder("EQ", models.OrderSideBuy, 10, testStart)

	_, err := sim.Execute(order, stale, stale.Last, richSnapshot())
	assert.ErrorIs(t, err, apperrors.ErrStaleQuote)

	var gap *apperrors.DataGapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, 10*time.Minute, gap.Age)

	// Within tolerance is fine.
	fresh := quoteAt("EQ", 500, testStart.Add(-time.Minute))
	_, err = sim.Execute(order, fresh, fresh.Last, richSnapshot())
	assert.NoError(t, err)
}

func TestSimulatorCapitalChecks(t *testing.T) {
	sim := testSimulator(t, func(cfg *config.Config) {
		cfg.Risk.MaxPositionPercent = 0 // disable for this test
	})
	instr := equityInstrument("EQ")
	fut := futureInstrument("FUT", 50)
	sim.Register(instr)
	sim.Register(fut)

	poor := richSnapshot()
	poor.Cash = decimal.NewFromInt(1000)
	poor.Equity = poor.Cash

	_, err := sim.Execute(marketOrder("EQ", models.OrderSideBuy, 100, testStart),
		quoteAt("EQ", 500, testStart), decimal.NewFromInt(500), poor)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientCapital)

	var me *apperrors.MarginError
	require.ErrorAs(t, err, &me)
	assert.Greater(t, me.Required, me.Available)

	// Derivatives report a margin shortfall instead.
	_, err = sim.Execute(marketOrder("FUT", models.OrderSideBuy, 1, testStart),
		quoteAt("FUT", 20000, testStart), decimal.NewFromInt(20000), poor)
	assert.ErrorIs(t, err, apperrors.ErrMarginShortfall)

	// Closing an existing position needs no capital.
	closing := poor
	closing.Positions = map[string]models.Position{
		"EQ": {InstrumentID: "EQ", Quantity: 100, AvgPrice: decimal.NewFromInt(500), Multiplier: 1},
	}
	_, err = sim.Execute(marketOrder("EQ", models.OrderSideSell, 100, testStart),
		quoteAt("EQ", 500, testStart), decimal.NewFromInt(500), closing)
	assert.NoError(t, err)
}

func TestSimulatorRiskLimits(t *testing.T) {
	sim := testSimulator(t, func(cfg *config.Config) {
		cfg.Risk.MaxConcurrentPositions = 1
		cfg.Risk.MaxPositionPercent = 10
	})
	a := equityInstrument("A")
	b := equityInstrument("B")
	sim.Register(a)
	sim.Register(b)

	snap := richSnapshot()
	snap.Positions["A"] = models.Position{InstrumentID: "A", Quantity: 10, AvgPrice: decimal.NewFromInt(100), Multiplier: 1}

	// A second instrument exceeds the position count.
	_, err := sim.Execute(marketOrder("B", models.OrderSideBuy, 1, testStart),
		quoteAt("B", 100, testStart), decimal.NewFromInt(100), snap)
	assert.ErrorIs(t, err, apperrors.ErrPositionLimit)

	// Adding to the existing instrument is allowed by the count limit but
	// still subject to concentration: 10% of 1,000,000 equity is 100,000.
	big := marketOrder("A", models.OrderSideBuy, 5000, testStart)
	_, err = sim.Execute(big, quoteAt("A", 100, testStart), decimal.NewFromInt(100), snap)
	assert.ErrorIs(t, err, apperrors.ErrConcentrationLimit)

	small := marketOrder("A", models.OrderSideBuy, 100, testStart)
	_, err = sim.Execute(small, quoteAt("A", 100, testStart), decimal.NewFromInt(100), snap)
	assert.NoError(t, err)
}

func TestSimulatorReversalConcentration(t *testing.T) {
	sim := testSimulator(t, nil) // default 25% concentration limit
	sim.Register(equityInstrument("EQ"))

	snap := richSnapshot()
	snap.Positions["EQ"] = models.Position{
		InstrumentID: "EQ", Quantity: 300, AvgPrice: decimal.NewFromInt(500), Multiplier: 1,
	}
	quote := quoteAt("EQ", 500, testStart)

	// Selling 400 against a 300 long leaves a 100 short, about 5% of
	// equity: the closed quantity must not count against the limit.
	flip := marketOrder("EQ", models.OrderSideSell, 400, testStart)
	_, err := sim.Execute(flip, quote, quote.Last, snap)
	assert.NoError(t, err)

	// A reversal whose surviving short alone breaches the limit is still
	// rejected: selling 900 leaves a 600 short, about 30% of equity.
	big := marketOrder("EQ", models.OrderSideSell, 900, testStart)
	_, err = sim.Execute(big, quote, quote.Last, snap)
	assert.ErrorIs(t, err, apperrors.ErrConcentrationLimit)
}

func TestSimulatorShortOptionMargin(t *testing.T) {
	sim := testSimulator(t, func(cfg *config.Config) {
		cfg.Risk.MaxPositionPercent = 0
	})
	opt := optionInstrument("CE", 20000, models.RightCall, 50)
	sim.Register(opt)

	order := marketOrder("CE", models.OrderSideSell, 1, testStart)
	order.Type = models.OrderTypeLimit
	order.LimitPrice = decimal.NewFromInt(150)
	quote := quoteAt("CE", 150, testStart)

	fill, err := sim.Execute(order, quote, decimal.NewFromInt(20000), richSnapshot())
	require.NoError(t, err)

	// premium 7500 + 10% x 20000 x 50
	assert.Equal(t, "107500", fill.MarginHeld.String())
}
