package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"paper-trader/internal/models"
)

var barStart = time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

func candlesFrom(closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		out[i] = models.Candle{
			Timestamp: barStart.Add(time.Duration(i) * 24 * time.Hour),
			Open:      d, High: d, Low: d, Close: d,
			Volume: 1000,
		}
	}
	return out
}

func lastSignal(src Source, candles []models.Candle) models.Signal {
	return src.Next(candles, len(candles)-1)
}

func TestMACrossoverSignals(t *testing.T) {
	src := NewMACrossover(2, 4)

	// Downtrend then a sharp recovery: fast crosses above slow on the last bar.
	up := candlesFrom(100, 98, 96, 94, 92, 100)
	assert.Equal(t, models.SignalBuy, lastSignal(src, up).Action)

	// Uptrend rolling over: fast crosses below slow on the last bar.
	down := candlesFrom(100, 102, 104, 106, 108, 100)
	assert.Equal(t, models.SignalSell, lastSignal(src, down).Action)

	// Warmup window holds.
	short := candlesFrom(100, 101, 102)
	assert.Equal(t, models.SignalHold, lastSignal(src, short).Action)

	// Steady trend with no crossover holds.
	steady := candlesFrom(100, 101, 102, 103, 104, 105, 106)
	assert.Equal(t, models.SignalHold, lastSignal(src, steady).Action)
}

func TestRSISignals(t *testing.T) {
	src := NewRSI(3)

	// Relentless slide drives RSI to oversold.
	slide := candlesFrom(100, 96, 92, 88, 84)
	sig := lastSignal(src, slide)
	assert.Equal(t, models.SignalBuy, sig.Action)
	assert.Contains(t, sig.Reason, "oversold")

	// Relentless rally drives RSI to overbought.
	rally := candlesFrom(100, 104, 108, 112, 116)
	assert.Equal(t, models.SignalSell, lastSignal(src, rally).Action)

	// Mixed moves stay neutral.
	mixed := candlesFrom(100, 102, 99, 101, 100)
	assert.Equal(t, models.SignalHold, lastSignal(src, mixed).Action)
}

func TestBreakoutSignals(t *testing.T) {
	src := NewBreakout(3)

	// Close above the 3-bar high.
	breakUp := candlesFrom(100, 101, 100, 99, 105)
	assert.Equal(t, models.SignalBuy, lastSignal(src, breakUp).Action)

	// Close below the 3-bar low.
	breakDown := candlesFrom(100, 101, 100, 99, 94)
	assert.Equal(t, models.SignalSell, lastSignal(src, breakDown).Action)

	// Inside the channel.
	inside := candlesFrom(100, 101, 100, 99, 100)
	assert.Equal(t, models.SignalHold, lastSignal(src, inside).Action)
}

func TestSourcesDoNotLookAhead(t *testing.T) {
	history := candlesFrom(100, 98, 96, 94, 92, 104, 112, 50, 200)
	truncated := history[:7]

	for _, src := range []Source{NewMACrossover(2, 4), NewRSI(3), NewBreakout(3)} {
		full := src.Next(history, 6)
		part := src.Next(truncated, 6)
		assert.Equal(t, part, full, "%s must ignore bars after i", src.Name())
	}
}
