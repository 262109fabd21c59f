package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"paper-trader/internal/models"
)

// MACrossover signals on fast/slow simple moving average crossovers: buy
// when the fast average crosses above the slow, sell when it crosses below.
type MACrossover struct {
	Fast int
	Slow int
}

// NewMACrossover creates a crossover source. Fast must be shorter than slow.
func NewMACrossover(fast, slow int) *MACrossover {
	return &MACrossover{Fast: fast, Slow: slow}
}

func (s *MACrossover) Name() string {
	return fmt.Sprintf("ma_crossover_%d_%d", s.Fast, s.Slow)
}

func (s *MACrossover) Next(history []models.Candle, i int) models.Signal {
	if i < s.Slow {
		return hold("warming up")
	}

	fastNow := sma(history, i, s.Fast)
	slowNow := sma(history, i, s.Slow)
	fastPrev := sma(history, i-1, s.Fast)
	slowPrev := sma(history, i-1, s.Slow)

	if fastPrev.LessThanOrEqual(slowPrev) && fastNow.GreaterThan(slowNow) {
		return models.Signal{Action: models.SignalBuy, Reason: "fast MA crossed above slow"}
	}
	if fastPrev.GreaterThanOrEqual(slowPrev) && fastNow.LessThan(slowNow) {
		return models.Signal{Action: models.SignalSell, Reason: "fast MA crossed below slow"}
	}
	return hold("no crossover")
}

// sma averages closes over the window ending at bar i inclusive.
func sma(history []models.Candle, i, window int) decimal.Decimal {
	sum := decimal.Zero
	for j := i - window + 1; j <= i; j++ {
		sum = sum.Add(history[j].Close)
	}
	return sum.Div(decimal.NewFromInt(int64(window)))
}
