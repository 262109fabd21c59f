package strategy

import (
	"fmt"

	"paper-trader/internal/models"
)

// RSI is a mean-reversion source: buy when the relative strength index
// falls below the oversold threshold, sell when it rises above overbought.
type RSI struct {
	Period     int
	Oversold   float64
	Overbought float64
}

// NewRSI creates an RSI source with the usual 30/70 thresholds.
func NewRSI(period int) *RSI {
	return &RSI{Period: period, Oversold: 30, Overbought: 70}
}

func (s *RSI) Name() string {
	return fmt.Sprintf("rsi_%d", s.Period)
}

func (s *RSI) Next(history []models.Candle, i int) models.Signal {
	if i < s.Period {
		return hold("warming up")
	}

	value := rsiValue(history, i, s.Period)
	if value <= s.Oversold {
		return models.Signal{Action: models.SignalBuy, Reason: fmt.Sprintf("RSI %.1f oversold", value)}
	}
	if value >= s.Overbought {
		return models.Signal{Action: models.SignalSell, Reason: fmt.Sprintf("RSI %.1f overbought", value)}
	}
	return hold("RSI neutral")
}

// rsiValue computes a simple-average RSI over the window ending at bar i.
func rsiValue(history []models.Candle, i, period int) float64 {
	var gains, losses float64
	for j := i - period + 1; j <= i; j++ {
		change := history[j].Close.Sub(history[j-1].Close).InexactFloat64()
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		if gains == 0 {
			return 50
		}
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}
