package strategy

import (
	"fmt"

	"paper-trader/internal/models"
)

// Breakout signals when the close escapes the rolling high/low channel of
// the preceding Window bars: buy above the channel high, sell below the
// channel low.
type Breakout struct {
	Window int
}

// NewBreakout creates a channel breakout source.
func NewBreakout(window int) *Breakout {
	return &Breakout{Window: window}
}

func (s *Breakout) Name() string {
	return fmt.Sprintf("breakout_%d", s.Window)
}

func (s *Breakout) Next(history []models.Candle, i int) models.Signal {
	if i < s.Window {
		return hold("warming up")
	}

	high := history[i-s.Window].High
	low := history[i-s.Window].Low
	for j := i - s.Window + 1; j < i; j++ {
		if history[j].High.GreaterThan(high) {
			high = history[j].High
		}
		if history[j].Low.LessThan(low) {
			low = history[j].Low
		}
	}

	close := history[i].Close
	if close.GreaterThan(high) {
		return models.Signal{Action: models.SignalBuy, Reason: fmt.Sprintf("close above %d-bar high", s.Window)}
	}
	if close.LessThan(low) {
		return models.Signal{Action: models.SignalSell, Reason: fmt.Sprintf("close below %d-bar low", s.Window)}
	}
	return hold("inside channel")
}
