// Package strategy contains signal sources used to drive backtests. These
// are external collaborators: the simulation core never depends on them.
package strategy

import "paper-trader/internal/models"

// Source produces a signal for bar i of the candle history. history[:i+1]
// is the data visible at that point; implementations must not look ahead.
type Source interface {
	Name() string
	Next(history []models.Candle, i int) models.Signal
}

func hold(reason string) models.Signal {
	return models.Signal{Action: models.SignalHold, Reason: reason}
}
