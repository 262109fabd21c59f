// Package store provides optional persistence for runs and candle data.
// The simulation core never depends on it.
package store

import (
	"context"
	"time"

	"paper-trader/internal/backtest"
	"paper-trader/internal/models"
)

// RunSummary is one persisted run as listed by the store.
type RunSummary struct {
	RunID       string
	Scenario    string
	Strategy    string
	StartedAt   time.Time
	FinalEquity float64
	TotalReturn float64
	TradeCount  int
}

// DataStore persists backtest results and caches candle series.
type DataStore interface {
	SaveResult(ctx context.Context, result *backtest.Result) error
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	GetReport(ctx context.Context, runID string) (*models.PerformanceReport, error)
	GetTrades(ctx context.Context, runID string) ([]models.Trade, error)
	GetEquityCurve(ctx context.Context, runID string) ([]models.EquityPoint, error)

	SaveCandles(ctx context.Context, instrumentID string, candles []models.Candle) error
	LoadCandles(ctx context.Context, instrumentID string) ([]models.Candle, error)

	Close() error
}
