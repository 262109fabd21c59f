package store

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"paper-trader/internal/models"
)

// tradeRow is the CSV shape of a closed trade.
type tradeRow struct {
	ID           string  `csv:"id"`
	InstrumentID string  `csv:"instrument_id"`
	Side         string  `csv:"side"`
	Quantity     int     `csv:"quantity"`
	EntryPrice   string  `csv:"entry_price"`
	ExitPrice    string  `csv:"exit_price"`
	RealizedPnL  string  `csv:"realized_pnl"`
	Fees         string  `csv:"fees"`
	OpenedAt     string  `csv:"opened_at"`
	ClosedAt     string  `csv:"closed_at"`
	HoldSeconds  float64 `csv:"hold_seconds"`
}

// equityRow is the CSV shape of one equity curve point.
type equityRow struct {
	Timestamp string `csv:"timestamp"`
	Equity    string `csv:"equity"`
}

// ExportTradesCSV writes the trade log to a CSV file.
func ExportTradesCSV(path string, trades []models.Trade) error {
	rows := make([]*tradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, &tradeRow{
			ID:           t.ID,
			InstrumentID: t.InstrumentID,
			Side:         string(t.Side),
			Quantity:     t.Quantity,
			EntryPrice:   t.EntryPrice.String(),
			ExitPrice:    t.ExitPrice.String(),
			RealizedPnL:  t.RealizedPnL.String(),
			Fees:         t.Fees.String(),
			OpenedAt:     t.OpenedAt.Format(time.RFC3339),
			ClosedAt:     t.ClosedAt.Format(time.RFC3339),
			HoldSeconds:  t.HoldDuration.Seconds(),
		})
	}
	return writeCSV(path, &rows)
}

// ExportEquityCSV writes the equity curve to a CSV file.
func ExportEquityCSV(path string, curve []models.EquityPoint) error {
	rows := make([]*equityRow, 0, len(curve))
	for _, p := range curve {
		rows = append(rows, &equityRow{
			Timestamp: p.Timestamp.Format(time.RFC3339),
			Equity:    p.Equity.String(),
		})
	}
	return writeCSV(path, &rows)
}

func writeCSV(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
