package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"paper-trader/internal/backtest"
	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "opening %s: %v", dbPath, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.Wrapf(apperrors.ErrDatabaseError, "initializing schema: %v", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Runs table: one row per backtest, report stored as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		strategy TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		final_equity REAL NOT NULL,
		total_return REAL NOT NULL,
		trade_count INTEGER NOT NULL,
		report_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Closed trades per run
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		instrument_id TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		entry_price TEXT NOT NULL,
		exit_price TEXT NOT NULL,
		realized_pnl TEXT NOT NULL,
		fees TEXT NOT NULL,
		opened_at DATETIME NOT NULL,
		closed_at DATETIME NOT NULL,
		hold_seconds INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);

	-- Equity curve per run
	CREATE TABLE IF NOT EXISTS equity_points (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		equity TEXT NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	-- Candle cache for historical scenarios
	CREATE TABLE IF NOT EXISTS candles (
		instrument_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open TEXT NOT NULL,
		high TEXT NOT NULL,
		low TEXT NOT NULL,
		close TEXT NOT NULL,
		volume INTEGER NOT NULL,
		PRIMARY KEY (instrument_id, timestamp)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveResult persists the run header, report, trades and equity curve in
// one transaction.
func (s *SQLiteStore) SaveResult(ctx context.Context, result *backtest.Result) error {
	reportJSON, err := json.Marshal(result.Report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, strategy, started_at, final_equity, total_return, trade_count, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Scenario, result.Strategy, result.StartedAt,
		result.Report.FinalEquity, result.Report.TotalReturn, len(result.Trades), string(reportJSON))
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, t := range result.Trades {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trades (id, run_id, instrument_id, side, quantity, entry_price, exit_price,
				realized_pnl, fees, opened_at, closed_at, hold_seconds)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, result.RunID, t.InstrumentID, string(t.Side), t.Quantity,
			t.EntryPrice.String(), t.ExitPrice.String(), t.RealizedPnL.String(), t.Fees.String(),
			t.OpenedAt, t.ClosedAt, int64(t.HoldDuration.Seconds()))
		if err != nil {
			return fmt.Errorf("inserting trade %s: %w", t.ID, err)
		}
	}

	for i, p := range result.EquityCurve {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO equity_points (run_id, seq, timestamp, equity) VALUES (?, ?, ?, ?)`,
			result.RunID, i, p.Timestamp, p.Equity.String())
		if err != nil {
			return fmt.Errorf("inserting equity point %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, strategy, started_at, final_equity, total_return, trade_count
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Scenario, &r.Strategy, &r.StartedAt,
			&r.FinalEquity, &r.TotalReturn, &r.TradeCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetReport loads the stored performance report for a run.
func (s *SQLiteStore) GetReport(ctx context.Context, runID string) (*models.PerformanceReport, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT report_json FROM runs WHERE id = ?`, runID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying report: %w", err)
	}

	var report models.PerformanceReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}
	return &report, nil
}

// GetTrades loads the closed trades of a run in close order.
func (s *SQLiteStore) GetTrades(ctx context.Context, runID string) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, instrument_id, side, quantity, entry_price, exit_price, realized_pnl, fees,
			opened_at, closed_at, hold_seconds
		FROM trades WHERE run_id = ? ORDER BY closed_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var t models.Trade
		var entry, exit, pnl, fees string
		var holdSeconds int64
		if err := rows.Scan(&t.ID, &t.InstrumentID, &t.Side, &t.Quantity,
			&entry, &exit, &pnl, &fees, &t.OpenedAt, &t.ClosedAt, &holdSeconds); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		if t.EntryPrice, err = decimal.NewFromString(entry); err != nil {
			return nil, fmt.Errorf("parsing entry price: %w", err)
		}
		if t.ExitPrice, err = decimal.NewFromString(exit); err != nil {
			return nil, fmt.Errorf("parsing exit price: %w", err)
		}
		if t.RealizedPnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("parsing realized pnl: %w", err)
		}
		if t.Fees, err = decimal.NewFromString(fees); err != nil {
			return nil, fmt.Errorf("parsing fees: %w", err)
		}
		t.HoldDuration = time.Duration(holdSeconds) * time.Second
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetEquityCurve loads the equity curve of a run in snapshot order.
func (s *SQLiteStore) GetEquityCurve(ctx context.Context, runID string) ([]models.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, equity FROM equity_points WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying equity curve: %w", err)
	}
	defer rows.Close()

	var out []models.EquityPoint
	for rows.Next() {
		var p models.EquityPoint
		var equity string
		if err := rows.Scan(&p.Timestamp, &equity); err != nil {
			return nil, fmt.Errorf("scanning equity point: %w", err)
		}
		if p.Equity, err = decimal.NewFromString(equity); err != nil {
			return nil, fmt.Errorf("parsing equity: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveCandles upserts a candle series into the cache.
func (s *SQLiteStore) SaveCandles(ctx context.Context, instrumentID string, candles []models.Candle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range candles {
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO candles (instrument_id, timestamp, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			instrumentID, c.Timestamp, c.Open.String(), c.High.String(),
			c.Low.String(), c.Close.String(), c.Volume)
		if err != nil {
			return fmt.Errorf("inserting candle: %w", err)
		}
	}
	return tx.Commit()
}

// LoadCandles returns the cached series for an instrument in time order.
func (s *SQLiteStore) LoadCandles(ctx context.Context, instrumentID string) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM candles WHERE instrument_id = ? ORDER BY timestamp`, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("querying candles: %w", err)
	}
	defer rows.Close()

	var out []models.Candle
	for rows.Next() {
		var c models.Candle
		var open, high, low, closeStr string
		if err := rows.Scan(&c.Timestamp, &open, &high, &low, &closeStr, &c.Volume); err != nil {
			return nil, fmt.Errorf("scanning candle: %w", err)
		}
		if c.Open, err = decimal.NewFromString(open); err != nil {
			return nil, fmt.Errorf("parsing open: %w", err)
		}
		if c.High, err = decimal.NewFromString(high); err != nil {
			return nil, fmt.Errorf("parsing high: %w", err)
		}
		if c.Low, err = decimal.NewFromString(low); err != nil {
			return nil, fmt.Errorf("parsing low: %w", err)
		}
		if c.Close, err = decimal.NewFromString(closeStr); err != nil {
			return nil, fmt.Errorf("parsing close: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
