package models

import "time"

// PerformanceReport is the derived, read-only metric suite computed from the
// equity curve and trade log. All fields are plain values so the report can
// be serialized by any presentation layer. Pointer fields are nil when the
// metric is undefined for the input (for example Sharpe on a flat curve).
type PerformanceReport struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Periods        int       `json:"periods"`
	InitialEquity  float64   `json:"initial_equity"`
	FinalEquity    float64   `json:"final_equity"`
	TotalReturn    float64   `json:"total_return"`
	AnnualReturn   *float64  `json:"annual_return,omitempty"`
	Volatility     *float64  `json:"volatility,omitempty"`
	SharpeRatio    *float64  `json:"sharpe_ratio,omitempty"`
	SortinoRatio   *float64  `json:"sortino_ratio,omitempty"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	DrawdownPeakAt time.Time `json:"drawdown_peak_at"`
	DrawdownLowAt  time.Time `json:"drawdown_low_at"`
	ValueAtRisk    *float64  `json:"value_at_risk,omitempty"`
	VaRConfidence  float64   `json:"var_confidence"`

	Trades TradeStats `json:"trades"`
}

// TradeStats summarizes closed trades only; open positions contribute to
// equity through unrealized P&L but never to these counters.
type TradeStats struct {
	Total          int      `json:"total"`
	Winners        int      `json:"winners"`
	Losers         int      `json:"losers"`
	WinRate        float64  `json:"win_rate"`
	ProfitFactor   *float64 `json:"profit_factor,omitempty"`
	AvgWin         float64  `json:"avg_win"`
	AvgLoss        float64  `json:"avg_loss"`
	NetPnL         float64  `json:"net_pnl"`
	TotalFees      float64  `json:"total_fees"`
	MaxConsecutive int      `json:"max_consecutive_losses"`
}
