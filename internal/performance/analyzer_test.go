package performance

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"paper-trader/internal/config"
	"paper-trader/internal/models"
)

var curveStart = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func testAnalyzer() *Analyzer {
	return NewAnalyzer(config.PerformanceConfig{
		RiskFreeRate:   0.06,
		PeriodsPerYear: 252,
		VaRConfidence:  0.95,
	})
}

func curveOf(values ...float64) []models.EquityPoint {
	curve := make([]models.EquityPoint, len(values))
	for i, v := range values {
		curve[i] = models.EquityPoint{
			Timestamp: curveStart.AddDate(0, 0, i),
			Equity:    decimal.NewFromFloat(v),
		}
	}
	return curve
}

func trade(pnl float64) models.Trade {
	return models.Trade{RealizedPnL: decimal.NewFromFloat(pnl), Fees: decimal.NewFromFloat(1)}
}

func TestAnalyzeReturnsAndDrawdown(t *testing.T) {
	a := testAnalyzer()
	report := a.Analyze(curveOf(100, 120, 90, 130), nil)

	if got := report.TotalReturn; math.Abs(got-0.25) > 1e-12 {
		t.Errorf("total return = %v, want 0.25", got)
	}
	// Peak 120 to trough 90.
	if got := report.MaxDrawdown; math.Abs(got-0.25) > 1e-12 {
		t.Errorf("max drawdown = %v, want 0.25", got)
	}
	if !report.DrawdownPeakAt.Equal(curveStart.AddDate(0, 0, 1)) {
		t.Errorf("drawdown peak at = %v", report.DrawdownPeakAt)
	}
	if !report.DrawdownLowAt.Equal(curveStart.AddDate(0, 0, 2)) {
		t.Errorf("drawdown low at = %v", report.DrawdownLowAt)
	}
	if report.Periods != 3 {
		t.Errorf("periods = %d, want 3", report.Periods)
	}
	if report.SharpeRatio == nil {
		t.Error("Sharpe should be defined for a varying curve")
	}
}

func TestAnalyzeEmptyInputs(t *testing.T) {
	a := testAnalyzer()
	report := a.Analyze(nil, nil)

	if report.TotalReturn != 0 || report.MaxDrawdown != 0 {
		t.Errorf("empty report = %+v, want neutral values", report)
	}
	if report.SharpeRatio != nil || report.SortinoRatio != nil || report.AnnualReturn != nil {
		t.Error("ratios should be nil on empty input")
	}
	if report.Trades.Total != 0 || report.Trades.WinRate != 0 {
		t.Errorf("trade stats = %+v, want zeros", report.Trades)
	}
	if report.Trades.ProfitFactor != nil {
		t.Error("profit factor should be nil with no trades")
	}
}

func TestAnalyzeFlatCurve(t *testing.T) {
	a := testAnalyzer()
	report := a.Analyze(curveOf(100, 100, 100), nil)

	if report.TotalReturn != 0 {
		t.Errorf("total return = %v, want 0", report.TotalReturn)
	}
	if report.SharpeRatio != nil {
		t.Error("Sharpe undefined on a flat curve, want nil")
	}
	if report.MaxDrawdown != 0 {
		t.Errorf("drawdown = %v, want 0", report.MaxDrawdown)
	}
}

func TestAnalyzeTradeStats(t *testing.T) {
	a := testAnalyzer()
	trades := []models.Trade{
		trade(100), trade(-50), trade(-30), trade(200), trade(-20),
	}
	report := a.Analyze(nil, trades)
	s := report.Trades

	if s.Total != 5 || s.Winners != 2 || s.Losers != 3 {
		t.Errorf("counts = %+v", s)
	}
	if math.Abs(s.WinRate-0.4) > 1e-12 {
		t.Errorf("win rate = %v, want 0.4", s.WinRate)
	}
	if s.ProfitFactor == nil || math.Abs(*s.ProfitFactor-3.0) > 1e-12 {
		t.Errorf("profit factor = %v, want 3.0", s.ProfitFactor)
	}
	if math.Abs(s.AvgWin-150) > 1e-12 {
		t.Errorf("avg win = %v, want 150", s.AvgWin)
	}
	if math.Abs(s.AvgLoss-100.0/3) > 1e-9 {
		t.Errorf("avg loss = %v", s.AvgLoss)
	}
	if s.MaxConsecutive != 2 {
		t.Errorf("max consecutive losses = %d, want 2", s.MaxConsecutive)
	}
	if math.Abs(s.NetPnL-200) > 1e-9 {
		t.Errorf("net pnl = %v, want 200", s.NetPnL)
	}
}

func TestAnalyzeAllWinners(t *testing.T) {
	a := testAnalyzer()
	report := a.Analyze(nil, []models.Trade{trade(10), trade(20)})

	if report.Trades.ProfitFactor != nil {
		t.Error("profit factor should be nil with no losses")
	}
	if report.Trades.WinRate != 1 {
		t.Errorf("win rate = %v, want 1", report.Trades.WinRate)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	a := testAnalyzer()
	curve := curveOf(100, 104, 99, 107, 103, 111)
	trades := []models.Trade{trade(40), trade(-15)}

	first := a.Analyze(curve, trades)
	second := a.Analyze(curve, trades)

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated analysis should produce identical reports")
	}
}

// Property: max drawdown is always within [0,1] and exactly 0 for
// monotonically non-decreasing curves.
func TestProperty_DrawdownBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(3)

	properties := gopter.NewProperties(parameters)
	a := testAnalyzer()

	properties.Property("drawdown in [0,1]", prop.ForAll(
		func(values []float64) bool {
			if len(values) == 0 {
				return true
			}
			report := a.Analyze(curveOf(values...), nil)
			return report.MaxDrawdown >= 0 && report.MaxDrawdown <= 1
		},
		gen.SliceOf(gen.Float64Range(1, 1_000_000)),
	))

	properties.Property("monotone curves have zero drawdown", prop.ForAll(
		func(increments []float64) bool {
			values := make([]float64, 0, len(increments)+1)
			equity := 100.0
			values = append(values, equity)
			for _, inc := range increments {
				equity += inc
				values = append(values, equity)
			}
			report := a.Analyze(curveOf(values...), nil)
			return report.MaxDrawdown == 0
		},
		gen.SliceOf(gen.Float64Range(0, 1000)),
	))

	properties.TestingRun(t)
}
