// Package performance computes summary statistics over equity curves and
// closed-trade logs.
package performance

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"paper-trader/internal/config"
	"paper-trader/internal/models"
)

// Analyzer derives a PerformanceReport from an equity curve and a trade
// log. Analyze is pure: it never mutates its inputs and repeated calls on
// the same inputs produce identical reports.
type Analyzer struct {
	riskFreeRate   float64
	periodsPerYear int
	varConfidence  float64
}

// NewAnalyzer creates an analyzer with the configured parameters.
func NewAnalyzer(cfg config.PerformanceConfig) *Analyzer {
	return &Analyzer{
		riskFreeRate:   cfg.RiskFreeRate,
		periodsPerYear: cfg.PeriodsPerYear,
		varConfidence:  cfg.VaRConfidence,
	}
}

// Analyze computes the full report. Metrics that are undefined for the
// input (too few points, zero variance, no losing trades) are left nil
// rather than reported as zero.
func (a *Analyzer) Analyze(curve []models.EquityPoint, trades []models.Trade) *models.PerformanceReport {
	report := &models.PerformanceReport{
		VaRConfidence: a.varConfidence,
		Trades:        a.tradeStats(trades),
	}

	if len(curve) == 0 {
		return report
	}

	report.Start = curve[0].Timestamp
	report.End = curve[len(curve)-1].Timestamp
	report.Periods = len(curve) - 1
	report.InitialEquity = curve[0].Equity.InexactFloat64()
	report.FinalEquity = curve[len(curve)-1].Equity.InexactFloat64()

	if report.InitialEquity != 0 {
		report.TotalReturn = report.FinalEquity/report.InitialEquity - 1
	}

	returns := periodReturns(curve)
	if len(returns) > 0 {
		annual := math.Pow(1+report.TotalReturn, float64(a.periodsPerYear)/float64(len(returns))) - 1
		report.AnnualReturn = &annual

		if vol, ok := annualizedVol(returns, a.periodsPerYear); ok {
			report.Volatility = &vol
		}
		if sharpe, ok := a.sharpe(returns); ok {
			report.SharpeRatio = &sharpe
		}
		if sortino, ok := a.sortino(returns); ok {
			report.SortinoRatio = &sortino
		}
		if v, ok := historicalVaR(returns, a.varConfidence); ok {
			report.ValueAtRisk = &v
		}
	}

	dd, peakAt, lowAt := maxDrawdown(curve)
	report.MaxDrawdown = dd
	report.DrawdownPeakAt = peakAt
	report.DrawdownLowAt = lowAt

	return report
}

// periodReturns converts an equity curve to simple per-period returns,
// skipping periods that start at zero equity.
func periodReturns(curve []models.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity.InexactFloat64()
		if prev == 0 {
			continue
		}
		returns = append(returns, curve[i].Equity.InexactFloat64()/prev-1)
	}
	return returns
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev returns the sample standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

func annualizedVol(returns []float64, periodsPerYear int) (float64, bool) {
	sd := stddev(returns)
	if sd == 0 {
		return 0, false
	}
	return sd * math.Sqrt(float64(periodsPerYear)), true
}

func (a *Analyzer) sharpe(returns []float64) (float64, bool) {
	sd := stddev(returns)
	if sd == 0 {
		return 0, false
	}
	rfPerPeriod := a.riskFreeRate / float64(a.periodsPerYear)
	excess := mean(returns) - rfPerPeriod
	return excess / sd * math.Sqrt(float64(a.periodsPerYear)), true
}

// sortino uses downside deviation below a zero target.
func (a *Analyzer) sortino(returns []float64) (float64, bool) {
	sum := 0.0
	for _, r := range returns {
		if r < 0 {
			sum += r * r
		}
	}
	downside := math.Sqrt(sum / float64(len(returns)))
	if downside == 0 {
		return 0, false
	}
	rfPerPeriod := a.riskFreeRate / float64(a.periodsPerYear)
	excess := mean(returns) - rfPerPeriod
	return excess / downside * math.Sqrt(float64(a.periodsPerYear)), true
}

// historicalVaR reports the loss (positive number) at the given confidence
// from the empirical return distribution.
func historicalVaR(returns []float64, confidence float64) (float64, bool) {
	if len(returns) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	loss := -sorted[idx]
	if loss < 0 {
		loss = 0
	}
	return loss, true
}

// maxDrawdown returns the largest peak-to-trough decline as a fraction in
// [0,1], with the peak resetting at each new high. Ties resolve to the
// earliest trough.
func maxDrawdown(curve []models.EquityPoint) (float64, time.Time, time.Time) {
	if len(curve) == 0 {
		return 0, time.Time{}, time.Time{}
	}

	peak := curve[0].Equity.InexactFloat64()
	peakTime := curve[0].Timestamp

	var worst float64
	var worstPeakAt, worstLowAt time.Time

	for _, p := range curve {
		eq := p.Equity.InexactFloat64()
		if eq > peak {
			peak = eq
			peakTime = p.Timestamp
			continue
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - eq) / peak
		if dd > worst {
			worst = dd
			worstPeakAt = peakTime
			worstLowAt = p.Timestamp
		}
	}
	return worst, worstPeakAt, worstLowAt
}

func (a *Analyzer) tradeStats(trades []models.Trade) models.TradeStats {
	stats := models.TradeStats{Total: len(trades)}
	if len(trades) == 0 {
		return stats
	}

	grossWin := decimal.Zero
	grossLoss := decimal.Zero
	consecutive := 0

	for _, t := range trades {
		stats.NetPnL += t.RealizedPnL.InexactFloat64()
		stats.TotalFees += t.Fees.InexactFloat64()

		switch {
		case t.RealizedPnL.IsPositive():
			stats.Winners++
			grossWin = grossWin.Add(t.RealizedPnL)
			consecutive = 0
		case t.RealizedPnL.IsNegative():
			stats.Losers++
			grossLoss = grossLoss.Add(t.RealizedPnL.Neg())
			consecutive++
			if consecutive > stats.MaxConsecutive {
				stats.MaxConsecutive = consecutive
			}
		default:
			consecutive = 0
		}
	}

	stats.WinRate = float64(stats.Winners) / float64(stats.Total)
	if stats.Winners > 0 {
		stats.AvgWin = grossWin.InexactFloat64() / float64(stats.Winners)
	}
	if stats.Losers > 0 {
		stats.AvgLoss = grossLoss.InexactFloat64() / float64(stats.Losers)
		pf := grossWin.InexactFloat64() / grossLoss.InexactFloat64()
		stats.ProfitFactor = &pf
	}
	return stats
}
