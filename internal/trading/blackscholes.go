// Package trading provides the simulation core: option pricing, margin
// rules, order execution and the position ledger.
package trading

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"paper-trader/internal/models"
)

// Pricer computes theoretical option values and Greeks with Black-Scholes.
type Pricer struct {
	RiskFreeRate float64
}

// NewPricer creates a pricer with the given annual risk-free rate.
func NewPricer(riskFreeRate float64) *Pricer {
	return &Pricer{RiskFreeRate: riskFreeRate}
}

// Price values an option instrument against a spot quote for the underlying.
// Degenerate inputs (expired contract, non-positive volatility or spot)
// resolve to intrinsic value with zero sensitivities.
func (p *Pricer) Price(instr models.Instrument, spot decimal.Decimal, iv float64, at time.Time) models.OptionQuote {
	s := spot.InexactFloat64()
	k := instr.Strike.InexactFloat64()
	tte := yearsUntil(at, instr.Expiry)

	intrinsic := intrinsicValue(instr.Right, s, k)

	if tte <= 0 || iv <= 0 || s <= 0 || k <= 0 {
		return models.OptionQuote{
			Theoretical: decimal.NewFromFloat(intrinsic),
			Intrinsic:   decimal.NewFromFloat(intrinsic),
			Degenerate:  true,
		}
	}

	r := p.RiskFreeRate
	sqrtT := math.Sqrt(tte)
	d1 := (math.Log(s/k) + (r+0.5*iv*iv)*tte) / (iv * sqrtT)
	d2 := d1 - iv*sqrtT

	var price, delta, theta float64
	discount := k * math.Exp(-r*tte)

	switch instr.Right {
	case models.RightCall:
		price = s*normCDF(d1) - discount*normCDF(d2)
		delta = normCDF(d1)
		theta = -(s*normPDF(d1)*iv)/(2*sqrtT) - r*discount*normCDF(d2)
	default:
		price = discount*normCDF(-d2) - s*normCDF(-d1)
		delta = normCDF(d1) - 1
		theta = -(s*normPDF(d1)*iv)/(2*sqrtT) + r*discount*normCDF(-d2)
	}

	gamma := normPDF(d1) / (s * iv * sqrtT)
	vega := s * normPDF(d1) * sqrtT / 100 // per 1 vol point

	return models.OptionQuote{
		Theoretical: decimal.NewFromFloat(price),
		Intrinsic:   decimal.NewFromFloat(intrinsic),
		Greeks: models.OptionGreeks{
			Delta: delta,
			Gamma: gamma,
			Theta: theta / 365, // per calendar day
			Vega:  vega,
		},
	}
}

func intrinsicValue(right models.OptionRight, spot, strike float64) float64 {
	var v float64
	if right == models.RightCall {
		v = spot - strike
	} else {
		v = strike - spot
	}
	if v < 0 {
		return 0
	}
	return v
}

func yearsUntil(from, to time.Time) float64 {
	return to.Sub(from).Hours() / (24 * 365)
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
