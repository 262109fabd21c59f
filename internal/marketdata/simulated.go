package marketdata

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/models"
	"paper-trader/internal/trading"
)

// SimulatedProvider generates quotes from a seeded geometric random walk
// per underlying. Derivative quotes are derived from the walked spot:
// futures at the cost-of-carry forward, options at the Black-Scholes
// theoretical for the default volatility. The same seed always produces
// the same price path.
type SimulatedProvider struct {
	mu sync.Mutex

	rng       *rand.Rand
	pricer    *trading.Pricer
	riskFree  float64
	drift     float64
	vol       float64
	defaultIV float64

	instruments map[string]models.Instrument
	spots       map[string]decimal.Decimal
	lastStep    map[string]time.Time
}

// NewSimulatedProvider creates a provider seeded for a reproducible path.
func NewSimulatedProvider(seed int64, riskFree, drift, vol, defaultIV float64) *SimulatedProvider {
	return &SimulatedProvider{
		rng:         rand.New(rand.NewSource(seed)),
		pricer:      trading.NewPricer(riskFree),
		riskFree:    riskFree,
		drift:       drift,
		vol:         vol,
		defaultIV:   defaultIV,
		instruments: make(map[string]models.Instrument),
		spots:       make(map[string]decimal.Decimal),
		lastStep:    make(map[string]time.Time),
	}
}

// Register adds an instrument and, for underlyings not yet seen, their
// starting spot.
func (p *SimulatedProvider) Register(instr models.Instrument, startSpot decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.instruments[instr.ID] = instr
	key := underlyingKey(instr)
	if _, ok := p.spots[key]; !ok {
		p.spots[key] = startSpot
	}
}

// Quote walks the underlying forward to the requested time and derives the
// instrument quote from the resulting spot.
func (p *SimulatedProvider) Quote(instrumentID string, at time.Time) (models.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	instr, ok := p.instruments[instrumentID]
	if !ok {
		return models.Quote{}, apperrors.Wrapf(apperrors.ErrUnknownInstrument, "instrument %s", instrumentID)
	}

	spot := p.advance(underlyingKey(instr), at)

	last := spot
	var iv float64
	switch instr.Class {
	case models.AssetFuture:
		tte := instr.Expiry.Sub(at).Hours() / (24 * 365)
		if tte < 0 {
			tte = 0
		}
		carry := math.Exp(p.riskFree * tte)
		last = spot.Mul(decimal.NewFromFloat(carry))
	case models.AssetOption:
		iv = p.defaultIV
		last = p.pricer.Price(instr, spot, iv, at).Theoretical
	}

	return models.Quote{
		InstrumentID: instrumentID,
		Timestamp:    at,
		Last:         last.Round(2),
		Volume:       100000 + p.rng.Int63n(900000),
		IV:           iv,
	}, nil
}

// advance steps the geometric walk for the elapsed time since the last
// quote of this underlying. Requests at or before the last step reuse the
// current spot, keeping same-bar quotes consistent.
func (p *SimulatedProvider) advance(key string, at time.Time) decimal.Decimal {
	spot := p.spots[key]
	last, stepped := p.lastStep[key]
	if stepped && !at.After(last) {
		return spot
	}
	if stepped {
		dt := at.Sub(last).Hours() / (24 * 365)
		z := p.rng.NormFloat64()
		growth := math.Exp((p.drift-0.5*p.vol*p.vol)*dt + p.vol*math.Sqrt(dt)*z)
		spot = spot.Mul(decimal.NewFromFloat(growth))
		p.spots[key] = spot
	}
	p.lastStep[key] = at
	return spot
}

// Spot returns the current walked spot for an instrument's underlying.
func (p *SimulatedProvider) Spot(instrumentID string) (decimal.Decimal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	instr, ok := p.instruments[instrumentID]
	if !ok {
		return decimal.Zero, false
	}
	spot, ok := p.spots[underlyingKey(instr)]
	return spot, ok
}

func underlyingKey(instr models.Instrument) string {
	if instr.Underlying != "" {
		return instr.Underlying
	}
	return instr.Symbol
}
