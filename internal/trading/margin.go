package trading

import (
	"sort"

	"github.com/shopspring/decimal"

	"paper-trader/internal/config"
	"paper-trader/internal/models"
)

// Calculator computes margin requirements per asset class.
type Calculator struct {
	cfg config.MarginConfig
}

// NewCalculator creates a margin calculator from configured percentages.
func NewCalculator(cfg config.MarginConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

var hundred = decimal.NewFromInt(100)

// Required returns the margin that must be committed to open the given
// quantity of the instrument at the given price. Equity is funded in full
// and carries no margin. Spot is the underlying price, used for short
// option requirements; pass the instrument price itself for non-options.
func (c *Calculator) Required(instr models.Instrument, side models.OrderSide, qty int, price, spot decimal.Decimal) decimal.Decimal {
	if qty < 0 {
		qty = -qty
	}
	units := decimal.NewFromInt(int64(qty)).Mul(instr.ContractMultiplier())

	switch instr.Class {
	case models.AssetFuture:
		pct := decimal.NewFromFloat(c.cfg.FuturesPercent).Div(hundred)
		return price.Mul(units).Mul(pct)

	case models.AssetOption:
		premium := price.Mul(units)
		if side == models.OrderSideBuy {
			// Long options are fully paid; the premium is the outlay,
			// not held margin.
			return decimal.Zero
		}
		return premium.Add(c.shortOptionAddOn(instr, spot).Mul(units))

	default:
		return decimal.Zero
	}
}

// CapitalRequired returns the free cash an account must have to open the
// given quantity: full notional for equity and index, committed margin for
// futures, premium for long options, premium plus exposure charge for
// short options.
func (c *Calculator) CapitalRequired(instr models.Instrument, side models.OrderSide, qty int, price, spot decimal.Decimal) decimal.Decimal {
	if qty < 0 {
		qty = -qty
	}
	units := decimal.NewFromInt(int64(qty)).Mul(instr.ContractMultiplier())

	switch instr.Class {
	case models.AssetFuture:
		return c.Required(instr, side, qty, price, spot)
	case models.AssetOption:
		if side == models.OrderSideBuy {
			return price.Mul(units)
		}
		return c.Required(instr, side, qty, price, spot)
	default:
		return price.Mul(units)
	}
}

// shortOptionAddOn returns the per-unit exposure charge for a written
// option: a percentage of spot reduced by out-of-the-money amount, floored
// at a smaller percentage of spot.
func (c *Calculator) shortOptionAddOn(instr models.Instrument, spot decimal.Decimal) decimal.Decimal {
	pct := decimal.NewFromFloat(c.cfg.ShortOptionPercent).Div(hundred)
	floor := decimal.NewFromFloat(c.cfg.ShortOptionFloor).Div(hundred)

	var otm decimal.Decimal
	if instr.Right == models.RightCall {
		otm = instr.Strike.Sub(spot)
	} else {
		otm = spot.Sub(instr.Strike)
	}
	if otm.IsNegative() {
		otm = decimal.Zero
	}

	charge := spot.Mul(pct).Sub(otm)
	minimum := spot.Mul(floor)
	if charge.LessThan(minimum) {
		return minimum
	}
	return charge
}

// StrategyMargin computes the net margin for a multi-leg option position.
// Recognized hedged combinations get their summed per-leg margins reduced
// by the configured offset factor; anything else pays the conservative sum.
func (c *Calculator) StrategyMargin(legs []models.StrategyLeg, spot decimal.Decimal) (decimal.Decimal, models.StrategyKind) {
	total := decimal.Zero
	for _, leg := range legs {
		total = total.Add(c.Required(leg.Instrument, leg.Side, leg.Quantity, leg.EntryPrice, spot))
	}

	kind := Classify(legs)
	if kind != models.StrategyUnclassified {
		total = total.Mul(decimal.NewFromFloat(c.cfg.OffsetFactor))
	}
	return total, kind
}

// Classify identifies a recognized option combination from its legs.
func Classify(legs []models.StrategyLeg) models.StrategyKind {
	for _, leg := range legs {
		if leg.Instrument.Class != models.AssetOption {
			return models.StrategyUnclassified
		}
	}
	if !sameExpiry(legs) {
		return models.StrategyUnclassified
	}

	switch len(legs) {
	case 2:
		return classifyPair(legs[0], legs[1])
	case 4:
		return classifyQuad(legs)
	}
	return models.StrategyUnclassified
}

func classifyPair(a, b models.StrategyLeg) models.StrategyKind {
	sameRight := a.Instrument.Right == b.Instrument.Right
	sameStrike := a.Instrument.Strike.Equal(b.Instrument.Strike)
	sameSide := a.Side == b.Side

	if sameRight && !sameStrike && !sameSide && a.Quantity == b.Quantity {
		return models.StrategyVerticalSpread
	}
	if !sameRight && sameSide && a.Quantity == b.Quantity {
		if sameStrike {
			return models.StrategyStraddle
		}
		return models.StrategyStrangle
	}
	return models.StrategyUnclassified
}

// classifyQuad recognizes an iron condor: a vertical spread in calls plus a
// vertical spread in puts.
func classifyQuad(legs []models.StrategyLeg) models.StrategyKind {
	var calls, puts []models.StrategyLeg
	for _, leg := range legs {
		if leg.Instrument.Right == models.RightCall {
			calls = append(calls, leg)
		} else {
			puts = append(puts, leg)
		}
	}
	if len(calls) != 2 || len(puts) != 2 {
		return models.StrategyUnclassified
	}
	if classifyPair(calls[0], calls[1]) != models.StrategyVerticalSpread {
		return models.StrategyUnclassified
	}
	if classifyPair(puts[0], puts[1]) != models.StrategyVerticalSpread {
		return models.StrategyUnclassified
	}
	return models.StrategyIronCondor
}

func sameExpiry(legs []models.StrategyLeg) bool {
	for i := 1; i < len(legs); i++ {
		if !legs[i].Instrument.Expiry.Equal(legs[0].Instrument.Expiry) {
			return false
		}
	}
	return true
}

// BuildStrategyPosition assembles a named multi-leg aggregate with its net
// margin, legs sorted by strike for stable display.
func (c *Calculator) BuildStrategyPosition(name string, legs []models.StrategyLeg, spot decimal.Decimal) models.StrategyPosition {
	sorted := make([]models.StrategyLeg, len(legs))
	copy(sorted, legs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Instrument.Strike.LessThan(sorted[j].Instrument.Strike)
	})

	margin, kind := c.StrategyMargin(sorted, spot)
	return models.StrategyPosition{
		Name:      name,
		Kind:      kind,
		Legs:      sorted,
		NetMargin: margin,
	}
}
