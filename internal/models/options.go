package models

import "github.com/shopspring/decimal"

// OptionGreeks represents option price sensitivities. Theta is per calendar
// day; Vega is per one volatility point.
type OptionGreeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// OptionQuote is the theoretical valuation of an option contract for one
// quote and timestamp.
type OptionQuote struct {
	Theoretical decimal.Decimal
	Intrinsic   decimal.Decimal
	Greeks      OptionGreeks
	Degenerate  bool // expired or zero-volatility input, resolved to intrinsic
}

// StrategyKind identifies a recognized multi-leg option combination.
type StrategyKind string

const (
	StrategyVerticalSpread StrategyKind = "VERTICAL_SPREAD"
	StrategyStraddle       StrategyKind = "STRADDLE"
	StrategyStrangle       StrategyKind = "STRANGLE"
	StrategyIronCondor     StrategyKind = "IRON_CONDOR"
	StrategyUnclassified   StrategyKind = "UNCLASSIFIED"
)

// StrategyLeg is a single leg of a multi-leg position.
type StrategyLeg struct {
	Instrument Instrument
	Side       OrderSide
	Quantity   int
	EntryPrice decimal.Decimal
}

// StrategyPosition aggregates a set of individual legs under one named
// combination with a net margin computed by the margin calculator.
type StrategyPosition struct {
	Name      string
	Kind      StrategyKind
	Legs      []StrategyLeg
	NetMargin decimal.Decimal
}
