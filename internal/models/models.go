// Package models provides domain models for the simulation core.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass represents the class of a tradeable instrument.
type AssetClass string

const (
	AssetEquity AssetClass = "EQUITY"
	AssetIndex  AssetClass = "INDEX"
	AssetFuture AssetClass = "FUTURE"
	AssetOption AssetClass = "OPTION"
)

// OptionRight represents the right conferred by an option contract.
type OptionRight string

const (
	RightCall OptionRight = "CALL"
	RightPut  OptionRight = "PUT"
)

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Instrument describes a tradeable contract. Instances are treated as
// immutable once created; the core never mutates them.
type Instrument struct {
	ID         string
	Symbol     string
	Underlying string
	Class      AssetClass
	Strike     decimal.Decimal
	Expiry     time.Time
	Right      OptionRight
	Multiplier int // contract/lot size; 1 for cash equity
	TickSize   decimal.Decimal
}

// IsDerivative reports whether the instrument carries margin rather than
// full cash value.
func (i Instrument) IsDerivative() bool {
	return i.Class == AssetFuture || i.Class == AssetOption
}

// ContractMultiplier returns the multiplier as a decimal, defaulting to 1
// when unset.
func (i Instrument) ContractMultiplier() decimal.Decimal {
	if i.Multiplier <= 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(i.Multiplier))
}

// Quote represents a market quote supplied by an external provider.
// Bid/Ask are zero when the provider has no book. IV is populated for
// options only.
type Quote struct {
	InstrumentID string
	Timestamp    time.Time
	Last         decimal.Decimal
	Bid          decimal.Decimal
	Ask          decimal.Decimal
	Volume       int64
	IV           float64
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    decimal.Decimal
}

// SignalAction is the decision emitted by a signal source.
type SignalAction string

const (
	SignalBuy  SignalAction = "BUY"
	SignalSell SignalAction = "SELL"
	SignalHold SignalAction = "HOLD"
)

// Signal is a strategy decision at one point of the replay timeline.
type Signal struct {
	Action SignalAction
	Reason string
}
