package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a single trading intent. An order is created once by a
// signal source and consumed exactly once by the execution simulator.
type Order struct {
	ID           string
	InstrumentID string
	Side         OrderSide
	Type         OrderType
	Quantity     int
	LimitPrice   decimal.Decimal // LIMIT orders only
	PlacedAt     time.Time
	Tag          string
}

// Fill is the executed result of an order against a quote. Fills are
// immutable and appended to the ledger's ordered fill log.
type Fill struct {
	OrderID      string
	InstrumentID string
	Side         OrderSide
	Quantity     int
	Price        decimal.Decimal
	Fee          decimal.Decimal
	Slippage     decimal.Decimal // per-unit price adjustment applied
	MarginHeld   decimal.Decimal // margin committed for this fill (derivatives)
	Timestamp    time.Time
}

// Notional returns price x quantity x multiplier for the given instrument.
func (f Fill) Notional(instr Instrument) decimal.Decimal {
	return f.Price.Mul(decimal.NewFromInt(int64(f.Quantity))).Mul(instr.ContractMultiplier())
}

// Trade is a closed-trade record emitted by the ledger when a position is
// reduced or closed. Realized P&L is net of nothing: fees for both legs are
// reported separately so the analyzer can treat costs explicitly.
type Trade struct {
	ID           string
	InstrumentID string
	Side         OrderSide // direction of the position that was closed
	Quantity     int
	EntryPrice   decimal.Decimal
	ExitPrice    decimal.Decimal
	RealizedPnL  decimal.Decimal
	Fees         decimal.Decimal
	OpenedAt     time.Time
	ClosedAt     time.Time
	HoldDuration time.Duration
}

// Position represents open exposure in one instrument. Quantity is signed:
// positive is long, negative is short.
type Position struct {
	InstrumentID string
	Quantity     int
	AvgPrice     decimal.Decimal
	CostBasis    decimal.Decimal // signed cash paid to carry the position; zero for futures
	Multiplier   int
	MarginHeld   decimal.Decimal
	RealizedPnL  decimal.Decimal
	OpenedAt     time.Time
}

// MarketValue returns the current value of the position against a price.
// Futures positions carry no cash value of their own; their market value is
// the unrealized variation against the entry price.
func (p Position) MarketValue(class AssetClass, price decimal.Decimal) decimal.Decimal {
	if class == AssetFuture {
		return p.UnrealizedPnL(price)
	}
	qty := decimal.NewFromInt(int64(p.Quantity))
	mult := decimal.NewFromInt(int64(max(p.Multiplier, 1)))
	return price.Mul(qty).Mul(mult)
}

// UnrealizedPnL returns the open P&L against a price.
func (p Position) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(int64(p.Quantity))
	mult := decimal.NewFromInt(int64(max(p.Multiplier, 1)))
	return price.Sub(p.AvgPrice).Mul(qty).Mul(mult)
}

// CashOutlay returns the cash actually paid (or received, when negative) to
// carry the position. Futures are settled on margin and have no outlay.
func (p Position) CashOutlay(class AssetClass) decimal.Decimal {
	if class == AssetFuture {
		return decimal.Zero
	}
	return p.CostBasis
}
