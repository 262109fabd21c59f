package trading

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/models"
)

// Ledger tracks cash, open positions, committed margin and realized P&L
// for one simulated account. All mutation happens inside Apply under a
// single mutex, so a fill either lands completely or not at all.
//
// The ledger maintains the conservation identity after every apply:
//
//	cash + marginHeld + Σ cash outlay of open positions
//	    - realized P&L + fees paid == initial capital
//
// Fills are assumed to have passed simulator validation; the ledger does
// not re-reject.
type Ledger struct {
	mu sync.Mutex

	initialCapital decimal.Decimal
	cash           decimal.Decimal
	marginHeld     decimal.Decimal
	realizedPnL    decimal.Decimal
	feesPaid       decimal.Decimal

	positions   map[string]*models.Position
	instruments map[string]models.Instrument

	fills  []models.Fill
	trades []models.Trade
	curve  []models.EquityPoint
}

// NewLedger creates a ledger with the given starting cash.
func NewLedger(initialCapital decimal.Decimal) *Ledger {
	return &Ledger{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]*models.Position),
		instruments:    make(map[string]models.Instrument),
	}
}

// Apply books the fill: cash, position, margin and trade log move together
// atomically. A fill that reverses through zero is decomposed into a close
// of the existing position and a fresh open, still within one apply.
func (l *Ledger) Apply(fill models.Fill, instr models.Instrument) error {
	if fill.InstrumentID != instr.ID {
		return apperrors.NewValidationError("instrument", fill.InstrumentID, "fill does not match instrument")
	}
	if fill.Quantity <= 0 {
		return apperrors.NewValidationError("quantity", fill.Quantity, "fill quantity must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.instruments[instr.ID] = instr
	l.cash = l.cash.Sub(fill.Fee)
	l.feesPaid = l.feesPaid.Add(fill.Fee)

	delta := fill.Quantity
	if fill.Side == models.OrderSideSell {
		delta = -fill.Quantity
	}

	pos := l.positions[instr.ID]
	if pos == nil {
		pos = &models.Position{
			InstrumentID: instr.ID,
			Multiplier:   instr.Multiplier,
			OpenedAt:     fill.Timestamp,
		}
		l.positions[instr.ID] = pos
	}

	switch {
	case pos.Quantity == 0 || sameSign(pos.Quantity, delta):
		l.open(pos, instr, fill, delta)
	case abs(delta) <= abs(pos.Quantity):
		l.close(pos, instr, fill, abs(delta))
	default:
		// Reversal: close out the whole position, reopen the remainder
		// in the new direction.
		remainder := abs(delta) - abs(pos.Quantity)
		l.close(pos, instr, fill, abs(pos.Quantity))
		pos.OpenedAt = fill.Timestamp
		if delta > 0 {
			l.open(pos, instr, fill, remainder)
		} else {
			l.open(pos, instr, fill, -remainder)
		}
	}

	if pos.Quantity == 0 && pos.MarginHeld.IsZero() {
		delete(l.positions, instr.ID)
	}

	l.fills = append(l.fills, fill)
	return nil
}

// open adds delta units at the fill price, volume-weighting the average
// entry and committing the fill's margin out of free cash.
func (l *Ledger) open(pos *models.Position, instr models.Instrument, fill models.Fill, delta int) {
	if delta == 0 {
		return
	}
	mult := instr.ContractMultiplier()
	units := decimal.NewFromInt(int64(abs(delta))).Mul(mult)

	if instr.Class != models.AssetFuture {
		outlay := fill.Price.Mul(units)
		if delta < 0 {
			outlay = outlay.Neg()
		}
		l.cash = l.cash.Sub(outlay)
		pos.CostBasis = pos.CostBasis.Add(outlay)
	}

	oldQty := decimal.NewFromInt(int64(abs(pos.Quantity)))
	newQty := decimal.NewFromInt(int64(abs(delta)))
	total := oldQty.Add(newQty)
	if pos.Quantity == 0 {
		pos.AvgPrice = fill.Price
		pos.OpenedAt = fill.Timestamp
	} else {
		pos.AvgPrice = pos.AvgPrice.Mul(oldQty).Add(fill.Price.Mul(newQty)).Div(total)
	}
	pos.Quantity += delta
	pos.Multiplier = instr.Multiplier

	if fill.MarginHeld.IsPositive() {
		l.cash = l.cash.Sub(fill.MarginHeld)
		l.marginHeld = l.marginHeld.Add(fill.MarginHeld)
		pos.MarginHeld = pos.MarginHeld.Add(fill.MarginHeld)
	}
}

// close reduces the position by closedQty units, realizing P&L against the
// volume-weighted entry, releasing proportional margin and emitting a
// trade record.
func (l *Ledger) close(pos *models.Position, instr models.Instrument, fill models.Fill, closedQty int) {
	if closedQty == 0 {
		return
	}
	mult := instr.ContractMultiplier()
	units := decimal.NewFromInt(int64(closedQty)).Mul(mult)

	long := pos.Quantity > 0

	var realized decimal.Decimal
	if instr.Class == models.AssetFuture {
		realized = fill.Price.Sub(pos.AvgPrice).Mul(units)
		if !long {
			realized = realized.Neg()
		}
		// Variation settles to cash; no notional changes hands.
		l.cash = l.cash.Add(realized)
	} else {
		// Realize against cost basis rather than the rounded average so
		// cash, basis and realized P&L always move in exact balance.
		flow := fill.Price.Mul(units)
		if !long {
			flow = flow.Neg()
		}
		consumed := pos.CostBasis
		if closedQty != abs(pos.Quantity) {
			consumed = pos.CostBasis.Mul(decimal.NewFromInt(int64(closedQty))).
				Div(decimal.NewFromInt(int64(abs(pos.Quantity))))
		}
		realized = flow.Sub(consumed)
		l.cash = l.cash.Add(flow)
		pos.CostBasis = pos.CostBasis.Sub(consumed)
	}

	if pos.MarginHeld.IsPositive() {
		release := pos.MarginHeld
		if closedQty != abs(pos.Quantity) {
			release = pos.MarginHeld.Mul(decimal.NewFromInt(int64(closedQty))).
				Div(decimal.NewFromInt(int64(abs(pos.Quantity))))
		}
		l.cash = l.cash.Add(release)
		l.marginHeld = l.marginHeld.Sub(release)
		pos.MarginHeld = pos.MarginHeld.Sub(release)
	}

	pos.RealizedPnL = pos.RealizedPnL.Add(realized)
	l.realizedPnL = l.realizedPnL.Add(realized)

	side := models.OrderSideBuy
	if !long {
		side = models.OrderSideSell
	}
	l.trades = append(l.trades, models.Trade{
		ID:           uuid.New().String(),
		InstrumentID: instr.ID,
		Side:         side,
		Quantity:     closedQty,
		EntryPrice:   pos.AvgPrice,
		ExitPrice:    fill.Price,
		RealizedPnL:  realized,
		Fees:         fill.Fee,
		OpenedAt:     pos.OpenedAt,
		ClosedAt:     fill.Timestamp,
		HoldDuration: fill.Timestamp.Sub(pos.OpenedAt),
	})

	if long {
		pos.Quantity -= closedQty
	} else {
		pos.Quantity += closedQty
	}
}

// Snapshot marks open positions to market, appends an equity point and
// returns the account state for pre-trade checks. Instruments with no
// quote in the map are carried at their entry price.
func (l *Ledger) Snapshot(at time.Time, quotes map[string]models.Quote) AccountSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	equity := l.cash.Add(l.marginHeld)
	positions := make(map[string]models.Position, len(l.positions))
	for id, pos := range l.positions {
		instr := l.instruments[id]
		price := pos.AvgPrice
		if q, ok := quotes[id]; ok && q.Last.IsPositive() {
			price = q.Last
		}
		equity = equity.Add(pos.MarketValue(instr.Class, price))
		positions[id] = *pos
	}

	l.curve = append(l.curve, models.EquityPoint{Timestamp: at, Equity: equity})

	return AccountSnapshot{
		Timestamp:  at,
		Cash:       l.cash,
		MarginHeld: l.marginHeld,
		Equity:     equity,
		Positions:  positions,
	}
}

// Reconcile verifies the conservation identity and returns an error
// describing the discrepancy when it does not hold.
func (l *Ledger) Reconcile() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	outlay := decimal.Zero
	for id, pos := range l.positions {
		instr := l.instruments[id]
		outlay = outlay.Add(pos.CashOutlay(instr.Class))
	}

	lhs := l.cash.Add(l.marginHeld).Add(outlay).Sub(l.realizedPnL).Add(l.feesPaid)
	if !lhs.Equal(l.initialCapital) {
		return fmt.Errorf("ledger out of balance: %s != initial capital %s", lhs, l.initialCapital)
	}
	return nil
}

// Cash returns free cash, outside committed margin.
func (l *Ledger) Cash() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// MarginHeld returns total committed margin.
func (l *Ledger) MarginHeld() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.marginHeld
}

// RealizedPnL returns cumulative realized profit and loss.
func (l *Ledger) RealizedPnL() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.realizedPnL
}

// FeesPaid returns cumulative fees.
func (l *Ledger) FeesPaid() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.feesPaid
}

// InitialCapital returns the starting cash.
func (l *Ledger) InitialCapital() decimal.Decimal {
	return l.initialCapital
}

// Position returns a copy of the open position for the instrument.
func (l *Ledger) Position(instrumentID string) (models.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[instrumentID]
	if !ok {
		return models.Position{}, false
	}
	return *pos, true
}

// Positions returns copies of all open positions.
func (l *Ledger) Positions() []models.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	return out
}

// Fills returns the ordered fill log.
func (l *Ledger) Fills() []models.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Fill, len(l.fills))
	copy(out, l.fills)
	return out
}

// Trades returns the ordered closed-trade log.
func (l *Ledger) Trades() []models.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// EquityCurve returns the recorded equity points in snapshot order.
func (l *Ledger) EquityCurve() []models.EquityPoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.EquityPoint, len(l.curve))
	copy(out, l.curve)
	return out
}

func sameSign(a, b int) bool {
	return (a > 0) == (b > 0)
}
