package trading

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paper-trader/internal/config"
	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/logging"
	"paper-trader/internal/models"
)

// AccountSnapshot is a point-in-time read of the ledger used for pre-trade
// checks. The simulator never mutates it.
type AccountSnapshot struct {
	Timestamp  time.Time
	Cash       decimal.Decimal
	MarginHeld decimal.Decimal
	Equity     decimal.Decimal
	Positions  map[string]models.Position
}

// Simulator fills orders against quotes with slippage and fees, rejecting
// anything that fails validation, staleness, capital or risk checks. A
// returned error always means no fill: there are no partial silent fills.
type Simulator struct {
	execCfg     config.ExecutionConfig
	riskCfg     config.RiskConfig
	calc        *Calculator
	tolerance   time.Duration
	instruments map[string]models.Instrument
	logger      zerolog.Logger
}

// NewSimulator creates an execution simulator.
func NewSimulator(cfg *config.Config, calc *Calculator, logger zerolog.Logger) *Simulator {
	return &Simulator{
		execCfg:     cfg.Execution,
		riskCfg:     cfg.Risk,
		calc:        calc,
		tolerance:   cfg.QuoteStaleTolerance(),
		instruments: make(map[string]models.Instrument),
		logger:      logger,
	}
}

// Register adds an instrument to the tradeable universe.
func (s *Simulator) Register(instr models.Instrument) {
	s.instruments[instr.ID] = instr
}

// Instrument looks up a registered instrument.
func (s *Simulator) Instrument(id string) (models.Instrument, bool) {
	instr, ok := s.instruments[id]
	return instr, ok
}

// Execute attempts to fill the order against the quote, checking capital
// and risk limits against the snapshot. Spot is the underlying price used
// for option margin; pass the quote price itself for non-options.
func (s *Simulator) Execute(order models.Order, quote models.Quote, spot decimal.Decimal, snap AccountSnapshot) (models.Fill, error) {
	instr, err := s.validate(order, quote)
	if err != nil {
		return models.Fill{}, err
	}

	price, slippage, err := s.fillPrice(order, quote)
	if err != nil {
		return models.Fill{}, err
	}

	fill := models.Fill{
		OrderID:      order.ID,
		InstrumentID: order.InstrumentID,
		Side:         order.Side,
		Quantity:     order.Quantity,
		Price:        price,
		Slippage:     slippage,
		Timestamp:    order.PlacedAt,
	}
	fill.Fee = decimal.NewFromFloat(s.execCfg.FeeFlat).
		Add(fill.Notional(instr).Mul(decimal.NewFromFloat(s.execCfg.FeeBps)).Div(decimal.NewFromInt(10000)))

	openingQty := s.openingQuantity(order, snap)
	if openingQty > 0 {
		if err := s.checkCapital(instr, order, openingQty, price, spot, fill.Fee, snap); err != nil {
			return models.Fill{}, err
		}
		if err := s.checkLimits(instr, order, price, snap); err != nil {
			return models.Fill{}, err
		}
		fill.MarginHeld = s.calc.Required(instr, order.Side, openingQty, price, spot)
	}

	return fill, nil
}

func (s *Simulator) validate(order models.Order, quote models.Quote) (models.Instrument, error) {
	if order.Quantity <= 0 {
		return models.Instrument{}, apperrors.NewValidationError("quantity", order.Quantity, "must be positive")
	}
	if order.Side != models.OrderSideBuy && order.Side != models.OrderSideSell {
		return models.Instrument{}, apperrors.NewValidationError("side", order.Side, "must be BUY or SELL")
	}
	if order.Type != models.OrderTypeMarket && order.Type != models.OrderTypeLimit {
		return models.Instrument{}, apperrors.NewValidationError("type", order.Type, "must be MARKET or LIMIT")
	}
	if order.Type == models.OrderTypeLimit && !order.LimitPrice.IsPositive() {
		return models.Instrument{}, apperrors.NewValidationError("limit_price", order.LimitPrice, "must be positive for LIMIT orders")
	}

	instr, ok := s.instruments[order.InstrumentID]
	if !ok {
		return models.Instrument{}, apperrors.Wrapf(apperrors.ErrUnknownInstrument, "instrument %s", order.InstrumentID)
	}
	if quote.InstrumentID != order.InstrumentID {
		return models.Instrument{}, apperrors.NewValidationError("quote", quote.InstrumentID, "quote is for a different instrument")
	}
	if !quote.Last.IsPositive() {
		return models.Instrument{}, apperrors.NewDataGapError(order.InstrumentID, order.PlacedAt, 0, s.tolerance, apperrors.ErrQuoteMissing)
	}

	if age := order.PlacedAt.Sub(quote.Timestamp); age > s.tolerance {
		return models.Instrument{}, apperrors.NewDataGapError(order.InstrumentID, order.PlacedAt, age, s.tolerance, apperrors.ErrStaleQuote)
	}

	return instr, nil
}

// fillPrice determines the execution price. Market orders pay slippage on
// the reference price; marketable limit orders fill at the book side and
// pay none.
func (s *Simulator) fillPrice(order models.Order, quote models.Quote) (price, slippage decimal.Decimal, err error) {
	if order.Type == models.OrderTypeLimit {
		side := quote.Last
		if order.Side == models.OrderSideBuy {
			if quote.Ask.IsPositive() {
				side = quote.Ask
			}
			if order.LimitPrice.LessThan(side) {
				return decimal.Zero, decimal.Zero, apperrors.Wrapf(apperrors.ErrLimitNotMarketable,
					"buy limit %s below offer %s", order.LimitPrice, side)
			}
		} else {
			if quote.Bid.IsPositive() {
				side = quote.Bid
			}
			if order.LimitPrice.GreaterThan(side) {
				return decimal.Zero, decimal.Zero, apperrors.Wrapf(apperrors.ErrLimitNotMarketable,
					"sell limit %s above bid %s", order.LimitPrice, side)
			}
		}
		return side, decimal.Zero, nil
	}

	slippage = s.slippagePerUnit(order, quote)
	if order.Side == models.OrderSideBuy {
		return quote.Last.Add(slippage), slippage, nil
	}
	return quote.Last.Sub(slippage), slippage, nil
}

func (s *Simulator) slippagePerUnit(order models.Order, quote models.Quote) decimal.Decimal {
	bps := decimal.NewFromFloat(s.execCfg.SlippageBps)
	base := quote.Last.Mul(bps).Div(decimal.NewFromInt(10000))

	if s.execCfg.SlippageModel == "volume" && quote.Volume > 0 {
		// Larger orders relative to quoted volume pay proportionally more.
		participation := decimal.NewFromInt(int64(order.Quantity)).Div(decimal.NewFromInt(quote.Volume))
		scale := decimal.NewFromInt(1).Add(participation.Mul(decimal.NewFromFloat(s.execCfg.VolumeFactor)))
		return base.Mul(scale)
	}
	return base
}

// openingQuantity returns how many units of the order extend exposure
// rather than reduce an existing opposite position.
func (s *Simulator) openingQuantity(order models.Order, snap AccountSnapshot) int {
	pos, ok := snap.Positions[order.InstrumentID]
	if !ok || pos.Quantity == 0 {
		return order.Quantity
	}

	sign := 1
	if order.Side == models.OrderSideSell {
		sign = -1
	}
	if (pos.Quantity > 0) == (sign > 0) {
		return order.Quantity
	}

	closing := min(order.Quantity, abs(pos.Quantity))
	return order.Quantity - closing
}

func (s *Simulator) checkCapital(instr models.Instrument, order models.Order, openingQty int, price, spot, fee decimal.Decimal, snap AccountSnapshot) error {
	required := s.calc.CapitalRequired(instr, order.Side, openingQty, price, spot).Add(fee)
	if required.LessThanOrEqual(snap.Cash) {
		return nil
	}

	sentinel := apperrors.ErrInsufficientCapital
	if instr.IsDerivative() && !(instr.Class == models.AssetOption && order.Side == models.OrderSideBuy) {
		sentinel = apperrors.ErrMarginShortfall
		logging.LogMarginCall(s.logger, required.InexactFloat64(), snap.Cash.InexactFloat64())
	}
	return apperrors.NewMarginError(instr.ID, required.InexactFloat64(), snap.Cash.InexactFloat64(), sentinel)
}

func (s *Simulator) checkLimits(instr models.Instrument, order models.Order, price decimal.Decimal, snap AccountSnapshot) error {
	if s.riskCfg.MaxConcurrentPositions > 0 {
		if _, held := snap.Positions[order.InstrumentID]; !held {
			open := 0
			for _, p := range snap.Positions {
				if p.Quantity != 0 {
					open++
				}
			}
			if open >= s.riskCfg.MaxConcurrentPositions {
				return apperrors.NewRiskError("max_concurrent_positions",
					float64(open), float64(s.riskCfg.MaxConcurrentPositions), apperrors.ErrPositionLimit)
			}
		}
	}

	if s.riskCfg.MaxPositionPercent > 0 && snap.Equity.IsPositive() {
		existing := 0
		if p, ok := snap.Positions[order.InstrumentID]; ok {
			existing = p.Quantity
		}
		delta := order.Quantity
		if order.Side == models.OrderSideSell {
			delta = -order.Quantity
		}
		// Concentration is judged on the net post-trade quantity, so an
		// order that flips direction only counts its surviving exposure.
		units := decimal.NewFromInt(int64(abs(existing + delta))).Mul(instr.ContractMultiplier())
		exposure := price.Mul(units)
		pct := exposure.Div(snap.Equity).Mul(hundred)
		limit := decimal.NewFromFloat(s.riskCfg.MaxPositionPercent)
		if pct.GreaterThan(limit) {
			return apperrors.NewRiskError("max_position_percent",
				pct.InexactFloat64(), s.riskCfg.MaxPositionPercent, apperrors.ErrConcentrationLimit)
		}
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
