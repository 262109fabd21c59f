package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paper-trader/internal/config"
	apperrors "paper-trader/internal/errors"
	"paper-trader/internal/logging"
	"paper-trader/internal/marketdata"
	"paper-trader/internal/models"
	"paper-trader/internal/performance"
	"paper-trader/internal/strategy"
	"paper-trader/internal/trading"
)

// Engine replays a scenario bar by bar through the simulation core. Each
// run gets its own ledger, so runs are independent and a fixed scenario
// with a fixed seed always reproduces the same result.
type Engine struct {
	cfg        *config.Config
	logger     zerolog.Logger
	historical *marketdata.HistoricalProvider
}

// Result is the complete output of one run.
type Result struct {
	RunID       string
	Scenario    string
	Strategy    string
	StartedAt   time.Time
	Report      *models.PerformanceReport
	Trades      []models.Trade
	Fills       []models.Fill
	EquityCurve []models.EquityPoint
	Rejections  int
}

// NewEngine creates a backtest engine.
func NewEngine(cfg *config.Config, logger zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// SetHistorical attaches the candle source used by historical scenarios.
func (e *Engine) SetHistorical(p *marketdata.HistoricalProvider) {
	e.historical = p
}

// Run executes the scenario and returns the analyzed result. Order
// rejections are logged and counted, not fatal; any other failure aborts
// the run.
func (e *Engine) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	instr, err := buildInstrument(sc.Instrument)
	if err != nil {
		return nil, err
	}

	candles, err := e.candles(sc, instr)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrSeriesExhausted, "no candles for %s", instr.ID)
	}

	src, err := buildSource(sc.Strategy)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := logging.WithRunID(e.logger, runID)

	ledger := trading.NewLedger(decimal.NewFromFloat(e.cfg.Account.InitialCapital))
	calc := trading.NewCalculator(e.cfg.Margin)
	sim := trading.NewSimulator(e.cfg, calc, logger)
	sim.Register(instr)

	result := &Result{
		RunID:     runID,
		Scenario:  sc.Name,
		Strategy:  src.Name(),
		StartedAt: time.Now(),
	}

	for i := range candles {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		candle := candles[i]
		quote := models.Quote{
			InstrumentID: instr.ID,
			Timestamp:    candle.Timestamp,
			Last:         candle.Close,
			Volume:       candle.Volume,
		}

		snap := ledger.Snapshot(candle.Timestamp, map[string]models.Quote{instr.ID: quote})

		signal := src.Next(candles, i)
		if signal.Action == models.SignalHold {
			continue
		}
		logging.LogSignal(logger, instr.Symbol, string(signal.Action), signal.Reason)

		order := models.Order{
			ID:           uuid.New().String(),
			InstrumentID: instr.ID,
			Side:         models.OrderSide(signal.Action),
			Type:         models.OrderTypeMarket,
			Quantity:     sc.Sizing.Quantity,
			PlacedAt:     candle.Timestamp,
			Tag:          signal.Reason,
		}

		fill, err := sim.Execute(order, quote, quote.Last, snap)
		if err != nil {
			if apperrors.IsRejection(err) {
				result.Rejections++
				logging.LogRejection(logger, order.ID, instr.Symbol, err)
				continue
			}
			return nil, fmt.Errorf("executing order %s: %w", order.ID, err)
		}

		if err := ledger.Apply(fill, instr); err != nil {
			return nil, fmt.Errorf("applying fill for order %s: %w", order.ID, err)
		}
		logging.LogFill(logger, order.ID, instr.Symbol, string(order.Side),
			fill.Quantity, fill.Price.InexactFloat64(), fill.Fee.InexactFloat64())
	}

	// Final mark at the last bar.
	last := candles[len(candles)-1]
	ledger.Snapshot(last.Timestamp.Add(sc.Data.IntervalDuration()), map[string]models.Quote{
		instr.ID: {InstrumentID: instr.ID, Timestamp: last.Timestamp, Last: last.Close, Volume: last.Volume},
	})

	if err := ledger.Reconcile(); err != nil {
		return nil, err
	}

	analyzer := performance.NewAnalyzer(e.cfg.Performance)
	result.Trades = ledger.Trades()
	result.Fills = ledger.Fills()
	result.EquityCurve = ledger.EquityCurve()
	result.Report = analyzer.Analyze(result.EquityCurve, result.Trades)

	return result, nil
}

func (e *Engine) candles(sc *Scenario, instr models.Instrument) ([]models.Candle, error) {
	switch sc.Data.Source {
	case "historical":
		if e.historical == nil {
			return nil, apperrors.Wrap(apperrors.ErrQuoteMissing, "no historical provider attached")
		}
		return e.historical.Series(instr.ID), nil
	case "simulated":
		return e.simulatedCandles(sc, instr)
	}
	return nil, apperrors.NewValidationError("data.source", sc.Data.Source, "unknown source")
}

// simulatedCandles draws a full series from the seeded walk up front so
// the strategy and the fills see the same path.
func (e *Engine) simulatedCandles(sc *Scenario, instr models.Instrument) ([]models.Candle, error) {
	drift := sc.Data.Drift
	vol := sc.Data.Vol
	if vol == 0 {
		vol = 0.2
	}
	iv := sc.Data.DefaultIV
	if iv == 0 {
		iv = 0.2
	}

	provider := marketdata.NewSimulatedProvider(sc.Data.Seed, e.cfg.Performance.RiskFreeRate, drift, vol, iv)
	provider.Register(instr, decimal.NewFromFloat(sc.Data.StartSpot))

	start := sc.Data.StartTime()
	interval := sc.Data.IntervalDuration()

	candles := make([]models.Candle, 0, sc.Data.Bars)
	for i := 0; i < sc.Data.Bars; i++ {
		at := start.Add(time.Duration(i) * interval)
		quote, err := provider.Quote(instr.ID, at)
		if err != nil {
			return nil, err
		}
		candles = append(candles, models.Candle{
			Timestamp: at,
			Open:      quote.Last,
			High:      quote.Last,
			Low:       quote.Last,
			Close:     quote.Last,
			Volume:    quote.Volume,
		})
	}
	return candles, nil
}

func buildInstrument(spec InstrumentSpec) (models.Instrument, error) {
	class := models.AssetClass(spec.Class)
	switch class {
	case models.AssetEquity, models.AssetIndex, models.AssetFuture, models.AssetOption:
	case "":
		class = models.AssetEquity
	default:
		return models.Instrument{}, apperrors.NewValidationError("instrument.class", spec.Class, "unknown asset class")
	}

	instr := models.Instrument{
		ID:         spec.ID,
		Symbol:     spec.Symbol,
		Class:      class,
		Multiplier: spec.Multiplier,
	}
	if instr.Symbol == "" {
		instr.Symbol = spec.ID
	}

	if class == models.AssetOption {
		if spec.Strike <= 0 {
			return models.Instrument{}, apperrors.NewValidationError("instrument.strike", spec.Strike, "required for options")
		}
		instr.Strike = decimal.NewFromFloat(spec.Strike)
		switch models.OptionRight(spec.Right) {
		case models.RightCall, models.RightPut:
			instr.Right = models.OptionRight(spec.Right)
		default:
			return models.Instrument{}, apperrors.NewValidationError("instrument.right", spec.Right, "must be CALL or PUT")
		}
	}
	if class == models.AssetOption || class == models.AssetFuture {
		expiry, err := time.Parse(time.RFC3339, spec.Expiry)
		if err != nil {
			return models.Instrument{}, apperrors.NewValidationError("instrument.expiry", spec.Expiry, "invalid RFC3339 time")
		}
		instr.Expiry = expiry
	}
	return instr, nil
}

func buildSource(spec StrategySpec) (strategy.Source, error) {
	p := func(key string, def int) int {
		if v, ok := spec.Params[key]; ok && v > 0 {
			return v
		}
		return def
	}

	switch spec.Kind {
	case "ma_crossover":
		fast := p("fast", 10)
		slow := p("slow", 30)
		if fast >= slow {
			return nil, apperrors.NewValidationError("strategy.params", spec.Params, "fast must be shorter than slow")
		}
		return strategy.NewMACrossover(fast, slow), nil
	case "rsi":
		src := strategy.NewRSI(p("period", 14))
		if v, ok := spec.Params["oversold"]; ok {
			src.Oversold = float64(v)
		}
		if v, ok := spec.Params["overbought"]; ok {
			src.Overbought = float64(v)
		}
		return src, nil
	case "breakout":
		return strategy.NewBreakout(p("window", 20)), nil
	}
	return nil, apperrors.NewValidationError("strategy.kind", spec.Kind, "unknown strategy")
}
