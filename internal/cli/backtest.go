package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"paper-trader/internal/backtest"
	"paper-trader/internal/marketdata"
	"paper-trader/internal/store"
	"paper-trader/pkg/utils"
)

func newBacktestCmd(app *App) *cobra.Command {
	var (
		scenarioPath string
		save         bool
		tradesCSV    string
		equityCSV    string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a scenario through the execution simulator",
		Long: `Run a single backtest scenario. The scenario YAML defines the
instrument, the price source (historical or seeded simulation), the
signal strategy and order sizing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			sc, err := backtest.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}

			engine := backtest.NewEngine(app.Config, app.Logger)
			if sc.Data.Source == "historical" {
				provider, err := historicalFromStore(cmd, app, sc.Instrument.ID)
				if err != nil {
					return err
				}
				engine.SetHistorical(provider)
			}

			result, err := engine.Run(cmd.Context(), sc)
			if err != nil {
				return fmt.Errorf("running backtest: %w", err)
			}

			if save && app.Store != nil {
				if err := app.Store.SaveResult(cmd.Context(), result); err != nil {
					output.Warning("Failed to persist run: %v", err)
				} else {
					output.Dim("Saved run %s", result.RunID)
				}
			}
			if tradesCSV != "" {
				if err := store.ExportTradesCSV(tradesCSV, result.Trades); err != nil {
					return err
				}
				output.Dim("Wrote %s", tradesCSV)
			}
			if equityCSV != "" {
				if err := store.ExportEquityCSV(equityCSV, result.EquityCurve); err != nil {
					return err
				}
				output.Dim("Wrote %s", equityCSV)
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			renderResult(output, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario YAML file (required)")
	cmd.Flags().BoolVar(&save, "save", false, "persist the run to the session store")
	cmd.Flags().StringVar(&tradesCSV, "trades-csv", "", "export the trade log to a CSV file")
	cmd.Flags().StringVar(&equityCSV, "equity-csv", "", "export the equity curve to a CSV file")
	cmd.MarkFlagRequired("scenario")

	return cmd
}

func historicalFromStore(cmd *cobra.Command, app *App, instrumentID string) (*marketdata.HistoricalProvider, error) {
	if app.Store == nil {
		return nil, fmt.Errorf("historical scenarios need the session store for candle data")
	}
	candles, err := app.Store.LoadCandles(cmd.Context(), instrumentID)
	if err != nil {
		return nil, fmt.Errorf("loading candles: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no cached candles for %s", instrumentID)
	}
	provider := marketdata.NewHistoricalProvider(app.Config.QuoteStaleTolerance())
	provider.Load(instrumentID, candles)
	return provider, nil
}

func renderResult(output *Output, result *backtest.Result) {
	r := result.Report

	output.Bold("Backtest %s (%s)", result.Scenario, result.Strategy)
	output.Printf("Run ID:        %s\n", result.RunID)
	output.Printf("Period:        %s to %s (%d periods)\n",
		r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"), r.Periods)
	output.Printf("Equity:        %.2f -> %.2f\n", r.InitialEquity, r.FinalEquity)

	ret := utils.FormatPercent(r.TotalReturn)
	if r.TotalReturn >= 0 {
		output.Printf("Total return:  %s\n", output.Green(ret))
	} else {
		output.Printf("Total return:  %s\n", output.Red(ret))
	}

	output.Printf("Annual return: %s\n", formatPercentPtr(r.AnnualReturn))
	output.Printf("Volatility:    %s\n", formatPercentPtr(r.Volatility))
	output.Printf("Sharpe:        %s\n", utils.FormatRatio(r.SharpeRatio))
	output.Printf("Sortino:       %s\n", utils.FormatRatio(r.SortinoRatio))
	output.Printf("Max drawdown:  %s\n", utils.FormatPercent(-r.MaxDrawdown))
	if r.ValueAtRisk != nil {
		output.Printf("VaR (%.0f%%):     %s per period\n", r.VaRConfidence*100, utils.FormatPercent(-*r.ValueAtRisk))
	}

	t := r.Trades
	output.Bold("Trades")
	output.Printf("  total %d, winners %d, losers %d, win rate %.1f%%\n",
		t.Total, t.Winners, t.Losers, t.WinRate*100)
	output.Printf("  net P&L %.2f, fees %.2f, profit factor %s, max consecutive losses %d\n",
		t.NetPnL, t.TotalFees, utils.FormatRatio(t.ProfitFactor), t.MaxConsecutive)
	if result.Rejections > 0 {
		output.Warning("%d orders rejected", result.Rejections)
	}
}

func formatPercentPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return utils.FormatPercent(*v)
}
