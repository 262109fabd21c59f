package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"paper-trader/internal/backtest"
	"paper-trader/pkg/utils"
)

func newSweepCmd(app *App) *cobra.Command {
	var (
		scenarioPath string
		workers      int
		fastRange    []int
		slowRange    []int
		periodRange  []int
		windowRange  []int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a scenario across a strategy parameter grid",
		Long: `Run the base scenario once per parameter combination on a worker
pool and rank the results by Sharpe ratio. Each run uses an isolated
ledger, so combinations never interfere.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			sc, err := backtest.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}

			variants := buildVariants(sc.Strategy, fastRange, slowRange, periodRange, windowRange)
			if len(variants) == 0 {
				return fmt.Errorf("no parameter combinations for strategy %s", sc.Strategy.Kind)
			}

			engine := backtest.NewEngine(app.Config, app.Logger)
			if sc.Data.Source == "historical" {
				provider, err := historicalFromStore(cmd, app, sc.Instrument.ID)
				if err != nil {
					return err
				}
				engine.SetHistorical(provider)
			}

			results := engine.Sweep(cmd.Context(), sc, variants, workers)

			if output.IsJSON() {
				return output.JSON(results)
			}
			renderSweep(output, results)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario YAML file (required)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (default: CPU count)")
	cmd.Flags().IntSliceVar(&fastRange, "fast", nil, "fast MA periods to sweep")
	cmd.Flags().IntSliceVar(&slowRange, "slow", nil, "slow MA periods to sweep")
	cmd.Flags().IntSliceVar(&periodRange, "period", nil, "RSI periods to sweep")
	cmd.Flags().IntSliceVar(&windowRange, "window", nil, "breakout windows to sweep")
	cmd.MarkFlagRequired("scenario")

	return cmd
}

// buildVariants expands flag ranges into concrete strategy specs for the
// scenario's strategy kind. With no ranges given, the base spec runs alone.
func buildVariants(base backtest.StrategySpec, fast, slow, period, window []int) []backtest.StrategySpec {
	var variants []backtest.StrategySpec

	switch base.Kind {
	case "ma_crossover":
		if len(fast) == 0 || len(slow) == 0 {
			return []backtest.StrategySpec{base}
		}
		for _, f := range fast {
			for _, s := range slow {
				if f >= s {
					continue
				}
				variants = append(variants, backtest.StrategySpec{
					Kind:   base.Kind,
					Params: map[string]int{"fast": f, "slow": s},
				})
			}
		}
	case "rsi":
		if len(period) == 0 {
			return []backtest.StrategySpec{base}
		}
		for _, p := range period {
			variants = append(variants, backtest.StrategySpec{
				Kind:   base.Kind,
				Params: map[string]int{"period": p},
			})
		}
	case "breakout":
		if len(window) == 0 {
			return []backtest.StrategySpec{base}
		}
		for _, w := range window {
			variants = append(variants, backtest.StrategySpec{
				Kind:   base.Kind,
				Params: map[string]int{"window": w},
			})
		}
	}
	return variants
}

func renderSweep(output *Output, results []backtest.SweepResult) {
	output.Bold("%-24s %10s %10s %8s %8s", "STRATEGY", "RETURN", "SHARPE", "MAXDD", "TRADES")
	for _, r := range results {
		if r.Err != nil {
			output.Error("%-24s failed: %v", r.Strategy.Kind, r.Err)
			continue
		}
		rep := r.Result.Report
		output.Printf("%-24s %10s %10s %8s %8d\n",
			r.Result.Strategy,
			utils.FormatPercent(rep.TotalReturn),
			utils.FormatRatio(rep.SharpeRatio),
			utils.FormatPercent(-rep.MaxDrawdown),
			rep.Trades.Total)
	}
}
