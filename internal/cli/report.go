package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"paper-trader/internal/store"
	"paper-trader/pkg/utils"
)

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect persisted runs",
	}

	cmd.AddCommand(newReportListCmd(app))
	cmd.AddCommand(newReportShowCmd(app))
	cmd.AddCommand(newReportTradesCmd(app))

	return cmd
}

func newReportListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("session store unavailable")
			}
			output := NewOutput(cmd)

			runs, err := app.Store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(runs)
			}

			if len(runs) == 0 {
				output.Dim("No persisted runs")
				return nil
			}
			output.Bold("%-36s %-16s %-20s %12s %10s %7s", "RUN", "SCENARIO", "STRATEGY", "EQUITY", "RETURN", "TRADES")
			for _, r := range runs {
				output.Printf("%-36s %-16s %-20s %12.2f %10s %7d\n",
					r.RunID, r.Scenario, r.Strategy, r.FinalEquity,
					utils.FormatPercent(r.TotalReturn), r.TradeCount)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")
	return cmd
}

func newReportShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the performance report of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("session store unavailable")
			}
			output := NewOutput(cmd)

			report, err := app.Store.GetReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(report)
			}

			output.Bold("Run %s", args[0])
			output.Printf("Period:        %s to %s (%d periods)\n",
				report.Start.Format("2006-01-02"), report.End.Format("2006-01-02"), report.Periods)
			output.Printf("Equity:        %.2f -> %.2f\n", report.InitialEquity, report.FinalEquity)
			output.Printf("Total return:  %s\n", utils.FormatPercent(report.TotalReturn))
			output.Printf("Annual return: %s\n", formatPercentPtr(report.AnnualReturn))
			output.Printf("Volatility:    %s\n", formatPercentPtr(report.Volatility))
			output.Printf("Sharpe:        %s\n", utils.FormatRatio(report.SharpeRatio))
			output.Printf("Sortino:       %s\n", utils.FormatRatio(report.SortinoRatio))
			output.Printf("Max drawdown:  %s\n", utils.FormatPercent(-report.MaxDrawdown))
			output.Printf("Win rate:      %.1f%% over %d trades\n",
				report.Trades.WinRate*100, report.Trades.Total)
			return nil
		},
	}
}

func newReportTradesCmd(app *App) *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "trades <run-id>",
		Short: "Show the closed trades of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("session store unavailable")
			}
			output := NewOutput(cmd)

			trades, err := app.Store.GetTrades(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if csvPath != "" {
				if err := store.ExportTradesCSV(csvPath, trades); err != nil {
					return err
				}
				output.Dim("Wrote %s", csvPath)
			}
			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Dim("No trades recorded")
				return nil
			}
			output.Bold("%-12s %-5s %7s %12s %12s %12s %8s", "INSTRUMENT", "SIDE", "QTY", "ENTRY", "EXIT", "PNL", "HELD")
			for _, t := range trades {
				pnl := utils.FormatPnL(t.RealizedPnL)
				if t.RealizedPnL.IsPositive() {
					pnl = output.Green(pnl)
				} else if t.RealizedPnL.IsNegative() {
					pnl = output.Red(pnl)
				}
				output.Printf("%-12s %-5s %7d %12s %12s %12s %8s\n",
					t.InstrumentID, t.Side, t.Quantity,
					utils.FormatMoney(t.EntryPrice), utils.FormatMoney(t.ExitPrice),
					pnl, utils.FormatDuration(t.HoldDuration))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "export trades to a CSV file")
	return cmd
}
