package cli

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"paper-trader/internal/config"
	"paper-trader/internal/logging"
	"paper-trader/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dataStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, runs will not be persisted")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Store.Path).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "paper-trader",
		Short: "Trading-signal execution simulator",
		Long: `Paper Trader replays trading signals against historical or simulated
price data through a margin-aware execution simulator, and reports
performance statistics over the resulting equity curve and trade log.

Use 'paper-trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/paper-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newSweepCmd(app))
	rootCmd.AddCommand(newReportCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Paper Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			output.Bold("Account")
			output.Printf("  initial capital: %.2f %s\n", app.Config.Account.InitialCapital, app.Config.Account.Currency)
			output.Bold("Execution")
			output.Printf("  slippage: %s %.1f bps, fees: %.2f + %.1f bps, staleness: %s\n",
				app.Config.Execution.SlippageModel, app.Config.Execution.SlippageBps,
				app.Config.Execution.FeeFlat, app.Config.Execution.FeeBps,
				app.Config.Execution.QuoteStaleToler)
			output.Bold("Margin")
			output.Printf("  futures: %.1f%%, short option: %.1f%% (floor %.1f%%), offset: %.2f\n",
				app.Config.Margin.FuturesPercent, app.Config.Margin.ShortOptionPercent,
				app.Config.Margin.ShortOptionFloor, app.Config.Margin.OffsetFactor)
			output.Bold("Performance")
			output.Printf("  risk-free: %.2f%%, periods/year: %d, VaR confidence: %.2f\n",
				app.Config.Performance.RiskFreeRate*100, app.Config.Performance.PeriodsPerYear,
				app.Config.Performance.VaRConfidence)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	return cmd
}

// Execute sets up configuration and logging, then runs the root command.
// The --config flag is scanned before cobra parses flags because the
// config must exist before commands are wired up.
func Execute() error {
	configDir := ""
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configDir = os.Args[i+1]
		} else if strings.HasPrefix(arg, "--config=") {
			configDir = strings.TrimPrefix(arg, "--config=")
		}
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Console = false // keep stdout clean for command output
	logger := logging.NewLoggerWithConfig(logCfg)

	return NewRootCmd(cfg, logger).Execute()
}
