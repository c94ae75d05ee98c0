// Package cli provides the command-line interface for the trading
// assistant.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"options-trader/internal/config"
	"options-trader/internal/logging"
	"options-trader/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Journal *store.Store

	// ExitCode is set by session commands so main can report how the
	// session ended.
	ExitCode int
}

// NewRootCmd creates the root command for the CLI. The returned App
// carries the exit code set by session commands.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) (*cobra.Command, *App) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dbPath := config.DefaultConfigDir() + "/journal.db"
	journal, err := store.New(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to open journal, sessions will not be recorded")
	} else {
		app.Journal = journal
	}

	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Semi-automated options trading assistant",
		Long: `A semi-automated trading assistant for US equity options.

It waits for a price level to break, scores the out-of-the-money chain,
asks you to pick a contract, then works the position to take-profit or
stop-loss with midpoint-pegged limit orders.

Use 'trader help <command>' for more information about a command.`,
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

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/options-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newTradeCmd(app))
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newJournalCmd(app))

	return rootCmd, app
}

// Execute loads configuration, builds the CLI, and runs it. It returns
// the process exit code: command errors map to 1, session commands
// report how the session ended.
func Execute() int {
	configDir := configDirFromArgs(os.Args[1:])

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		Dir:        cfg.Logging.Dir,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})

	rootCmd, app := NewRootCmd(cfg, logger)
	if app.Journal != nil {
		defer app.Journal.Close()
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if app.ExitCode != 0 {
			return app.ExitCode
		}
		return 1
	}
	return app.ExitCode
}

// configDirFromArgs extracts the --config flag before cobra parses it,
// since the config file has to be loaded to build the commands.
func configDirFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
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
				output.Printf("Options Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			output.Info("Trading")
			output.Printf("  mode:               %s\n", app.Config.Trading.Mode)
			output.Printf("  poll_interval:      %s\n", app.Config.Trading.PollInterval)
			output.Printf("  order_settle:       %s\n", app.Config.Trading.OrderSettle)
			output.Printf("  quote_settle:       %s\n", app.Config.Trading.QuoteSettle)
			output.Printf("  max_entry_attempts: %d\n", app.Config.Trading.MaxEntryAttempts)
			output.Printf("  max_exit_attempts:  %d\n", app.Config.Trading.MaxExitAttempts)
			output.Info("Gateway")
			output.Printf("  base_url:   %s\n", app.Config.Gateway.BaseURL)
			output.Printf("  account_id: %s\n", app.Config.Gateway.AccountID)
			if app.Config.Gateway.APIKey != "" {
				output.Printf("  api_key:    %s\n", "********")
			} else {
				output.Printf("  api_key:    %s\n", "(not set)")
			}
			output.Info("Chain")
			output.Printf("  strike_window_percent: %.1f\n", app.Config.Chain.StrikeWindowPercent)
			output.Printf("  max_strikes:           %d\n", app.Config.Chain.MaxStrikes)
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

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}
