package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratlab/config"
	"github.com/rustyeddy/stratlab/logger"
)

var rootCmd = &cobra.Command{
	Use:   "stratlab",
	Short: "Backtest stock trading strategies on adjusted daily prices",
	Long: `Stratlab backtests trading strategies against split and dividend
adjusted daily price history.

It provides tools for:
  - Fetching and caching daily history from Alpaca or Alpha Vantage
  - Running built-in strategies over a date range
  - Keeping, renaming and purging backtest sessions per user
  - Grid-search optimization of strategy parameters
  - Serving all of the above over HTTP`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfgPath  string
	dbPath   string
	logLevel string
	owner    string

	cfg *config.Config
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&owner, "user", "u", defaultOwner(), "session owner")
}

func defaultOwner() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Storage.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger.Init("stratlab", cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

func printf(cmd *cobra.Command, format string, a ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, a...)
}
