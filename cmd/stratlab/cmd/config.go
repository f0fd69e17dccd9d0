package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratlab/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage stratlab configuration files.

Examples:
  stratlab config init -o stratlab.yaml
  stratlab config validate -f stratlab.yaml`,
	// Neither subcommand needs a loaded config.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "stratlab.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.Default().SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	printf(cmd, "Created default configuration: %s\n", configInitOutput)
	printf(cmd, "Set JWT_SECRET and vendor credentials in the environment or .env, then run:\n")
	printf(cmd, "  stratlab serve -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	printf(cmd, "Configuration valid: %s\n", configValidatePath)
	printf(cmd, "  Listen:   %s\n", c.Server.Addr)
	printf(cmd, "  Database: %s\n", c.Storage.DBPath)
	printf(cmd, "  Vendor:   %s\n", c.Data.Vendor)
	printf(cmd, "  Backtest: cash %.2f, commission %.4f, min trades %d\n",
		c.Backtest.Cash, c.Backtest.Commission, c.Backtest.MinTrades)
	return nil
}
