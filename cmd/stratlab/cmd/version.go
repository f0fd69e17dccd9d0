package cmd

import (
	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print the version number",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		printf(cmd, "stratlab version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
