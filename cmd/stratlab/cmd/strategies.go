package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratlab/strategies"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the built-in strategies and their parameters",
	RunE:  runStrategies,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategies(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, d := range strategies.Default.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Name, d.Description)
		for _, p := range d.Params {
			fmt.Fprintf(w, "\t  %s = %g\t%s\n", p.Name, p.Default, p.Description)
		}
	}
	return w.Flush()
}
