package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratlab/backtest"
	"github.com/rustyeddy/stratlab/journal"
	"github.com/rustyeddy/stratlab/pricing"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "List, keep and remove stored backtest sessions",
	Long: `Manage the sessions stored for --user.

Examples:
  stratlab sessions list
  stratlab sessions show alice_sma-cross
  stratlab sessions save alice_sma-cross aapl-golden-cross
  stratlab sessions export aapl-golden-cross -o aapl.org
  stratlab sessions purge`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a session with its statistics and trades",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsSaveCmd = &cobra.Command{
	Use:   "save NAME NEW_NAME",
	Short: "Rename a session and mark it permanent",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionsSave,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every ephemeral session",
	Args:  cobra.NoArgs,
	RunE:  runSessionsPurge,
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export NAME",
	Short: "Export a session as an org-mode document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsExport,
}

var (
	exportOutput string
)

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsSaveCmd,
		sessionsDeleteCmd, sessionsPurgeCmd, sessionsExportCmd)

	sessionsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.svc.List(commandContext(cmd), owner)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTRATEGY\tTICKER\tSTART\tEND\tKEPT\tEQUITY")
	for _, s := range list {
		equity := "-"
		if s.Stats != nil {
			equity = fmt.Sprintf("%.2f", s.Stats.EquityFinal)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n", s.Name, s.StrategyID, s.Ticker,
			pricing.FormatDate(s.Start), pricing.FormatDate(s.End), s.Permanent, equity)
	}
	return w.Flush()
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.svc.Load(commandContext(cmd), owner, args[0])
	if err != nil {
		return err
	}
	printf(cmd, "Session:    %s (permanent: %t)\n", s.Name, s.Permanent)
	printf(cmd, "Run:        %s\n", s.State.RunID)
	printf(cmd, "Frequency:  %d\n", s.Frequency)
	printf(cmd, "Commission: %.4f\n", s.Commission)
	for _, k := range sortedKeys(s.State.Params) {
		printf(cmd, "  %-16s %g\n", k, s.State.Params[k])
	}
	if len(s.OptValues) > 0 {
		printf(cmd, "Optimized:\n")
		for _, k := range sortedKeys(s.OptValues) {
			printf(cmd, "  %-16s %g\n", k, s.OptValues[k])
		}
	}
	if s.Stats != nil {
		backtest.PrintResult(cmd.OutOrStdout(), s.Ticker, &backtest.Result{Stats: *s.Stats, Trades: s.Trades})
	}
	return nil
}

func runSessionsSave(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.Save(commandContext(cmd), owner, args[0], args[1]); err != nil {
		return err
	}
	printf(cmd, "Saved %q as %q\n", args[0], args[1])
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.Delete(commandContext(cmd), owner, args[0]); err != nil {
		return err
	}
	printf(cmd, "Deleted %q\n", args[0])
	return nil
}

func runSessionsPurge(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.svc.Purge(commandContext(cmd), owner)
	if err != nil {
		return err
	}
	printf(cmd, "Purged %d ephemeral session(s)\n", n)
	return nil
}

func runSessionsExport(cmd *cobra.Command, args []string) (err error) {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.svc.Load(commandContext(cmd), owner, args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if exportOutput != "" {
		f, ferr := os.Create(exportOutput)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	return journal.WriteSessionOrg(w, s)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
