package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratlab/pricing"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch TICKER...",
	Short: "Make sure daily history is cached for each ticker",
	Long: `Fetch and cache the adjusted daily history of each ticker unless the
cache already holds a bar for the as-of date.

Examples:
  stratlab fetch AAPL MSFT
  stratlab fetch --as-of 2024-06-28 SPY
  stratlab fetch --list`,
	RunE: runFetch,
}

var (
	fetchAsOf string
	fetchList bool
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchAsOf, "as-of", "", "date that must be cached, YYYY-MM-DD (default today)")
	fetchCmd.Flags().BoolVarP(&fetchList, "list", "l", false, "list cached series after fetching")
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !fetchList {
		return fmt.Errorf("at least one ticker is required")
	}
	asOf := pricing.Day(time.Now())
	if fetchAsOf != "" {
		d, err := pricing.ParseDate(fetchAsOf)
		if err != nil {
			return err
		}
		asOf = d
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	for _, t := range args {
		ticker, err := a.svc.CheckData(ctx, t, asOf)
		if err != nil {
			return err
		}
		printf(cmd, "%s ready through %s\n", ticker, pricing.FormatDate(asOf))
	}
	st := a.cache.Stats()
	if len(args) > 0 {
		printf(cmd, "cache: %d hits, %d fetches\n", st.Hits, st.Fetches)
	}

	if !fetchList {
		return nil
	}
	series, err := a.svc.Series(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tSOURCE\tBARS\tFIRST\tLAST\tFETCHED")
	for _, s := range series {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", s.Ticker, s.Source, s.Bars,
			s.FirstDate, s.LastDate, s.FetchedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
