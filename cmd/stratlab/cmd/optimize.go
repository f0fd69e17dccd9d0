package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratlab/optimize"
	"github.com/rustyeddy/stratlab/pricing"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize SESSION",
	Short: "Grid-search a stored session's parameters",
	Long: `Sweep each --range over the stored session's ticker and dates, keeping
unswept parameters at their stored values. The best run is written to
SESSION plus the configured marker (default "_opt").

Example:
  stratlab optimize alice_sma-cross -r short_period=10:50:10 -r long_period=100:200:50`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

var optRanges []string

func init() {
	rootCmd.AddCommand(optimizeCmd)
	optimizeCmd.Flags().StringArrayVarP(&optRanges, "range", "r", nil, "name=min:max:step (repeatable, required)")
	optimizeCmd.MarkFlagRequired("range")
}

func parseRanges(specs []string) (map[string]optimize.Range, error) {
	out := make(map[string]optimize.Range, len(specs))
	for _, s := range specs {
		name, bounds, ok := strings.Cut(s, "=")
		parts := strings.Split(bounds, ":")
		if !ok || name == "" || len(parts) != 3 {
			return nil, fmt.Errorf("expected name=min:max:step, got %q", s)
		}
		var v [3]float64
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			v[i] = f
		}
		out[strings.TrimSpace(name)] = optimize.Range{Min: v[0], Max: v[1], Step: v[2]}
	}
	return out, nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ranges, err := parseRanges(optRanges)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	derived, err := a.svc.Optimize(commandContext(cmd), owner, args[0], ranges)
	if err != nil {
		return err
	}

	printf(cmd, "Best parameters written to %q\n", derived.Name)
	for _, k := range sortedKeys(derived.OptValues) {
		printf(cmd, "  %-16s %g\n", k, derived.OptValues[k])
	}
	if s := derived.Stats; s != nil {
		printf(cmd, "Equity final %.2f, return %.2f%%, %d trades (%s to %s)\n",
			s.EquityFinal, s.ReturnPct, s.Trades, pricing.FormatDate(derived.Start), pricing.FormatDate(derived.End))
	}
	return nil
}
