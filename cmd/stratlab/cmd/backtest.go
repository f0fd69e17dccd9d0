package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratlab/backtest"
	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/service"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a strategy over a ticker's daily history",
	Long: `Run one strategy and store the run as the ephemeral session
<user>_<strategy>. Use "sessions save" to keep it.

Examples:
  stratlab backtest -s sma-cross -t AAPL --start 2018-01-01 --end 2023-12-29
  stratlab backtest -s sma-cross -t AAPL --start 2018-01-01 --end 2023-12-29 -p short_period=20 -p long_period=100`,
	RunE: runBacktest,
}

var (
	btStrategy   string
	btTicker     string
	btStart      string
	btEnd        string
	btFrequency  int
	btCash       float64
	btCommission float64
	btParams     []string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "", "strategy id (required)")
	backtestCmd.Flags().StringVarP(&btTicker, "ticker", "t", "", "ticker symbol (required)")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "first date, YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "last date, YYYY-MM-DD (required)")
	backtestCmd.Flags().IntVarP(&btFrequency, "frequency", "f", 1, "bars per step (1 = daily, 5 = weekly)")
	backtestCmd.Flags().Float64Var(&btCash, "cash", 0, "starting cash (default from config)")
	backtestCmd.Flags().Float64Var(&btCommission, "commission", -1, "commission fraction (default from config)")
	backtestCmd.Flags().StringArrayVarP(&btParams, "param", "p", nil, "parameter override name=value (repeatable)")

	for _, f := range []string{"strategy", "ticker", "start", "end"} {
		backtestCmd.MarkFlagRequired(f)
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	req, err := buildRunRequest()
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.svc.Run(commandContext(cmd), owner, req)
	var short *backtest.InsufficientTradesError
	if errors.As(err, &short) {
		backtest.PrintResult(cmd.OutOrStdout(), pricing.NormalizeTicker(req.Ticker), short.Result)
		return err
	}
	if err != nil {
		return err
	}

	backtest.PrintResult(cmd.OutOrStdout(), pricing.NormalizeTicker(req.Ticker), out.Result)
	if out.Session != nil {
		printf(cmd, "Stored as ephemeral session %q\n", out.Session.Name)
	}
	return nil
}

func buildRunRequest() (service.RunRequest, error) {
	start, err := pricing.ParseDate(btStart)
	if err != nil {
		return service.RunRequest{}, fmt.Errorf("start: %w", err)
	}
	end, err := pricing.ParseDate(btEnd)
	if err != nil {
		return service.RunRequest{}, fmt.Errorf("end: %w", err)
	}
	params, err := parseAssignments(btParams)
	if err != nil {
		return service.RunRequest{}, err
	}

	req := service.RunRequest{
		StrategyID: btStrategy,
		Ticker:     btTicker,
		Start:      start,
		End:        end,
		Frequency:  btFrequency,
		Cash:       btCash,
		Params:     params,
	}
	if btCommission >= 0 {
		c := btCommission
		req.Commission = &c
	}
	return req, nil
}
