package backtest

import (
	"fmt"
	"io"

	"github.com/rustyeddy/stratlab/pricing"
)

// PrintResult writes a human-readable summary of a run.
func PrintResult(w io.Writer, ticker string, r *Result) {
	s := r.Stats
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	if ticker != "" {
		fmt.Fprintf(w, "Ticker:        %s\n", ticker)
	}
	fmt.Fprintf(w, "Strategy:      %s\n", s.Strategy)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", pricing.FormatDate(s.Start))
	fmt.Fprintf(w, "End:           %s\n", pricing.FormatDate(s.End))
	fmt.Fprintf(w, "Duration:      %d days\n", s.DurationDays)
	fmt.Fprintf(w, "Exposure:      %.2f%%\n", s.ExposureTimePct)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Equity Final:  %.2f\n", s.EquityFinal)
	fmt.Fprintf(w, "Equity Peak:   %.2f\n", s.EquityPeak)
	fmt.Fprintf(w, "Return:        %.2f%%\n", s.ReturnPct)
	fmt.Fprintf(w, "Buy & Hold:    %.2f%%\n", s.BuyHoldReturnPct)
	fmt.Fprintf(w, "Return (Ann.): %.2f%%\n", s.ReturnAnnPct)
	fmt.Fprintf(w, "Volatility:    %.2f%%\n", s.VolatilityAnnPct)
	fmt.Fprintf(w, "Sharpe:        %.2f\n", s.SharpeRatio)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", s.MaxDrawdownPct)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", s.Trades)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", s.WinRatePct)
	fmt.Fprintf(w, "Best Trade:    %.2f%%\n", s.BestTradePct)
	fmt.Fprintf(w, "Worst Trade:   %.2f%%\n", s.WorstTradePct)
	fmt.Fprintf(w, "Avg Trade:     %.2f%%\n", s.AvgTradePct)
	if s.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", s.ProfitFactor)
	}
	fmt.Fprintf(w, "Expectancy:    %.2f%%\n", s.ExpectancyPct)

	if len(r.Trades) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Trades")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, t := range r.Trades {
			fmt.Fprintf(w, "%-5s %s -> %s  %8.2f -> %8.2f  %+7.2f%%  %s\n",
				t.Side, pricing.FormatDate(t.EntryTime), pricing.FormatDate(t.ExitTime),
				t.EntryPrice, t.ExitPrice, t.ReturnPct, t.Reason)
		}
	}
	fmt.Fprintln(w)
}
