package backtest

import (
	"math"
	"time"

	"github.com/rustyeddy/stratlab/pricing"
)

// TradingDaysPerYear annualizes per-bar returns at frequency 1.
const TradingDaysPerYear = 252

// Stats summarizes a run. Percentages are in percent units. Values that
// would be undefined (no trades, flat equity) are reported as 0.
type Stats struct {
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	DurationDays     int       `json:"duration_days"`
	ExposureTimePct  float64   `json:"exposure_time_pct"`
	EquityFinal      float64   `json:"equity_final"`
	EquityPeak       float64   `json:"equity_peak"`
	ReturnPct        float64   `json:"return_pct"`
	BuyHoldReturnPct float64   `json:"buy_hold_return_pct"`
	ReturnAnnPct     float64   `json:"return_ann_pct"`
	VolatilityAnnPct float64   `json:"volatility_ann_pct"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	MaxDrawdownPct   float64   `json:"max_drawdown_pct"`
	Trades           int       `json:"trades"`
	WinRatePct       float64   `json:"win_rate_pct"`
	BestTradePct     float64   `json:"best_trade_pct"`
	WorstTradePct    float64   `json:"worst_trade_pct"`
	AvgTradePct      float64   `json:"avg_trade_pct"`
	ProfitFactor     float64   `json:"profit_factor"`
	ExpectancyPct    float64   `json:"expectancy_pct"`

	// Strategy is the run label, "id(k=v,...)".
	Strategy string `json:"strategy"`
}

// Metrics returns every numeric statistic keyed by its json name.
func (s Stats) Metrics() map[string]float64 {
	return map[string]float64{
		"duration_days":       float64(s.DurationDays),
		"exposure_time_pct":   s.ExposureTimePct,
		"equity_final":        s.EquityFinal,
		"equity_peak":         s.EquityPeak,
		"return_pct":          s.ReturnPct,
		"buy_hold_return_pct": s.BuyHoldReturnPct,
		"return_ann_pct":      s.ReturnAnnPct,
		"volatility_ann_pct":  s.VolatilityAnnPct,
		"sharpe_ratio":        s.SharpeRatio,
		"max_drawdown_pct":    s.MaxDrawdownPct,
		"trades":              float64(s.Trades),
		"win_rate_pct":        s.WinRatePct,
		"best_trade_pct":      s.BestTradePct,
		"worst_trade_pct":     s.WorstTradePct,
		"avg_trade_pct":       s.AvgTradePct,
		"profit_factor":       s.ProfitFactor,
		"expectancy_pct":      s.ExpectancyPct,
	}
}

// Metric looks up a numeric statistic by its json name.
func (s Stats) Metric(name string) (float64, bool) {
	v, ok := s.Metrics()[name]
	return v, ok
}

func computeStats(bars []pricing.Candle, e *engine, cash float64, frequency int, label string) Stats {
	n := len(bars)
	first, last := bars[0], bars[n-1]

	st := Stats{
		Start:        first.Time,
		End:          last.Time,
		DurationDays: int(last.Time.Sub(first.Time).Hours() / 24),
		Trades:       len(e.trades),
		Strategy:     label,
	}

	// equity
	eq := make([]float64, len(e.equity))
	for i, p := range e.equity {
		eq[i] = p.Equity
	}
	st.EquityFinal = eq[len(eq)-1]
	peak, maxDD := eq[0], 0.0
	for _, v := range eq {
		peak = math.Max(peak, v)
		if peak > 0 {
			maxDD = math.Max(maxDD, 1-v/peak)
		}
	}
	st.EquityPeak = peak
	st.MaxDrawdownPct = -maxDD * 100
	st.ReturnPct = (st.EquityFinal - cash) / cash * 100
	if first.Close != 0 {
		st.BuyHoldReturnPct = (last.Close - first.Close) / first.Close * 100
	}

	// exposure
	held := make([]bool, n)
	for _, t := range e.trades {
		for i := t.EntryBar; i <= t.ExitBar && i < n; i++ {
			held[i] = true
		}
	}
	cnt := 0
	for _, h := range held {
		if h {
			cnt++
		}
	}
	st.ExposureTimePct = float64(cnt) / float64(n) * 100

	// annualized return and volatility from per-bar returns
	if len(eq) > 1 {
		rets := make([]float64, 0, len(eq)-1)
		for i := 1; i < len(eq); i++ {
			if eq[i-1] != 0 {
				rets = append(rets, eq[i]/eq[i-1]-1)
			}
		}
		if frequency < 1 {
			frequency = 1
		}
		ppy := float64(TradingDaysPerYear) / float64(frequency)
		g := geometricMean(rets)
		st.ReturnAnnPct = (math.Pow(1+g, ppy) - 1) * 100
		if v := sampleVariance(rets); v > 0 {
			vol := math.Pow(v+(1+g)*(1+g), ppy) - math.Pow(1+g, 2*ppy)
			if vol > 0 {
				st.VolatilityAnnPct = math.Sqrt(vol) * 100
			}
		}
		if st.VolatilityAnnPct > 0 {
			st.SharpeRatio = st.ReturnAnnPct / st.VolatilityAnnPct
		}
	}

	// trades
	if len(e.trades) > 0 {
		var wins int
		var gross, loss, sum float64
		rets := make([]float64, len(e.trades))
		st.BestTradePct = math.Inf(-1)
		st.WorstTradePct = math.Inf(1)
		for i, t := range e.trades {
			if t.PNL > 0 {
				wins++
				gross += t.PNL
			} else {
				loss -= t.PNL
			}
			sum += t.ReturnPct
			rets[i] = t.ReturnPct / 100
			st.BestTradePct = math.Max(st.BestTradePct, t.ReturnPct)
			st.WorstTradePct = math.Min(st.WorstTradePct, t.ReturnPct)
		}
		st.WinRatePct = float64(wins) / float64(len(e.trades)) * 100
		st.AvgTradePct = geometricMean(rets) * 100
		st.ExpectancyPct = sum / float64(len(e.trades))
		if loss > 0 {
			st.ProfitFactor = gross / loss
		}
	}

	return st.finite()
}

// geometricMean of returns; 0 when any return wipes out the base.
func geometricMean(rets []float64) float64 {
	if len(rets) == 0 {
		return 0
	}
	var s float64
	for _, r := range rets {
		if 1+r <= 0 {
			return 0
		}
		s += math.Log1p(r)
	}
	return math.Expm1(s / float64(len(rets)))
}

func sampleVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return ss / float64(len(xs)-1)
}

func (s Stats) finite() Stats {
	for _, p := range []*float64{
		&s.ExposureTimePct, &s.EquityFinal, &s.EquityPeak, &s.ReturnPct,
		&s.BuyHoldReturnPct, &s.ReturnAnnPct, &s.VolatilityAnnPct,
		&s.SharpeRatio, &s.MaxDrawdownPct, &s.WinRatePct, &s.BestTradePct,
		&s.WorstTradePct, &s.AvgTradePct, &s.ProfitFactor, &s.ExpectancyPct,
	} {
		if math.IsNaN(*p) || math.IsInf(*p, 0) {
			*p = 0
		}
	}
	return s
}
