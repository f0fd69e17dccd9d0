package strategies

import (
	"github.com/rustyeddy/stratlab/indicators"
	"github.com/rustyeddy/stratlab/pricing"
)

func init() {
	Register(Descriptor{
		ID:          "sma-cross",
		Name:        "Moving Average Crossover",
		Description: "Buys when the short SMA crosses above the long SMA, sells on the opposite cross.",
		Params: []Param{
			{Name: "short_period", Default: 50, Description: "bars in the short moving average"},
			{Name: "long_period", Default: 200, Description: "bars in the long moving average"},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("sma-cross", p, "short_period", "long_period"); err != nil {
			return nil, err
		}
		return &maCross{
			fast: indicators.NewMA(p.Int("short_period")),
			slow: indicators.NewMA(p.Int("long_period")),
		}, nil
	})

	Register(Descriptor{
		ID:          "ema-cross",
		Name:        "EMA Crossover",
		Description: "Enters on a fast/slow EMA cross and reverses on the opposite cross.",
		Params: []Param{
			{Name: "fast_period", Default: 20},
			{Name: "slow_period", Default: 50},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("ema-cross", p, "fast_period", "slow_period"); err != nil {
			return nil, err
		}
		return &maCross{
			fast: indicators.NewEMA(p.Int("fast_period")),
			slow: indicators.NewEMA(p.Int("slow_period")),
		}, nil
	})

	Register(Descriptor{
		ID:          "ema-cross-adx",
		Name:        "EMA Crossover with ADX Filter",
		Description: "EMA crossover that only enters while ADX reports a trending market.",
		Params: []Param{
			{Name: "fast_period", Default: 20},
			{Name: "slow_period", Default: 50},
			{Name: "adx_period", Default: 14},
			{Name: "adx_min", Default: 20, Description: "minimum ADX to accept a cross"},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("ema-cross-adx", p, "fast_period", "slow_period", "adx_period"); err != nil {
			return nil, err
		}
		return &maCross{
			fast:   indicators.NewEMA(p.Int("fast_period")),
			slow:   indicators.NewEMA(p.Int("slow_period")),
			filter: indicators.NewADX(p.Int("adx_period")),
			minADX: p["adx_min"],
		}, nil
	})

	Register(Descriptor{
		ID:          "macd",
		Name:        "Moving Average Convergence Divergence",
		Description: "Buys when the MACD histogram crosses above zero, sells when it crosses below.",
		Params: []Param{
			{Name: "fast_period", Default: 12},
			{Name: "slow_period", Default: 26},
			{Name: "signal_period", Default: 9},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("macd", p, "fast_period", "slow_period", "signal_period"); err != nil {
			return nil, err
		}
		return &macd{ind: indicators.NewMACD(p.Int("fast_period"), p.Int("slow_period"), p.Int("signal_period"))}, nil
	})
}

// maCross trades the cross of two moving averages, optionally gated by a
// trend-strength filter (ADX).
type maCross struct {
	fast, slow indicators.Indicator
	filter     indicators.Indicator
	minADX     float64

	fastV, slowV, filterV []float64
}

func (s *maCross) Init(bars []pricing.Candle) error {
	s.fastV = indicators.Series(s.fast, bars)
	s.slowV = indicators.Series(s.slow, bars)
	if s.filter != nil {
		s.filterV = indicators.Series(s.filter, bars)
	}
	return nil
}

func (s *maCross) Next(i int, _ Position) Decision {
	if s.filterV != nil && !(s.filterV[i] >= s.minADX) {
		return HoldDecision
	}
	switch {
	case indicators.Crossover(s.fastV, s.slowV, i):
		return Decision{Signal: Buy, Reason: "BullCross"}
	case indicators.Crossover(s.slowV, s.fastV, i):
		return Decision{Signal: Sell, Reason: "BearCross"}
	}
	return HoldDecision
}

type macd struct {
	ind  *indicators.MACD
	hist []float64
}

func (s *macd) Init(bars []pricing.Candle) error {
	s.hist = indicators.Series(s.ind, bars)
	return nil
}

func (s *macd) Next(i int, _ Position) Decision {
	switch {
	case indicators.CrossAbove(s.hist, 0, i):
		return Decision{Signal: Buy, Reason: "HistogramAboveZero"}
	case indicators.CrossBelow(s.hist, 0, i):
		return Decision{Signal: Sell, Reason: "HistogramBelowZero"}
	}
	return HoldDecision
}
