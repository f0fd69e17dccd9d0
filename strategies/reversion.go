package strategies

import (
	"github.com/rustyeddy/stratlab/indicators"
	"github.com/rustyeddy/stratlab/pricing"
)

func init() {
	Register(Descriptor{
		ID:          "mean-reversion",
		Name:        "Mean Reversion",
		Description: "Sells when the close is more than z standard deviations above its mean, buys when below.",
		Params: []Param{
			{Name: "lookback_period", Default: 21},
			{Name: "z_score_threshold", Default: 3.0},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("mean-reversion", p, "lookback_period"); err != nil {
			return nil, err
		}
		return &bands{
			ind: indicators.NewBollinger(p.Int("lookback_period"), p["z_score_threshold"]),
			// a strict band test matches the z-score comparison
			strict: true,
		}, nil
	})

	Register(Descriptor{
		ID:          "mean-reversion-bollinger",
		Name:        "Mean Reversion Bollinger",
		Description: "Buys below the lower z-score band and sells above the upper band.",
		Params: []Param{
			{Name: "lookback_period", Default: 20},
			{Name: "z_score_threshold", Default: 1.0},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("mean-reversion-bollinger", p, "lookback_period"); err != nil {
			return nil, err
		}
		return &bands{
			ind:    indicators.NewBollinger(p.Int("lookback_period"), p["z_score_threshold"]),
			strict: true,
		}, nil
	})

	Register(Descriptor{
		ID:          "bollinger",
		Name:        "Bollinger Bands",
		Description: "Buys when the close touches the lower band and sells at the upper band.",
		Params: []Param{
			{Name: "period", Default: 30},
			{Name: "std_devs", Default: 3},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("bollinger", p, "period"); err != nil {
			return nil, err
		}
		return &bands{ind: indicators.NewBollinger(p.Int("period"), p["std_devs"])}, nil
	})

	Register(Descriptor{
		ID:          "rsi",
		Name:        "Relative Strength Index",
		Description: "Sells when RSI is above the sell threshold and buys below the buy threshold.",
		Params: []Param{
			{Name: "rsi_period", Default: 21},
			{Name: "sell_threshold", Default: 90},
			{Name: "buy_threshold", Default: 30},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("rsi", p, "rsi_period"); err != nil {
			return nil, err
		}
		return &rsi{
			ind:  indicators.NewRSI(p.Int("rsi_period")),
			sell: p["sell_threshold"],
			buy:  p["buy_threshold"],
		}, nil
	})

	Register(Descriptor{
		ID:          "stochastic",
		Name:        "Stochastic Overbought/Oversold",
		Description: "Trades slow %K crossing the oversold and overbought thresholds.",
		Params: []Param{
			{Name: "stoch_period", Default: 14},
			{Name: "stoch_threshold_oversold", Default: 45},
			{Name: "stoch_threshold_overbought", Default: 80},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("stochastic", p, "stoch_period"); err != nil {
			return nil, err
		}
		n := p.Int("stoch_period")
		return &stochastic{
			ind:        indicators.NewStochastic(n, n, n),
			oversold:   p["stoch_threshold_oversold"],
			overbought: p["stoch_threshold_overbought"],
		}, nil
	})
}

// bands buys at or below the lower band and sells at or above the upper
// band. With strict set the comparisons exclude the band itself.
type bands struct {
	ind    *indicators.Bollinger
	strict bool

	upper, lower []float64
	closes       []float64
}

func (s *bands) Init(bars []pricing.Candle) error {
	out := indicators.Track(s.ind, bars, s.ind.Upper, s.ind.Lower)
	s.upper, s.lower = out[0], out[1]
	s.closes = pricing.Closes(bars)
	return nil
}

func (s *bands) Next(i int, _ Position) Decision {
	c, hi, lo := s.closes[i], s.upper[i], s.lower[i]
	if isNaN(hi, lo) {
		return HoldDecision
	}
	if s.strict {
		switch {
		case c > hi:
			return Decision{Signal: Sell, Reason: "AboveUpperBand"}
		case c < lo:
			return Decision{Signal: Buy, Reason: "BelowLowerBand"}
		}
		return HoldDecision
	}
	switch {
	case c <= lo:
		return Decision{Signal: Buy, Reason: "LowerBand"}
	case c >= hi:
		return Decision{Signal: Sell, Reason: "UpperBand"}
	}
	return HoldDecision
}

type rsi struct {
	ind       *indicators.RSI
	sell, buy float64
	vals      []float64
}

func (s *rsi) Init(bars []pricing.Candle) error {
	s.vals = indicators.Series(s.ind, bars)
	return nil
}

func (s *rsi) Next(i int, _ Position) Decision {
	v := s.vals[i]
	switch {
	case v > s.sell:
		return Decision{Signal: Sell, Reason: "Overbought"}
	case v < s.buy:
		return Decision{Signal: Buy, Reason: "Oversold"}
	}
	return HoldDecision
}

type stochastic struct {
	ind                  *indicators.Stochastic
	oversold, overbought float64
	k                    []float64
}

func (s *stochastic) Init(bars []pricing.Candle) error {
	s.k = indicators.Series(s.ind, bars)
	return nil
}

func (s *stochastic) Next(i int, _ Position) Decision {
	switch {
	case indicators.CrossBelow(s.k, s.oversold, i):
		return Decision{Signal: Buy, Reason: "Oversold"}
	case indicators.CrossAbove(s.k, s.overbought, i):
		return Decision{Signal: Sell, Reason: "Overbought"}
	}
	return HoldDecision
}
