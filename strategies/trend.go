package strategies

import (
	"github.com/rustyeddy/stratlab/indicators"
	"github.com/rustyeddy/stratlab/pricing"
)

func init() {
	Register(Descriptor{
		ID:          "momentum",
		Name:        "Momentum",
		Description: "Buys while the close is above its value lookback bars ago and sells while below.",
		Params: []Param{
			{Name: "lookback_period", Default: 10},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("momentum", p, "lookback_period"); err != nil {
			return nil, err
		}
		return &momentum{mom: indicators.NewMomentum(p.Int("lookback_period"))}, nil
	})

	Register(Descriptor{
		ID:          "momentum-volatility",
		Name:        "Momentum Volatility",
		Description: "Fades momentum when ATR is above a volatility threshold.",
		Params: []Param{
			{Name: "lookback_period", Default: 10},
			{Name: "atr_period", Default: 15},
			{Name: "atr_threshold", Default: 2.5},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("momentum-volatility", p, "lookback_period", "atr_period"); err != nil {
			return nil, err
		}
		return &momentum{
			mom:       indicators.NewMomentum(p.Int("lookback_period")),
			atr:       indicators.NewATR(p.Int("atr_period")),
			threshold: p["atr_threshold"],
		}, nil
	})

	Register(Descriptor{
		ID:          "adx",
		Name:        "Average Directional Movement",
		Description: "Buys when ADX crosses above the threshold and sells while it stays at or below it.",
		Params: []Param{
			{Name: "adx_period", Default: 14},
			{Name: "adx_threshold", Default: 25},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("adx", p, "adx_period"); err != nil {
			return nil, err
		}
		return &adx{ind: indicators.NewADX(p.Int("adx_period")), threshold: p["adx_threshold"]}, nil
	})
}

// momentum follows the sign of close-to-close momentum. With an ATR gate it
// instead fades the move, and only while ATR exceeds threshold.
type momentum struct {
	mom       *indicators.Momentum
	atr       *indicators.ATR
	threshold float64

	momV, atrV []float64
}

func (s *momentum) Init(bars []pricing.Candle) error {
	s.momV = indicators.Series(s.mom, bars)
	if s.atr != nil {
		s.atrV = indicators.Series(s.atr, bars)
	}
	return nil
}

func (s *momentum) Next(i int, _ Position) Decision {
	m := s.momV[i]
	if isNaN(m) {
		return HoldDecision
	}

	if s.atrV == nil {
		switch {
		case m > 0:
			return Decision{Signal: Buy, Reason: "PositiveMomentum"}
		case m < 0:
			return Decision{Signal: Sell, Reason: "NegativeMomentum"}
		}
		return HoldDecision
	}

	if !(s.atrV[i] > s.threshold) {
		return HoldDecision
	}
	switch {
	case m > 0:
		return Decision{Signal: Sell, Reason: "FadeUp"}
	case m < 0:
		return Decision{Signal: Buy, Reason: "FadeDown"}
	}
	return HoldDecision
}

type adx struct {
	ind       *indicators.ADX
	threshold float64
	vals      []float64
}

func (s *adx) Init(bars []pricing.Candle) error {
	s.vals = indicators.Series(s.ind, bars)
	return nil
}

func (s *adx) Next(i int, _ Position) Decision {
	v := s.vals[i]
	if isNaN(v) {
		return HoldDecision
	}
	if v > s.threshold {
		if indicators.CrossAbove(s.vals, s.threshold, i) {
			return Decision{Signal: Buy, Reason: "TrendStart"}
		}
		return HoldDecision
	}
	return Decision{Signal: Sell, Reason: "TrendWeak"}
}
