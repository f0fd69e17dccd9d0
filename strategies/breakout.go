package strategies

import (
	"github.com/rustyeddy/stratlab/indicators"
	"github.com/rustyeddy/stratlab/pricing"
)

func init() {
	Register(Descriptor{
		ID:          "breakout",
		Name:        "Breakout",
		Description: "Buys a close above the prior lookback high and sells a close below the prior lookback low.",
		Params: []Param{
			{Name: "lookback_period", Default: 20},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("breakout", p, "lookback_period"); err != nil {
			return nil, err
		}
		return &breakout{channel: newChannel(p.Int("lookback_period"))}, nil
	})

	Register(Descriptor{
		ID:          "turtle",
		Name:        "Turtle",
		Description: "Enters on a channel breakout and, after exit_lookback bars, closes when price leaves the channel again.",
		Params: []Param{
			{Name: "entry_lookback", Default: 10},
			{Name: "exit_lookback", Default: 20},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("turtle", p, "entry_lookback", "exit_lookback"); err != nil {
			return nil, err
		}
		return &turtle{
			channel: newChannel(p.Int("entry_lookback")),
			hold:    p.Int("exit_lookback"),
		}, nil
	})

	Register(Descriptor{
		ID:          "volatility-breakout",
		Name:        "Volatility Breakout",
		Description: "Trades closes beyond the scaled prior channel with stop-loss and take-profit attached.",
		Params: []Param{
			{Name: "lookback_period", Default: 20},
			{Name: "volatility_factor", Default: 1.5},
			{Name: "stop_loss_percentage", Default: 0.02},
			{Name: "take_profit_percentage", Default: 0.02},
		},
	}, func(p Params) (Strategy, error) {
		if err := requirePeriods("volatility-breakout", p, "lookback_period"); err != nil {
			return nil, err
		}
		if p["volatility_factor"] <= 0 {
			return nil, &ParamError{Strategy: "volatility-breakout", Param: "volatility_factor", Reason: "must be > 0"}
		}
		return &volBreakout{
			channel: newChannel(p.Int("lookback_period")),
			factor:  p["volatility_factor"],
			sl:      p["stop_loss_percentage"],
			tp:      p["take_profit_percentage"],
		}, nil
	})
}

// channel is a Donchian channel (highest high / lowest low). Signals compare
// the current close against the channel as of the previous bar, since the
// current bar's own high always bounds its close.
type channel struct {
	period    int
	high, low []float64
	closes    []float64
}

func newChannel(period int) channel { return channel{period: period} }

func (c *channel) init(bars []pricing.Candle) {
	c.high = indicators.Series(indicators.NewHighest(c.period, indicators.High), bars)
	c.low = indicators.Series(indicators.NewLowest(c.period, indicators.Low), bars)
	c.closes = pricing.Closes(bars)
}

// prior returns the channel bounds of bar i-1; ok is false during warmup.
func (c *channel) prior(i int) (hi, lo float64, ok bool) {
	if i < 1 {
		return 0, 0, false
	}
	hi, lo = c.high[i-1], c.low[i-1]
	return hi, lo, !isNaN(hi, lo)
}

type breakout struct {
	channel
}

func (s *breakout) Init(bars []pricing.Candle) error {
	s.init(bars)
	return nil
}

func (s *breakout) Next(i int, _ Position) Decision {
	hi, lo, ok := s.prior(i)
	if !ok {
		return HoldDecision
	}
	switch c := s.closes[i]; {
	case c > hi:
		return Decision{Signal: Buy, Reason: "BreakoutHigh"}
	case c < lo:
		return Decision{Signal: Sell, Reason: "BreakoutLow"}
	}
	return HoldDecision
}

type turtle struct {
	channel
	hold int
}

func (s *turtle) Init(bars []pricing.Candle) error {
	s.init(bars)
	return nil
}

func (s *turtle) Next(i int, pos Position) Decision {
	hi, lo, ok := s.prior(i)
	if !ok {
		return HoldDecision
	}
	c := s.closes[i]

	if !pos.Open() {
		switch {
		case c > hi:
			return Decision{Signal: Buy, Reason: "EntryHigh"}
		case c < lo:
			return Decision{Signal: Sell, Reason: "EntryLow"}
		}
		return HoldDecision
	}

	if i+1 >= pos.EntryBar+s.hold && (c < lo || c > hi) {
		return Decision{Signal: Exit, Reason: "ChannelExit"}
	}
	return HoldDecision
}

type volBreakout struct {
	channel
	factor float64
	sl, tp float64
}

func (s *volBreakout) Init(bars []pricing.Candle) error {
	s.init(bars)
	return nil
}

func (s *volBreakout) Next(i int, _ Position) Decision {
	hi, lo, ok := s.prior(i)
	if !ok {
		return HoldDecision
	}
	c := s.closes[i]
	switch {
	case c > hi*s.factor:
		return Decision{
			Signal:     Buy,
			StopLoss:   c * (1 - s.sl),
			TakeProfit: c * (1 + s.tp),
			Reason:     "VolatilityBreakoutHigh",
		}
	case c < lo*s.factor:
		return Decision{
			Signal:     Sell,
			StopLoss:   c * (1 + s.sl),
			TakeProfit: c * (1 - s.tp),
			Reason:     "VolatilityBreakoutLow",
		}
	}
	return HoldDecision
}
