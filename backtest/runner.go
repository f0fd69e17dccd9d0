package backtest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/strategies"
)

const (
	DefaultCash       = 10000.0
	DefaultCommission = 0.002
	DefaultMinTrades  = 2
)

// Options are the per-run settings.
type Options struct {
	// Frequency keeps every Nth bar; 1 (or 0) uses every bar.
	Frequency  int
	Commission float64
	// Label names the run in Stats.Strategy, normally FormatLabel(id, params).
	Label string
}

// Result is everything a run produced.
type Result struct {
	Stats  Stats         `json:"stats"`
	Trades []Trade       `json:"trades"`
	Orders []Order       `json:"orders"`
	Equity []EquityPoint `json:"equity"`
}

// Runner executes one strategy over one series. The zero value is usable:
// unset fields fall back to the package defaults.
type Runner struct {
	Cash      float64
	MinTrades int
	Log       *zerolog.Logger
}

func (r *Runner) cash() float64 {
	if r.Cash > 0 {
		return r.Cash
	}
	return DefaultCash
}

func (r *Runner) minTrades() int {
	if r.MinTrades > 0 {
		return r.MinTrades
	}
	return DefaultMinTrades
}

func (r *Runner) logger() *zerolog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return &log.Logger
}

// Run resamples bars, drives strat across them and computes statistics.
//
// Faults raised by the strategy (an Init error or a panic in Init or Next)
// come back as *StrategyExecutionError. A run that closes fewer than
// MinTrades trades returns *InsufficientTradesError carrying the result.
func (r *Runner) Run(ctx context.Context, bars []pricing.Candle, strat strategies.Strategy, opts Options) (*Result, error) {
	if strat == nil {
		return nil, fmt.Errorf("backtest: strategy is required")
	}
	freq := opts.Frequency
	if freq < 1 {
		freq = 1
	}
	if opts.Commission < 0 {
		return nil, fmt.Errorf("backtest: negative commission %v", opts.Commission)
	}
	series := pricing.Resample(bars, freq)
	if len(series) < 2 {
		return nil, fmt.Errorf("backtest: need at least 2 bars, got %d", len(series))
	}
	label := opts.Label
	if label == "" {
		label = "strategy"
	}

	if err := safeInit(strat, series); err != nil {
		return nil, &StrategyExecutionError{Strategy: label, Bar: -1, Err: err}
	}

	eng := newEngine(series, r.cash(), opts.Commission)
	for i := range series {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		eng.step(i)
		eng.mark(i)

		d, err := safeNext(strat, i, eng.pos.Position)
		if err != nil {
			return nil, &StrategyExecutionError{Strategy: label, Bar: i, Err: err}
		}
		eng.submit(i, d)
	}
	eng.finish()

	res := &Result{
		Stats:  computeStats(series, eng, r.cash(), freq, label),
		Trades: eng.trades,
		Orders: eng.orders,
		Equity: eng.equity,
	}

	r.logger().Debug().
		Str("strategy", label).
		Int("bars", len(series)).
		Int("trades", res.Stats.Trades).
		Float64("equity_final", res.Stats.EquityFinal).
		Msg("backtest complete")

	if need := r.minTrades(); res.Stats.Trades < need {
		return res, &InsufficientTradesError{Trades: res.Stats.Trades, Min: need, Result: res}
	}
	return res, nil
}

func safeInit(s strategies.Strategy, bars []pricing.Candle) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return s.Init(bars)
}

func safeNext(s strategies.Strategy, i int, pos strategies.Position) (d strategies.Decision, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return s.Next(i, pos), nil
}

// FormatLabel renders a strategy id and its assignment as
// "id(k1=v1,k2=v2)" with keys sorted.
func FormatLabel(id string, p strategies.Params) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(id)
	b.WriteByte('(')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(p[k], 'g', -1, 64))
	}
	b.WriteByte(')')
	return b.String()
}
