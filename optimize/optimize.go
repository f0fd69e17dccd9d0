// Package optimize re-runs a stored session over a parameter grid and
// stores the best assignment as a derived session.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/stratlab/backtest"
	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/session"
	"github.com/rustyeddy/stratlab/strategies"
)

var ErrOptimization = errors.New("optimization failed")

// Error wraps every failure of a search except a missing session.
type Error struct {
	Session string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("optimize %s: %v", e.Session, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrOptimization }

type SessionStore interface {
	Load(ctx context.Context, owner, name string) (*session.Session, error)
	Save(ctx context.Context, s *session.Session) error
}

type PriceReader interface {
	Read(ctx context.Context, ticker string, start, end time.Time) ([]pricing.Candle, error)
}

type Engine struct {
	Store    SessionStore
	Prices   PriceReader
	Registry *strategies.Registry

	// MinTrades and Parallel configure the runs; zero means the backtest
	// defaults.
	MinTrades int
	Parallel  int
	Objective string
	// Marker suffixes the derived session name; empty means session.OptMarker.
	Marker string

	Log *zerolog.Logger
}

// Optimize loads (owner, name), searches ranges over the session's price
// window and saves the winner under name plus the marker, not permanent.
// Parameters without a range keep the source session's values. A missing
// source session is returned as is; every other failure is an *Error and
// leaves the store untouched.
func (e *Engine) Optimize(ctx context.Context, owner, name string, ranges map[string]Range) (*session.Session, error) {
	src, err := e.Store.Load(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	derived, err := e.search(ctx, src, ranges)
	if err != nil {
		return nil, &Error{Session: name, Err: err}
	}
	if err := e.Store.Save(ctx, derived); err != nil {
		return nil, &Error{Session: name, Err: err}
	}

	e.logger().Info().
		Str("owner", owner).
		Str("session", name).
		Str("derived", derived.Name).
		Interface("opt_values", derived.OptValues).
		Msg("optimized session saved")
	return derived, nil
}

func (e *Engine) search(ctx context.Context, src *session.Session, ranges map[string]Range) (*session.Session, error) {
	if len(ranges) == 0 {
		return nil, errors.New("no parameter ranges")
	}
	grid, err := Grid(ranges)
	if err != nil {
		return nil, err
	}

	reg := e.Registry
	if reg == nil {
		reg = strategies.Default
	}
	state := src.State
	entry, err := reg.Resolve(state.StrategyID)
	if err != nil {
		return nil, err
	}
	for k, v := range state.Params {
		if _, swept := grid[k]; !swept && entry.Has(k) {
			grid[k] = []float64{v}
		}
	}

	bars, err := e.Prices.Read(ctx, state.Ticker, state.Start, state.End)
	if err != nil {
		return nil, err
	}

	gs := &backtest.GridSearch{
		Runner: &backtest.Runner{
			Cash:      state.Cash,
			MinTrades: e.MinTrades,
			Log:       e.Log,
		},
		Parallel: e.Parallel,
	}
	e.logger().Debug().
		Str("strategy", entry.ID).
		Strs("swept", sortedNames(ranges)).
		Int("bars", len(bars)).
		Msg("grid search starting")

	res, err := gs.Optimize(ctx, bars, entry, grid, e.Objective, backtest.Options{
		Frequency:  state.Frequency,
		Commission: state.Commission,
	})
	if err != nil {
		return nil, err
	}

	id, values, err := ParseAssignment(res.Best.Stats.Strategy)
	if err != nil {
		return nil, err
	}
	if id != entry.ID {
		return nil, fmt.Errorf("winning label names %q, want %q", id, entry.ID)
	}

	stats := res.Best.Stats
	d := src.Derive(values, &stats, res.Best.Trades)
	if e.Marker != "" {
		d.Name = src.Name + e.Marker
	}
	return d, nil
}

func (e *Engine) logger() *zerolog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return &log.Logger
}
