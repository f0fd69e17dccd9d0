package strategies

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/stratlab/pricing"
)

// Strategy is the plugin capability set the backtest runner drives.
//
// Init is called once with the full (resampled) series; Next is called once
// per bar in order with the bar index and the current position. A strategy
// instance is used for exactly one run.
type Strategy interface {
	Init(bars []pricing.Candle) error
	Next(i int, pos Position) Decision
}

type Signal int

const (
	Hold Signal = iota
	Buy
	Sell
	// Exit closes the open position without opening a new one.
	Exit
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case Exit:
		return "EXIT"
	default:
		return "HOLD"
	}
}

// Decision is what a strategy wants done after bar i closes. StopLoss and
// TakeProfit are absolute prices, 0 means none.
type Decision struct {
	Signal     Signal
	StopLoss   float64
	TakeProfit float64
	Reason     string
}

// HoldDecision is the zero-value "do nothing" decision.
var HoldDecision = Decision{Signal: Hold}

type Side int8

const (
	Flat  Side = 0
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Position is the strategy's view of the open position.
type Position struct {
	Side       Side
	EntryBar   int
	EntryPrice float64
	Units      float64
}

func (p Position) Open() bool { return p.Side != Flat }

// Param is one tunable strategy parameter.
type Param struct {
	Name        string  `json:"name"`
	Default     float64 `json:"default"`
	Description string  `json:"description,omitempty"`
}

// Descriptor describes a registered strategy. ID is the stable key clients
// use; it never changes once issued.
type Descriptor struct {
	ID          string  `json:"id"`
	Name        string  `json:"display_name"`
	Description string  `json:"description,omitempty"`
	Params      []Param `json:"declared_parameters"`
}

// Defaults returns the descriptor's default parameter assignment.
func (d Descriptor) Defaults() Params {
	p := make(Params, len(d.Params))
	for _, dp := range d.Params {
		p[dp.Name] = dp.Default
	}
	return p
}

// Has reports whether name is a declared parameter.
func (d Descriptor) Has(name string) bool {
	for _, dp := range d.Params {
		if dp.Name == name {
			return true
		}
	}
	return false
}

// Params maps parameter names to values.
type Params map[string]float64

// Int returns the named value rounded to the nearest integer.
func (p Params) Int(name string) int {
	return int(math.Round(p[name]))
}

func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Factory builds a fresh strategy instance from a complete assignment.
type Factory func(p Params) (Strategy, error)

var (
	ErrNotFound     = errors.New("strategy not found")
	ErrInvalidParam = errors.New("invalid strategy parameter")
)

// NotFoundError reports an unknown strategy id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("strategy %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ParamError reports an unknown or out-of-range parameter.
type ParamError struct {
	Strategy string
	Param    string
	Reason   string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("strategy %s: parameter %q: %s", e.Strategy, e.Param, e.Reason)
}

func (e *ParamError) Is(target error) bool { return target == ErrInvalidParam }

// requirePeriods checks that every named parameter is a whole number
// >= 1. Fractional periods are refused rather than rounded so the value
// recorded for a run is the value it ran with.
func requirePeriods(id string, p Params, names ...string) error {
	for _, n := range names {
		if v := p[n]; v != math.Trunc(v) {
			return &ParamError{Strategy: id, Param: n, Reason: fmt.Sprintf("must be a whole number, got %v", v)}
		}
		if p.Int(n) < 1 {
			return &ParamError{Strategy: id, Param: n, Reason: fmt.Sprintf("must be >= 1, got %v", p[n])}
		}
	}
	return nil
}

func isNaN(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
