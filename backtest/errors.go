package backtest

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientTrades = errors.New("insufficient trades")
	ErrStrategyExecution  = errors.New("strategy execution failed")
)

// InsufficientTradesError is returned when a run completes but closes fewer
// than the required number of trades. The run's result is still attached.
type InsufficientTradesError struct {
	Trades int
	Min    int
	Result *Result
}

func (e *InsufficientTradesError) Error() string {
	return fmt.Sprintf("backtest closed %d trade(s), need at least %d", e.Trades, e.Min)
}

func (e *InsufficientTradesError) Is(target error) bool { return target == ErrInsufficientTrades }

// StrategyExecutionError wraps an error or recovered panic raised by a
// strategy. Bar is -1 when the fault happened in Init.
type StrategyExecutionError struct {
	Strategy string
	Bar      int
	Err      error
}

func (e *StrategyExecutionError) Error() string {
	if e.Bar < 0 {
		return fmt.Sprintf("strategy %s: init: %v", e.Strategy, e.Err)
	}
	return fmt.Sprintf("strategy %s: bar %d: %v", e.Strategy, e.Bar, e.Err)
}

func (e *StrategyExecutionError) Unwrap() error { return e.Err }

func (e *StrategyExecutionError) Is(target error) bool { return target == ErrStrategyExecution }
