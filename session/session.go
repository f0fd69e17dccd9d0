// Package session defines backtest sessions: the persisted identity of an
// (owner, name) run together with the snapshot needed to re-run it.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/stratlab/backtest"
)

// OptMarker is appended to a session name to name its optimized variant.
const OptMarker = "_opt"

// Snapshot is the engine state of a run: enough to re-run or re-optimize
// it without re-fetching prices.
type Snapshot struct {
	RunID      string             `json:"run_id"`
	Ticker     string             `json:"ticker"`
	Start      time.Time          `json:"start"`
	End        time.Time          `json:"end"`
	Frequency  int                `json:"frequency"`
	StrategyID string             `json:"strategy_id"`
	Params     map[string]float64 `json:"params"`
	Cash       float64            `json:"cash"`
	Commission float64            `json:"commission"`
}

func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	if len(b) == 0 {
		return s, errors.New("empty engine state")
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("decode engine state: %w", err)
	}
	return s, nil
}

// Session is one stored backtest. Identity is (Owner, Name).
type Session struct {
	Owner      string             `json:"owner"`
	Name       string             `json:"name"`
	StrategyID string             `json:"strategy_id"`
	Ticker     string             `json:"ticker"`
	Start      time.Time          `json:"start"`
	End        time.Time          `json:"end"`
	Frequency  int                `json:"frequency"`
	Commission float64            `json:"commission"`
	State      Snapshot           `json:"engine_state"`
	OptValues  map[string]float64 `json:"opt_values,omitempty"`
	Stats      *backtest.Stats    `json:"stats,omitempty"`
	Trades     []backtest.Trade   `json:"trades,omitempty"`
	Permanent  bool               `json:"permanent"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// DefaultName is the name an unsaved run is stored under.
func DefaultName(owner, strategyID string) string {
	return owner + "_" + strategyID
}

// OptimizedName is the name of the derived optimized session.
func OptimizedName(name string) string {
	return name + OptMarker
}

func (s *Session) Validate() error {
	switch {
	case s.Owner == "":
		return errors.New("session: owner is required")
	case s.Name == "":
		return errors.New("session: name is required")
	case s.StrategyID == "":
		return errors.New("session: strategy id is required")
	case s.Frequency < 1:
		return fmt.Errorf("session: frequency must be >= 1, got %d", s.Frequency)
	case s.End.Before(s.Start):
		return errors.New("session: end date before start date")
	}
	return nil
}

// Derive returns the optimized variant of s: same descriptive fields and
// engine state, new name, the winning assignment and permanent unset.
func (s *Session) Derive(optValues map[string]float64, stats *backtest.Stats, trades []backtest.Trade) *Session {
	d := *s
	d.Name = OptimizedName(s.Name)
	d.OptValues = make(map[string]float64, len(optValues))
	for k, v := range optValues {
		d.OptValues[k] = v
	}
	d.Stats = stats
	d.Trades = trades
	d.Permanent = false
	d.UpdatedAt = time.Time{}
	return &d
}
