package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratlab/backtest"
)

func sample() *Session {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Session{
		Owner:      "alice",
		Name:       DefaultName("alice", "sma-cross"),
		StrategyID: "sma-cross",
		Ticker:     "AAPL",
		Start:      start,
		End:        end,
		Frequency:  1,
		Commission: 0.002,
		State: Snapshot{
			RunID:      "01HZZZ",
			Ticker:     "AAPL",
			Start:      start,
			End:        end,
			Frequency:  1,
			StrategyID: "sma-cross",
			Params:     map[string]float64{"short_period": 50, "long_period": 200},
			Cash:       10000,
			Commission: 0.002,
		},
		Stats:     &backtest.Stats{EquityFinal: 12000, Trades: 3},
		Permanent: true,
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "alice_sma-cross", DefaultName("alice", "sma-cross"))
	assert.Equal(t, "alice_sma-cross_opt", OptimizedName("alice_sma-cross"))
}

func TestSnapshot_EncodeDecode(t *testing.T) {
	s := sample().State
	b, err := s.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"strategy_id":"sma-cross"`)

	got, err := DecodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = DecodeSnapshot(nil)
	assert.Error(t, err)
	_, err = DecodeSnapshot([]byte("{"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Session)
		ok     bool
	}{
		{"valid", func(*Session) {}, true},
		{"no owner", func(s *Session) { s.Owner = "" }, false},
		{"no name", func(s *Session) { s.Name = "" }, false},
		{"no strategy", func(s *Session) { s.StrategyID = "" }, false},
		{"bad frequency", func(s *Session) { s.Frequency = 0 }, false},
		{"reversed dates", func(s *Session) { s.End = s.Start.AddDate(0, 0, -1) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sample()
			tt.mutate(s)
			if tt.ok {
				assert.NoError(t, s.Validate())
			} else {
				assert.Error(t, s.Validate())
			}
		})
	}
}

func TestDerive(t *testing.T) {
	src := sample()
	opt := map[string]float64{"short_period": 10}
	d := src.Derive(opt, &backtest.Stats{EquityFinal: 15000}, nil)

	assert.Equal(t, "alice_sma-cross_opt", d.Name)
	assert.False(t, d.Permanent)
	assert.Equal(t, src.Ticker, d.Ticker)
	assert.Equal(t, src.Start, d.Start)
	assert.Equal(t, src.End, d.End)
	assert.Equal(t, src.Frequency, d.Frequency)
	assert.Equal(t, src.Commission, d.Commission)
	assert.Equal(t, src.State, d.State)
	assert.Equal(t, 10.0, d.OptValues["short_period"])
	assert.Equal(t, 15000.0, d.Stats.EquityFinal)

	// source untouched
	opt["short_period"] = 99
	assert.Equal(t, 10.0, d.OptValues["short_period"])
	assert.True(t, src.Permanent)
	assert.Equal(t, "alice_sma-cross", src.Name)
}
