package optimize

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratlab/backtest"
	"github.com/rustyeddy/stratlab/journal"
	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/session"
	"github.com/rustyeddy/stratlab/strategies"
)

// stepper buys at bar lookback, exits five bars later and re-enters on the
// following bar.
type stepper struct{ lookback int }

func (s *stepper) Init([]pricing.Candle) error { return nil }

func (s *stepper) Next(i int, _ strategies.Position) strategies.Decision {
	switch i {
	case s.lookback, s.lookback + 6:
		return strategies.Decision{Signal: strategies.Buy}
	case s.lookback + 5:
		return strategies.Decision{Signal: strategies.Exit}
	}
	return strategies.HoldDecision
}

type recorder struct {
	mu   sync.Mutex
	seen []float64
}

func (r *recorder) add(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, v)
}

func testRegistry(rec *recorder) *strategies.Registry {
	reg := strategies.NewRegistry()
	reg.Register(strategies.Descriptor{
		ID: "stepper",
		Params: []strategies.Param{
			{Name: "lookback", Default: 20},
			{Name: "fixed", Default: 1},
		},
	}, func(p strategies.Params) (strategies.Strategy, error) {
		if rec != nil {
			rec.add(p["lookback"])
		}
		return &stepper{lookback: p.Int("lookback")}, nil
	})
	return reg
}

type memStore struct {
	sessions map[string]*session.Session
	saves    int
	saveErr  error
}

func (m *memStore) Load(_ context.Context, owner, name string) (*session.Session, error) {
	s, ok := m.sessions[owner+"/"+name]
	if !ok {
		return nil, &journal.SessionNotFoundError{Owner: owner, Name: name}
	}
	return s, nil
}

func (m *memStore) Save(_ context.Context, s *session.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.sessions[s.Owner+"/"+s.Name] = s
	return nil
}

type fixedPrices []pricing.Candle

func (f fixedPrices) Read(context.Context, string, time.Time, time.Time) ([]pricing.Candle, error) {
	return f, nil
}

func risingBars(n int) fixedPrices {
	out := make(fixedPrices, n)
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := range out {
		c := 100 + float64(i)
		out[i] = pricing.Candle{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func sourceSession() *session.Session {
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 60)
	return &session.Session{
		Owner:      "alice",
		Name:       "alice_stepper",
		StrategyID: "stepper",
		Ticker:     "AAPL",
		Start:      start,
		End:        end,
		Frequency:  1,
		Commission: 0.002,
		State: session.Snapshot{
			RunID:      "run-1",
			Ticker:     "AAPL",
			Start:      start,
			End:        end,
			Frequency:  1,
			StrategyID: "stepper",
			Params:     map[string]float64{"lookback": 20, "fixed": 3},
			Cash:       10000,
			Commission: 0.002,
		},
		Permanent: true,
	}
}

func newTestEngine(rec *recorder) (*Engine, *memStore) {
	store := &memStore{sessions: map[string]*session.Session{}}
	src := sourceSession()
	store.sessions["alice/"+src.Name] = src
	return &Engine{
		Store:    store,
		Prices:   risingBars(60),
		Registry: testRegistry(rec),
		Parallel: 2,
	}, store
}

func TestOptimize_EvaluatesExactlyTheRange(t *testing.T) {
	rec := &recorder{}
	e, store := newTestEngine(rec)

	got, err := e.Optimize(context.Background(), "alice", "alice_stepper",
		map[string]Range{"lookback": {Min: 5, Max: 15, Step: 5}})
	require.NoError(t, err)

	sort.Float64s(rec.seen)
	assert.Equal(t, []float64{5, 10, 15}, rec.seen)

	assert.Contains(t, []float64{5, 10, 15}, got.OptValues["lookback"])
	assert.Equal(t, 5.0, got.OptValues["lookback"], "earliest entry rides the trend longest")
	assert.Equal(t, 3.0, got.OptValues["fixed"], "unswept params keep the session's value")

	assert.Equal(t, "alice_stepper_opt", got.Name)
	assert.False(t, got.Permanent)
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, sourceSession().State, got.State)
	require.NotNil(t, got.Stats)
	assert.Equal(t, "stepper(fixed=3,lookback=5)", got.Stats.Strategy)
	assert.NotEmpty(t, got.Trades)

	assert.Equal(t, 1, store.saves)
	assert.Same(t, got, store.sessions["alice/alice_stepper_opt"])
	assert.True(t, store.sessions["alice/alice_stepper"].Permanent, "source untouched")
}

func TestOptimize_MissingSession(t *testing.T) {
	e, _ := newTestEngine(nil)

	_, err := e.Optimize(context.Background(), "alice", "nope",
		map[string]Range{"lookback": {Min: 5, Max: 15, Step: 5}})
	assert.ErrorIs(t, err, journal.ErrSessionNotFound)
	assert.NotErrorIs(t, err, ErrOptimization)
}

func TestOptimize_Failures(t *testing.T) {
	tests := []struct {
		name   string
		ranges map[string]Range
	}{
		{"no ranges", nil},
		{"bad step", map[string]Range{"lookback": {Min: 5, Max: 15, Step: 0}}},
		{"reversed", map[string]Range{"lookback": {Min: 15, Max: 5, Step: 5}}},
		{"undeclared", map[string]Range{"bogus": {Min: 1, Max: 2, Step: 1}}},
		{"no candidate trades", map[string]Range{"lookback": {Min: 100, Max: 200, Step: 50}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store := newTestEngine(nil)

			_, err := e.Optimize(context.Background(), "alice", "alice_stepper", tt.ranges)
			assert.ErrorIs(t, err, ErrOptimization)

			var oe *Error
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, "alice_stepper", oe.Session)
			assert.Zero(t, store.saves, "nothing written on failure")
		})
	}
}

func TestOptimize_OversizedGridRejectedBeforeSearch(t *testing.T) {
	rec := &recorder{}
	e, store := newTestEngine(rec)

	wide := Range{Min: 0, Max: 9998, Step: 1}
	_, err := e.Optimize(context.Background(), "alice", "alice_stepper",
		map[string]Range{"lookback": wide, "fixed": wide})
	assert.ErrorIs(t, err, ErrOptimization)
	assert.ErrorIs(t, err, backtest.ErrGridTooLarge)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "alice_stepper", oe.Session)
	assert.Empty(t, rec.seen, "no backtest ran")
	assert.Zero(t, store.saves)
	assert.Len(t, store.sessions, 1)
}

func TestOptimize_SaveFailure(t *testing.T) {
	e, store := newTestEngine(nil)
	boom := errors.New("disk full")
	store.saveErr = boom

	_, err := e.Optimize(context.Background(), "alice", "alice_stepper",
		map[string]Range{"lookback": {Min: 5, Max: 15, Step: 5}})
	assert.ErrorIs(t, err, ErrOptimization)
	assert.ErrorIs(t, err, boom)
}

func TestOptimize_InsufficientCandidatesWrapped(t *testing.T) {
	e, _ := newTestEngine(nil)

	_, err := e.Optimize(context.Background(), "alice", "alice_stepper",
		map[string]Range{"lookback": {Min: 100, Max: 100, Step: 1}})
	assert.ErrorIs(t, err, backtest.ErrNoCandidates)
}
