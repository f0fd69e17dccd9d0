package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratlab/auth"
	"github.com/rustyeddy/stratlab/backtest"
	"github.com/rustyeddy/stratlab/cache"
	"github.com/rustyeddy/stratlab/journal"
	"github.com/rustyeddy/stratlab/optimize"
	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/strategies"
)

// pulse buys at bar "at", exits five bars later and buys again one bar
// after that.
type pulse struct{ at int }

func (p *pulse) Init([]pricing.Candle) error { return nil }

func (p *pulse) Next(i int, _ strategies.Position) strategies.Decision {
	switch i {
	case p.at, p.at + 6:
		return strategies.Decision{Signal: strategies.Buy}
	case p.at + 5:
		return strategies.Decision{Signal: strategies.Exit}
	}
	return strategies.HoldDecision
}

type staticSource struct{ rows []pricing.RawBar }

func (s staticSource) Name() string { return "static" }

func (s staticSource) FetchDaily(_ context.Context, ticker string) ([]pricing.RawBar, error) {
	if ticker != "AAPL" {
		return nil, &pricing.TickerNotFoundError{Ticker: ticker}
	}
	return s.rows, nil
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func risingRows(n int) []pricing.RawBar {
	out := make([]pricing.RawBar, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = pricing.RawBar{Time: t0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, AdjClose: c, Volume: 10}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *journal.SQLite) {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := strategies.NewRegistry()
	reg.Register(strategies.Descriptor{
		ID:     "pulse",
		Name:   "Pulse",
		Params: []strategies.Param{{Name: "at", Default: 10}},
	}, func(p strategies.Params) (strategies.Strategy, error) {
		return &pulse{at: p.Int("at")}, nil
	})

	prices := cache.New(store, staticSource{rows: risingRows(60)}, nil)
	svc := New(store, prices, reg, Options{Commission: 0.002, Parallel: 2}, nil)
	return svc, store
}

func request() RunRequest {
	return RunRequest{
		StrategyID: "pulse",
		Ticker:     "aapl",
		Start:      t0,
		End:        t0.AddDate(0, 0, 59),
		Frequency:  1,
	}
}

func TestRun_OwnerPersistsEphemeralSession(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	out, err := svc.Run(ctx, "alice", request())
	require.NoError(t, err)
	require.NotNil(t, out.Session)
	assert.Equal(t, "alice_pulse", out.Session.Name)
	assert.False(t, out.Session.Permanent)
	assert.Equal(t, 2, out.Result.Stats.Trades)
	assert.Equal(t, "pulse(at=10)", out.Result.Stats.Strategy)

	got, err := store.Load(ctx, "alice", "alice_pulse")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, 10.0, got.State.Params["at"])
	assert.Equal(t, 10000.0, got.State.Cash)
	assert.NotEmpty(t, got.State.RunID)
	assert.Len(t, got.Trades, 2)

	// re-running with other params overwrites the same default-named row
	req := request()
	req.Params = map[string]float64{"at": 20}
	_, err = svc.Run(ctx, "alice", req)
	require.NoError(t, err)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 20.0, list[0].State.Params["at"])
}

func TestRun_AnonymousIsNotStored(t *testing.T) {
	svc, store := newTestService(t)

	out, err := svc.Run(context.Background(), auth.Anonymous, request())
	require.NoError(t, err)
	assert.Nil(t, out.Session)
	assert.NotNil(t, out.Result)

	list, err := store.List(context.Background(), auth.Anonymous)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRun_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := request()
	req.StrategyID = "nope"
	_, err := svc.Run(ctx, "alice", req)
	assert.ErrorIs(t, err, strategies.ErrNotFound)

	req = request()
	req.Ticker = "ZZZZ"
	_, err = svc.Run(ctx, "alice", req)
	assert.ErrorIs(t, err, pricing.ErrTickerNotFound)

	req = request()
	req.Params = map[string]float64{"at": 500}
	_, err = svc.Run(ctx, "alice", req)
	assert.ErrorIs(t, err, backtest.ErrInsufficientTrades)
	var ite *backtest.InsufficientTradesError
	require.ErrorAs(t, err, &ite)
	assert.NotNil(t, ite.Result)
	_, err = svc.Load(ctx, "alice", "alice_pulse")
	assert.ErrorIs(t, err, journal.ErrSessionNotFound, "insufficient runs are not stored")

	req = request()
	req.Params = map[string]float64{"bogus": 1}
	_, err = svc.Run(ctx, "alice", req)
	assert.ErrorIs(t, err, strategies.ErrInvalidParam)

	req = request()
	req.End = t0.AddDate(0, 0, -1)
	_, err = svc.Run(ctx, "alice", req)
	assert.Error(t, err)

	neg := -0.1
	req = request()
	req.Commission = &neg
	_, err = svc.Run(ctx, "alice", req)
	assert.Error(t, err)
}

func TestSaveAndPurge(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Run(ctx, "alice", request())
	require.NoError(t, err)
	require.NoError(t, svc.Save(ctx, "alice", "alice_pulse", "keeper"))

	_, err = svc.Run(ctx, "alice", request())
	require.NoError(t, err)

	n, err := svc.Purge(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	kept, err := svc.Load(ctx, "alice", "keeper")
	require.NoError(t, err)
	assert.True(t, kept.Permanent)

	assert.ErrorIs(t, svc.Save(ctx, "alice", "missing", "x"), journal.ErrSessionNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "alice", "missing"), journal.ErrSessionNotFound)
	require.NoError(t, svc.Delete(ctx, "alice", "keeper"))
}

func TestAnonymousMayNotMutate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Save(ctx, auth.Anonymous, "a", "b"), auth.ErrAnonymous)
	assert.ErrorIs(t, svc.Delete(ctx, auth.Anonymous, "a"), auth.ErrAnonymous)
	_, err := svc.Purge(ctx, auth.Anonymous)
	assert.ErrorIs(t, err, auth.ErrAnonymous)
	_, err = svc.Optimize(ctx, auth.Anonymous, "a", nil)
	assert.ErrorIs(t, err, auth.ErrAnonymous)
	_, err = svc.Rerun(ctx, "", "a")
	assert.ErrorIs(t, err, auth.ErrAnonymous)
}

func TestOptimize(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Run(ctx, "alice", request())
	require.NoError(t, err)

	d, err := svc.Optimize(ctx, "alice", "alice_pulse", map[string]optimize.Range{
		"at": {Min: 5, Max: 15, Step: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice_pulse_opt", d.Name)
	assert.Contains(t, []float64{5, 10, 15}, d.OptValues["at"])

	got, err := svc.Load(ctx, "alice", "alice_pulse_opt")
	require.NoError(t, err)
	assert.False(t, got.Permanent)
	assert.Equal(t, d.OptValues, got.OptValues)

	_, err = svc.Optimize(ctx, "alice", "missing", map[string]optimize.Range{"at": {Min: 1, Max: 2, Step: 1}})
	assert.ErrorIs(t, err, journal.ErrSessionNotFound)
}

func TestRerunKeepsPermanence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	out, err := svc.Run(ctx, "alice", request())
	require.NoError(t, err)
	require.NoError(t, svc.Save(ctx, "alice", out.Session.Name, "mine"))

	got, err := svc.Rerun(ctx, "alice", "mine")
	require.NoError(t, err)
	assert.True(t, got.Permanent)
	assert.Equal(t, "mine", got.Name)
	assert.NotEqual(t, out.Session.State.RunID, got.State.RunID)
	assert.Equal(t, out.Result.Stats.EquityFinal, got.Stats.EquityFinal)
}

func TestRerunOptimizedSessionUsesOptValues(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Run(ctx, "alice", request())
	require.NoError(t, err)
	d, err := svc.Optimize(ctx, "alice", "alice_pulse", map[string]optimize.Range{
		"at": {Min: 5, Max: 15, Step: 5},
	})
	require.NoError(t, err)

	got, err := svc.Rerun(ctx, "alice", d.Name)
	require.NoError(t, err)
	assert.Equal(t, backtest.FormatLabel("pulse", d.OptValues), got.Stats.Strategy)
	assert.InDelta(t, d.Stats.EquityFinal, got.Stats.EquityFinal, 1e-9)
	assert.Equal(t, d.OptValues, got.OptValues)
	assert.Equal(t, d.OptValues["at"], got.State.Params["at"])
}

func TestCatalogAndCheckData(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	descs, err := svc.Strategies(ctx)
	require.NoError(t, err)
	require.Len(t, descs, 1, "falls back to the registry before sync")

	require.NoError(t, svc.SyncCatalog(ctx))
	descs, err = svc.Strategies(ctx)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "Pulse", descs[0].Name)

	ticker, err := svc.CheckData(ctx, " aapl ", t0.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", ticker)

	_, err = svc.CheckData(ctx, "ZZZZ", t0)
	assert.ErrorIs(t, err, pricing.ErrTickerNotFound)

	series, err := svc.Series(ctx)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 60, series[0].Bars)
}
