package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratlab/backtest"
	"github.com/rustyeddy/stratlab/session"
	"github.com/rustyeddy/stratlab/strategies"
)

func testSession(owner, name string) *session.Session {
	start, end := day(2020, 1, 1), day(2021, 1, 1)
	return &session.Session{
		Owner:      owner,
		Name:       name,
		StrategyID: "sma-cross",
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
			StrategyID: "sma-cross",
			Params:     map[string]float64{"short_period": 10, "long_period": 30},
			Cash:       10000,
			Commission: 0.002,
		},
		Stats: &backtest.Stats{EquityFinal: 11000, Trades: 2, ReturnPct: 10},
		Trades: []backtest.Trade{
			{EntryBar: 3, ExitBar: 9, EntryTime: day(2020, 1, 4), ExitTime: day(2020, 1, 10),
				Side: "LONG", Units: 10, EntryPrice: 100, ExitPrice: 110, PNL: 100, ReturnPct: 10, Reason: backtest.ReasonSignal},
			{EntryBar: 9, ExitBar: 20, EntryTime: day(2020, 1, 10), ExitTime: day(2020, 1, 21),
				Side: "SHORT", Units: 10, EntryPrice: 110, ExitPrice: 100, PNL: 100, ReturnPct: 9.09, Reason: backtest.ReasonEndOfData},
		},
	}
}

func TestSessions_SaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	s := testSession("alice", "alice_sma-cross")
	require.NoError(t, j.Save(ctx, s))
	assert.False(t, s.UpdatedAt.IsZero())

	got, err := j.Load(ctx, "alice", "alice_sma-cross")
	require.NoError(t, err)
	assert.Equal(t, s.StrategyID, got.StrategyID)
	assert.True(t, got.Start.Equal(s.Start))
	assert.Equal(t, s.State.Params, got.State.Params)
	assert.Nil(t, got.OptValues)
	require.NotNil(t, got.Stats)
	assert.Equal(t, 11000.0, got.Stats.EquityFinal)
	require.Len(t, got.Trades, 2)
	assert.Equal(t, "SHORT", got.Trades[1].Side)
	assert.Equal(t, backtest.ReasonEndOfData, got.Trades[1].Reason)
	assert.False(t, got.Permanent)
}

func TestSessions_SaveReplacesWholeRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	s := testSession("alice", "run")
	s.OptValues = map[string]float64{"short_period": 5}
	require.NoError(t, j.Save(ctx, s))

	s2 := testSession("alice", "run")
	s2.Ticker = "MSFT"
	s2.Trades = s2.Trades[:1]
	s2.Stats = nil
	require.NoError(t, j.Save(ctx, s2))

	got, err := j.Load(ctx, "alice", "run")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", got.Ticker)
	assert.Nil(t, got.OptValues)
	assert.Nil(t, got.Stats)
	assert.Len(t, got.Trades, 1)

	list, err := j.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSessions_LoadMissing(t *testing.T) {
	t.Parallel()
	j, _ := newTestSQLite(t)

	_, err := j.Load(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	var nf *SessionNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope", nf.Name)
}

func TestSessions_OwnersAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	require.NoError(t, j.Save(ctx, testSession("alice", "run")))
	require.NoError(t, j.Save(ctx, testSession("bob", "run")))

	ok, err := j.Delete(ctx, "alice", "run")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = j.Load(ctx, "bob", "run")
	assert.NoError(t, err)
}

func TestSessions_Rename(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	require.NoError(t, j.Save(ctx, testSession("alice", "tmp")))

	ok, err := j.Rename(ctx, "alice", "tmp", "keeper")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = j.Load(ctx, "alice", "tmp")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	got, err := j.Load(ctx, "alice", "keeper")
	require.NoError(t, err)
	assert.True(t, got.Permanent)
	assert.Len(t, got.Trades, 2, "trades follow the rename")

	ok, err = j.Rename(ctx, "alice", "missing", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessions_RenameOntoExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	a := testSession("alice", "a")
	a.Ticker = "AAA"
	b := testSession("alice", "b")
	b.Ticker = "BBB"
	require.NoError(t, j.Save(ctx, a))
	require.NoError(t, j.Save(ctx, b))

	ok, err := j.Rename(ctx, "alice", "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := j.Load(ctx, "alice", "b")
	require.NoError(t, err)
	assert.Equal(t, "AAA", got.Ticker)

	list, err := j.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSessions_RenameSameNameMakesPermanent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	require.NoError(t, j.Save(ctx, testSession("alice", "run")))
	ok, err := j.Rename(ctx, "alice", "run", "run")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := j.Load(ctx, "alice", "run")
	require.NoError(t, err)
	assert.True(t, got.Permanent)
}

func TestSessions_SaveNeverGrantsPermanence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	s := testSession("alice", "never_renamed")
	s.Permanent = true
	require.NoError(t, j.Save(ctx, s))
	assert.False(t, s.Permanent)

	got, err := j.Load(ctx, "alice", "never_renamed")
	require.NoError(t, err)
	assert.False(t, got.Permanent)

	n, err := j.PurgeEphemeral(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSessions_SaveKeepsOrDropsPermanence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	require.NoError(t, j.Save(ctx, testSession("alice", "kept")))
	ok, err := j.Rename(ctx, "alice", "kept", "kept")
	require.NoError(t, err)
	require.True(t, ok)

	// a replay that carries the flag keeps it
	replay, err := j.Load(ctx, "alice", "kept")
	require.NoError(t, err)
	require.NoError(t, j.Save(ctx, replay))
	got, err := j.Load(ctx, "alice", "kept")
	require.NoError(t, err)
	assert.True(t, got.Permanent)

	// a fresh ephemeral write under the same name replaces it fully
	require.NoError(t, j.Save(ctx, testSession("alice", "kept")))
	got, err = j.Load(ctx, "alice", "kept")
	require.NoError(t, err)
	assert.False(t, got.Permanent)
}

func TestSessions_PurgeEphemeral(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	require.NoError(t, j.Save(ctx, testSession("alice", "e1")))
	require.NoError(t, j.Save(ctx, testSession("alice", "e2")))
	require.NoError(t, j.Save(ctx, testSession("alice", "keep")))
	ok, err := j.Rename(ctx, "alice", "keep", "keep")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, j.Save(ctx, testSession("bob", "e1")))

	n, err := j.PurgeEphemeral(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := j.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "keep", list[0].Name)

	trades, err := j.ListTrades(ctx, "alice", "e1")
	require.NoError(t, err)
	assert.Empty(t, trades)

	bob, err := j.List(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bob, 1)
}

func TestSessions_ListSorted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	for _, n := range []string{"c", "a", "b"} {
		require.NoError(t, j.Save(ctx, testSession("alice", n)))
		time.Sleep(time.Millisecond)
	}
	list, err := j.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "c", list[2].Name)
	assert.Empty(t, list[0].Trades)
}

func TestSessions_SaveRejectsInvalid(t *testing.T) {
	t.Parallel()
	j, _ := newTestSQLite(t)

	s := testSession("", "x")
	assert.Error(t, j.Save(context.Background(), s))
}

func TestCatalog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	j, _ := newTestSQLite(t)

	ds := strategies.Default.List()
	require.NoError(t, j.SyncCatalog(ctx, ds))
	require.NoError(t, j.SyncCatalog(ctx, ds))

	got, err := j.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(ds))
	assert.Equal(t, ds[0].ID, got[0].ID)
	assert.Equal(t, ds[0].Params, got[0].Params)
}
