// Package service strings the pieces together: make sure prices are
// cached, run a strategy, persist the session and optimize it.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/stratlab/auth"
	"github.com/rustyeddy/stratlab/backtest"
	"github.com/rustyeddy/stratlab/journal"
	"github.com/rustyeddy/stratlab/optimize"
	"github.com/rustyeddy/stratlab/pkg/id"
	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/session"
	"github.com/rustyeddy/stratlab/strategies"
)

// ErrInvalidRequest marks caller input the service rejected.
var ErrInvalidRequest = errors.New("invalid request")

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
}

// Store is the persistence the service needs; journal.SQLite satisfies it.
type Store interface {
	Save(ctx context.Context, s *session.Session) error
	Load(ctx context.Context, owner, name string) (*session.Session, error)
	List(ctx context.Context, owner string) ([]*session.Session, error)
	Rename(ctx context.Context, owner, oldName, newName string) (bool, error)
	Delete(ctx context.Context, owner, name string) (bool, error)
	PurgeEphemeral(ctx context.Context, owner string) (int64, error)
	SyncCatalog(ctx context.Context, descs []strategies.Descriptor) error
	ListCatalog(ctx context.Context) ([]strategies.Descriptor, error)
	ListSeries(ctx context.Context) ([]journal.SeriesInfo, error)
}

// Prices is the price cache; cache.Manager satisfies it.
type Prices interface {
	EnsureAvailable(ctx context.Context, ticker string, asOf time.Time) (bool, error)
	Read(ctx context.Context, ticker string, start, end time.Time) ([]pricing.Candle, error)
}

// Options are the run defaults. Zero values fall back to the backtest
// package defaults.
type Options struct {
	Cash       float64
	Commission float64
	MinTrades  int
	Parallel   int
	Objective  string
	Marker     string
}

type Service struct {
	store    Store
	prices   Prices
	registry *strategies.Registry
	opts     Options
	engine   *optimize.Engine
	log      zerolog.Logger
}

func New(store Store, prices Prices, reg *strategies.Registry, opts Options, logger *zerolog.Logger) *Service {
	if reg == nil {
		reg = strategies.Default
	}
	if logger == nil {
		logger = &log.Logger
	}
	if opts.Cash <= 0 {
		opts.Cash = backtest.DefaultCash
	}
	l := logger.With().Str("component", "service").Logger()

	return &Service{
		store:    store,
		prices:   prices,
		registry: reg,
		opts:     opts,
		log:      l,
		engine: &optimize.Engine{
			Store:     store,
			Prices:    prices,
			Registry:  reg,
			MinTrades: opts.MinTrades,
			Parallel:  opts.Parallel,
			Objective: opts.Objective,
			Marker:    opts.Marker,
			Log:       logger,
		},
	}
}

// SyncCatalog writes the registered strategies to the store's catalog.
func (s *Service) SyncCatalog(ctx context.Context) error {
	descs := s.registry.List()
	if err := s.store.SyncCatalog(ctx, descs); err != nil {
		return fmt.Errorf("sync catalog: %w", err)
	}
	s.log.Debug().Int("strategies", len(descs)).Msg("catalog synced")
	return nil
}

// Strategies returns the stored catalog, falling back to the registry
// when nothing has been synced yet.
func (s *Service) Strategies(ctx context.Context) ([]strategies.Descriptor, error) {
	descs, err := s.store.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return s.registry.List(), nil
	}
	return descs, nil
}

// CheckData makes sure ticker is cached through asOf and returns the
// normalized symbol.
func (s *Service) CheckData(ctx context.Context, ticker string, asOf time.Time) (string, error) {
	ticker = pricing.NormalizeTicker(ticker)
	if _, err := s.prices.EnsureAvailable(ctx, ticker, asOf); err != nil {
		return "", err
	}
	return ticker, nil
}

func (s *Service) Series(ctx context.Context) ([]journal.SeriesInfo, error) {
	return s.store.ListSeries(ctx)
}

// RunRequest describes one backtest. Nil Commission and zero Cash or
// Frequency take the service defaults.
type RunRequest struct {
	StrategyID string             `json:"strategy_id"`
	Ticker     string             `json:"ticker"`
	Start      time.Time          `json:"start"`
	End        time.Time          `json:"end"`
	Frequency  int                `json:"frequency"`
	Commission *float64           `json:"commission,omitempty"`
	Cash       float64            `json:"cash,omitempty"`
	Params     map[string]float64 `json:"params,omitempty"`
}

func (r *RunRequest) validate() error {
	switch {
	case r.StrategyID == "":
		return invalid("strategy_id is required")
	case pricing.NormalizeTicker(r.Ticker) == "":
		return invalid("ticker is required")
	case r.Start.IsZero() || r.End.IsZero():
		return invalid("start and end dates are required")
	case r.End.Before(r.Start):
		return invalid("end date before start date")
	case r.Frequency < 0:
		return invalid("frequency must not be negative")
	case r.Cash < 0:
		return invalid("cash must not be negative")
	case r.Commission != nil && (*r.Commission < 0 || *r.Commission >= 1):
		return invalid("commission must be in [0, 1)")
	}
	return nil
}

// RunResult is a completed run. Session is nil for anonymous callers,
// whose runs are never stored.
type RunResult struct {
	Session *session.Session `json:"session,omitempty"`
	Result  *backtest.Result `json:"result"`
}

// Run backtests one strategy and, for a signed-in owner, upserts the run as
// the ephemeral session owner_strategyID. A run with too few trades
// returns *backtest.InsufficientTradesError and is not stored.
func (s *Service) Run(ctx context.Context, owner string, req RunRequest) (*RunResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	entry, err := s.registry.Resolve(req.StrategyID)
	if err != nil {
		return nil, err
	}

	snap := session.Snapshot{
		RunID:      id.New(),
		Ticker:     pricing.NormalizeTicker(req.Ticker),
		Start:      pricing.Day(req.Start),
		End:        pricing.Day(req.End),
		Frequency:  max(req.Frequency, 1),
		StrategyID: entry.ID,
		Cash:       s.opts.Cash,
		Commission: s.opts.Commission,
	}
	if req.Cash > 0 {
		snap.Cash = req.Cash
	}
	if req.Commission != nil {
		snap.Commission = *req.Commission
	}

	if _, err := s.prices.EnsureAvailable(ctx, snap.Ticker, snap.End); err != nil {
		return nil, err
	}

	res, full, err := s.execute(ctx, entry, &snap, req.Params)
	if err != nil {
		return nil, err
	}
	snap.Params = full

	out := &RunResult{Result: res}
	if auth.IsAnonymous(owner) {
		return out, nil
	}

	sess := &session.Session{
		Owner:      owner,
		Name:       session.DefaultName(owner, entry.ID),
		StrategyID: entry.ID,
		Ticker:     snap.Ticker,
		Start:      snap.Start,
		End:        snap.End,
		Frequency:  snap.Frequency,
		Commission: snap.Commission,
		State:      snap,
		Stats:      &res.Stats,
		Trades:     res.Trades,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	out.Session = sess
	return out, nil
}

func (s *Service) execute(ctx context.Context, entry strategies.Entry, snap *session.Snapshot, params map[string]float64) (*backtest.Result, strategies.Params, error) {
	strat, full, err := entry.New(params)
	if err != nil {
		return nil, nil, err
	}
	bars, err := s.prices.Read(ctx, snap.Ticker, snap.Start, snap.End)
	if err != nil {
		return nil, nil, err
	}

	runner := &backtest.Runner{Cash: snap.Cash, MinTrades: s.opts.MinTrades, Log: &s.log}
	res, err := runner.Run(ctx, bars, strat, backtest.Options{
		Frequency:  snap.Frequency,
		Commission: snap.Commission,
		Label:      backtest.FormatLabel(entry.ID, full),
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("run_id", snap.RunID).
		Str("ticker", snap.Ticker).
		Str("strategy", res.Stats.Strategy).
		Int("trades", res.Stats.Trades).
		Float64("return_pct", res.Stats.ReturnPct).
		Msg("backtest run")
	return res, full, nil
}

// Rerun replays a stored session from its snapshot over the cached prices
// and overwrites it in place. Its name and permanence are kept. An
// optimized session replays with its opt_values over the snapshot's
// parameters.
func (s *Service) Rerun(ctx context.Context, owner, name string) (*session.Session, error) {
	if auth.IsAnonymous(owner) {
		return nil, auth.ErrAnonymous
	}
	sess, err := s.store.Load(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	entry, err := s.registry.Resolve(sess.State.StrategyID)
	if err != nil {
		return nil, err
	}

	snap := sess.State
	snap.RunID = id.New()
	params := strategies.Params(snap.Params).Clone()
	for k, v := range sess.OptValues {
		params[k] = v
	}
	res, full, err := s.execute(ctx, entry, &snap, params)
	if err != nil {
		return nil, err
	}
	snap.Params = full

	sess.State = snap
	sess.Stats = &res.Stats
	sess.Trades = res.Trades
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Save keeps a session under newName and marks it permanent.
func (s *Service) Save(ctx context.Context, owner, name, newName string) error {
	if auth.IsAnonymous(owner) {
		return auth.ErrAnonymous
	}
	if newName == "" {
		return invalid("new name is required")
	}
	ok, err := s.store.Rename(ctx, owner, name, newName)
	if err != nil {
		return err
	}
	if !ok {
		return &journal.SessionNotFoundError{Owner: owner, Name: name}
	}
	s.log.Info().Str("owner", owner).Str("from", name).Str("to", newName).Msg("session saved")
	return nil
}

func (s *Service) Load(ctx context.Context, owner, name string) (*session.Session, error) {
	return s.store.Load(ctx, owner, name)
}

func (s *Service) List(ctx context.Context, owner string) ([]*session.Session, error) {
	return s.store.List(ctx, owner)
}

func (s *Service) Delete(ctx context.Context, owner, name string) error {
	if auth.IsAnonymous(owner) {
		return auth.ErrAnonymous
	}
	ok, err := s.store.Delete(ctx, owner, name)
	if err != nil {
		return err
	}
	if !ok {
		return &journal.SessionNotFoundError{Owner: owner, Name: name}
	}
	return nil
}

// Purge deletes the owner's ephemeral sessions.
func (s *Service) Purge(ctx context.Context, owner string) (int64, error) {
	if auth.IsAnonymous(owner) {
		return 0, auth.ErrAnonymous
	}
	n, err := s.store.PurgeEphemeral(ctx, owner)
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("owner", owner).Int64("deleted", n).Msg("ephemeral sessions purged")
	return n, nil
}

func (s *Service) Optimize(ctx context.Context, owner, name string, ranges map[string]optimize.Range) (*session.Session, error) {
	if auth.IsAnonymous(owner) {
		return nil, auth.ErrAnonymous
	}
	return s.engine.Optimize(ctx, owner, name, ranges)
}
