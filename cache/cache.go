// Package cache keeps back-adjusted daily price series in the store and
// refreshes them from a price source on demand.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/rustyeddy/stratlab/pricing"
)

// PriceStore is the persistence the manager needs. journal.SQLite
// satisfies it.
type PriceStore interface {
	HasBar(ctx context.Context, ticker string, day time.Time) (bool, error)
	ReplaceSeries(ctx context.Context, ticker, source string, bars []pricing.Candle) error
	ReadRange(ctx context.Context, ticker string, start, end time.Time) ([]pricing.Candle, error)
}

// Stats counts manager activity since construction.
type Stats struct {
	Hits    int64 `json:"hits"`
	Fetches int64 `json:"fetches"`
	Shared  int64 `json:"shared"`
}

type Manager struct {
	store PriceStore
	src   pricing.Source
	log   zerolog.Logger
	group singleflight.Group

	hits, fetches, shared atomic.Int64
}

// New builds a manager. A nil logger means the global one.
func New(store PriceStore, src pricing.Source, logger *zerolog.Logger) *Manager {
	if logger == nil {
		logger = &log.Logger
	}
	return &Manager{
		store: store,
		src:   src,
		log:   logger.With().Str("component", "cache").Logger(),
	}
}

// EnsureAvailable makes sure ticker has a bar dated asOf in the store.
//
// A stored bar for that exact date is the freshness proof and costs no
// network access. Otherwise the full history is fetched, normalized and
// swapped in as one transaction. Concurrent misses for the same ticker
// share a single fetch.
func (m *Manager) EnsureAvailable(ctx context.Context, ticker string, asOf time.Time) (bool, error) {
	ticker = pricing.NormalizeTicker(ticker)
	if ticker == "" {
		return false, fmt.Errorf("ensure: empty ticker")
	}
	asOf = pricing.Day(asOf)

	ok, err := m.store.HasBar(ctx, ticker, asOf)
	if err != nil {
		return false, err
	}
	if ok {
		m.hits.Add(1)
		m.log.Debug().Str("ticker", ticker).Str("as_of", pricing.FormatDate(asOf)).Msg("cache hit")
		return true, nil
	}

	// The flight outlives any one caller: a cancelled caller stops waiting
	// but the fetch completes for the others.
	flight := context.WithoutCancel(ctx)
	ch := m.group.DoChan(ticker, func() (any, error) {
		return nil, m.refresh(flight, ticker, asOf)
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r := <-ch:
		if r.Shared {
			m.shared.Add(1)
		}
		if r.Err != nil {
			return false, r.Err
		}
		return true, nil
	}
}

func (m *Manager) refresh(ctx context.Context, ticker string, asOf time.Time) error {
	// a flight that finished between our probe and Do already stored it
	if ok, err := m.store.HasBar(ctx, ticker, asOf); err != nil || ok {
		return err
	}

	m.fetches.Add(1)
	m.log.Info().Str("ticker", ticker).Str("as_of", pricing.FormatDate(asOf)).
		Str("source", m.src.Name()).Msg("cache miss, fetching history")

	raw, err := m.src.FetchDaily(ctx, ticker)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return &pricing.TickerNotFoundError{Ticker: ticker}
	}

	bars, err := pricing.Normalize(raw)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", ticker, err)
	}
	if err := m.store.ReplaceSeries(ctx, ticker, m.src.Name(), bars); err != nil {
		return fmt.Errorf("store %s: %w", ticker, err)
	}

	m.log.Info().Str("ticker", ticker).Int("bars", len(bars)).
		Str("first", bars[0].Date()).Str("last", bars[len(bars)-1].Date()).Msg("series replaced")
	return nil
}

// Read returns the stored bars of ticker with start <= date <= end in
// ascending order. A range that matches nothing, start after end
// included, yields an empty slice.
func (m *Manager) Read(ctx context.Context, ticker string, start, end time.Time) ([]pricing.Candle, error) {
	start, end = pricing.Day(start), pricing.Day(end)
	if start.After(end) {
		return []pricing.Candle{}, nil
	}
	return m.store.ReadRange(ctx, pricing.NormalizeTicker(ticker), start, end)
}

func (m *Manager) Stats() Stats {
	return Stats{
		Hits:    m.hits.Load(),
		Fetches: m.fetches.Load(),
		Shared:  m.shared.Load(),
	}
}
