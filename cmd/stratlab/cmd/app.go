package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rustyeddy/stratlab/alpaca"
	"github.com/rustyeddy/stratlab/alphavantage"
	"github.com/rustyeddy/stratlab/auth"
	"github.com/rustyeddy/stratlab/cache"
	"github.com/rustyeddy/stratlab/config"
	"github.com/rustyeddy/stratlab/journal"
	"github.com/rustyeddy/stratlab/logger"
	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/service"
	"github.com/rustyeddy/stratlab/strategies"
)

// app is the wired stack every command works through.
type app struct {
	store *journal.SQLite
	cache *cache.Manager
	svc   *service.Service
}

func newSource(c *config.Config) (pricing.Source, error) {
	switch c.Data.Vendor {
	case "alpaca":
		return alpaca.New(c.Data.AlpacaKey, c.Data.AlpacaSecret, c.Data.AlpacaDataURL), nil
	case "alphavantage":
		if c.Data.AlphaVantageKey == "" {
			return nil, fmt.Errorf("alphavantage: ALPHAVANTAGE_KEY is not set")
		}
		return alphavantage.New(c.Data.AlphaVantageKey), nil
	}
	return nil, fmt.Errorf("unknown vendor %q", c.Data.Vendor)
}

func openApp() (*app, error) {
	store, err := journal.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	src, err := newSource(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	log := logger.Component("stratlab")
	prices := cache.New(store, src, &log)
	svc := service.New(store, prices, strategies.Default, service.Options{
		Cash:       cfg.Backtest.Cash,
		Commission: cfg.Backtest.Commission,
		MinTrades:  cfg.Backtest.MinTrades,
		Parallel:   cfg.Backtest.Parallelism,
		Objective:  cfg.Backtest.Objective,
		Marker:     cfg.Backtest.OptimizeMarker,
	}, &log)

	return &app{store: store, cache: prices, svc: svc}, nil
}

func (a *app) Close() error { return a.store.Close() }

func (a *app) auth() (*auth.Service, error) {
	ttl, err := cfg.Server.ParseTokenTTL()
	if err != nil {
		return nil, err
	}
	return auth.New(a.store, cfg.Server.JWTSecret, ttl)
}

// parseAssignments reads repeated name=value flags.
func parseAssignments(kvs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected name=value, got %q", kv)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[strings.TrimSpace(k)] = f
	}
	return out, nil
}
