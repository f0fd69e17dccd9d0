// Package alpaca serves daily price history from the Alpaca market-data
// API.
package alpaca

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/rustyeddy/stratlab/pricing"
)

// HistoryStart is the earliest date requested; Alpaca has nothing older.
var HistoryStart = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

var _ pricing.Source = (*Source)(nil)

// Source fetches each ticker twice, once raw and once fully adjusted, and
// joins the two by day into RawBar rows.
type Source struct {
	client barsClient
	feed   marketdata.Feed
	now    func() time.Time
}

func New(apiKey, apiSecret, dataURL string) *Source {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &Source{
		client: marketdata.NewClient(opts),
		feed:   marketdata.IEX,
		now:    time.Now,
	}
}

func (s *Source) Name() string { return "alpaca" }

func (s *Source) FetchDaily(ctx context.Context, ticker string) ([]pricing.RawBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker = pricing.NormalizeTicker(ticker)

	raw, err := s.bars(ticker, marketdata.Raw)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &pricing.TickerNotFoundError{Ticker: ticker}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	adj, err := s.bars(ticker, marketdata.All)
	if err != nil {
		return nil, err
	}

	adjClose := make(map[string]float64, len(adj))
	for _, b := range adj {
		adjClose[pricing.FormatDate(b.Timestamp)] = b.Close
	}

	out := make([]pricing.RawBar, 0, len(raw))
	for _, b := range raw {
		ac, ok := adjClose[pricing.FormatDate(b.Timestamp)]
		if !ok {
			continue
		}
		out = append(out, pricing.RawBar{
			Time:     pricing.Day(b.Timestamp),
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			AdjClose: ac,
			Volume:   float64(b.Volume),
		})
	}
	if len(out) == 0 {
		return nil, &pricing.TickerNotFoundError{Ticker: ticker}
	}
	return out, nil
}

func (s *Source) bars(ticker string, adj marketdata.Adjustment) ([]marketdata.Bar, error) {
	bars, err := s.client.GetBars(ticker, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: adj,
		Start:      HistoryStart,
		End:        s.now().Add(-15 * time.Minute),
		Feed:       s.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s (%s): %w", ticker, adj, err)
	}
	return bars, nil
}
