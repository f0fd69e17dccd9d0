// Package alphavantage serves daily price history from the Alpha Vantage
// TIME_SERIES_DAILY_ADJUSTED endpoint.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/stratlab/pricing"
)

const DefaultBaseURL = "https://www.alphavantage.co/query"

var _ pricing.Source = (*Source)(nil)

type Source struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func New(apiKey string) *Source {
	return &Source{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Source) Name() string { return "alphavantage" }

type dailyRow struct {
	Open     string `json:"1. open"`
	High     string `json:"2. high"`
	Low      string `json:"3. low"`
	Close    string `json:"4. close"`
	AdjClose string `json:"5. adjusted close"`
	Volume   string `json:"6. volume"`
}

type dailyResponse struct {
	Series      map[string]dailyRow `json:"Time Series (Daily)"`
	Error       string              `json:"Error Message"`
	Note        string              `json:"Note"`
	Information string              `json:"Information"`
}

// FetchDaily requests the full adjusted daily series. The vendor signals
// an unknown symbol with an "Error Message" body, which becomes a
// TickerNotFoundError.
func (s *Source) FetchDaily(ctx context.Context, ticker string) ([]pricing.RawBar, error) {
	ticker = pricing.NormalizeTicker(ticker)

	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY_ADJUSTED")
	q.Set("symbol", ticker)
	q.Set("outputsize", "full")
	q.Set("apikey", s.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage %s: status %d", ticker, resp.StatusCode)
	}

	var body dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("alphavantage %s: decode: %w", ticker, err)
	}

	switch {
	case body.Error != "":
		return nil, &pricing.TickerNotFoundError{Ticker: ticker}
	case body.Note != "":
		return nil, fmt.Errorf("alphavantage %s: %s", ticker, body.Note)
	case body.Information != "":
		return nil, fmt.Errorf("alphavantage %s: %s", ticker, body.Information)
	case len(body.Series) == 0:
		return nil, &pricing.TickerNotFoundError{Ticker: ticker}
	}

	out := make([]pricing.RawBar, 0, len(body.Series))
	for date, row := range body.Series {
		bar, err := row.parse(date)
		if err != nil {
			return nil, fmt.Errorf("alphavantage %s: %w", ticker, err)
		}
		out = append(out, bar)
	}
	return out, nil
}

func (r dailyRow) parse(date string) (pricing.RawBar, error) {
	t, err := pricing.ParseDate(date)
	if err != nil {
		return pricing.RawBar{}, err
	}
	vals := make([]float64, 6)
	for i, s := range []string{r.Open, r.High, r.Low, r.Close, r.AdjClose, r.Volume} {
		if vals[i], err = strconv.ParseFloat(s, 64); err != nil {
			return pricing.RawBar{}, fmt.Errorf("%s: %w", date, err)
		}
	}
	return pricing.RawBar{
		Time:     t,
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		AdjClose: vals[4],
		Volume:   vals[5],
	}, nil
}
