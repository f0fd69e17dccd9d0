package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratlab/pricing"
)

func serve(t *testing.T, body string) *Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_DAILY_ADJUSTED", r.URL.Query().Get("function"))
		assert.Equal(t, "full", r.URL.Query().Get("outputsize"))
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	s := New("key")
	s.BaseURL = srv.URL
	return s
}

func TestFetchDaily(t *testing.T) {
	s := serve(t, `{
		"Meta Data": {"2. Symbol": "IBM"},
		"Time Series (Daily)": {
			"2024-01-03": {"1. open": "10", "2. high": "12", "3. low": "9", "4. close": "11",
				"5. adjusted close": "5.5", "6. volume": "100", "7. dividend amount": "0", "8. split coefficient": "1"},
			"2024-01-02": {"1. open": "9", "2. high": "10", "3. low": "8", "4. close": "10",
				"5. adjusted close": "5", "6. volume": "90", "7. dividend amount": "0", "8. split coefficient": "1"}
		}
	}`)

	raw, err := s.FetchDaily(context.Background(), "ibm")
	require.NoError(t, err)
	require.Len(t, raw, 2)

	bars, err := pricing.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2024-01-02", bars[0].Date())
	assert.InDelta(t, 5.0, bars[0].Close, 1e-9)
	assert.InDelta(t, 180.0, bars[0].Volume, 1e-9)
}

func TestFetchDaily_UnknownSymbol(t *testing.T) {
	s := serve(t, `{"Error Message": "Invalid API call."}`)

	_, err := s.FetchDaily(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, pricing.ErrTickerNotFound)
}

func TestFetchDaily_RateLimited(t *testing.T) {
	s := serve(t, `{"Note": "Thank you for using Alpha Vantage!"}`)

	_, err := s.FetchDaily(context.Background(), "IBM")
	require.Error(t, err)
	assert.NotErrorIs(t, err, pricing.ErrTickerNotFound)
}

func TestFetchDaily_BadNumber(t *testing.T) {
	s := serve(t, `{"Time Series (Daily)": {"2024-01-02": {"1. open": "x", "2. high": "1", "3. low": "1",
		"4. close": "1", "5. adjusted close": "1", "6. volume": "1"}}}`)

	_, err := s.FetchDaily(context.Background(), "IBM")
	assert.Error(t, err)
}
