package pricing

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int) []Candle {
	start := day("2024-01-01")
	out := make([]Candle, n)
	for i := range out {
		out[i] = Candle{Time: start.AddDate(0, 0, i), Close: float64(i)}
	}
	return out
}

func TestResample(t *testing.T) {
	bars := series(10)

	tests := []struct {
		n    int
		want []float64
	}{
		{0, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{1, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{3, []float64{0, 3, 6, 9}},
		{4, []float64{0, 4, 8}},
		{20, []float64{0}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("every %d", tt.n), func(t *testing.T) {
			assert.Equal(t, tt.want, Closes(Resample(bars, tt.n)))
		})
	}
}

func TestResample_CopiesInput(t *testing.T) {
	bars := series(3)
	out := Resample(bars, 1)
	out[0].Close = 99
	assert.Equal(t, 0.0, bars[0].Close)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, "2024-02-29", FormatDate(d))

	_, err = ParseDate("02/29/2024")
	assert.Error(t, err)
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeTicker("  aapl "))
}

func TestTickerNotFoundError(t *testing.T) {
	err := fmt.Errorf("fetch: %w", &TickerNotFoundError{Ticker: "ZZZZ"})
	assert.True(t, errors.Is(err, ErrTickerNotFound))

	var tnf *TickerNotFoundError
	require.True(t, errors.As(err, &tnf))
	assert.Equal(t, "ZZZZ", tnf.Ticker)
}
