package pricing

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the on-disk and on-the-wire form of a trading day.
const DateLayout = "2006-01-02"

// Candle is one adjusted daily bar. Every Candle handed to a strategy has
// already been back-adjusted for splits and dividends.
type Candle struct {
	Time time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume float64
}

// Date returns the bar's trading day as YYYY-MM-DD.
func (c Candle) Date() string {
	return FormatDate(c.Time)
}

// RawBar is a vendor row before adjustment: point-in-time OHLCV plus the
// vendor's split/dividend adjusted close.
type RawBar struct {
	Time time.Time

	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64

	Volume float64
}

// ParseDate parses YYYY-MM-DD as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Day truncates t to midnight UTC of the same calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Resample keeps every n-th bar starting with the first one. n <= 1 returns
// an unmodified copy.
func Resample(bars []Candle, n int) []Candle {
	if n <= 1 {
		out := make([]Candle, len(bars))
		copy(out, bars)
		return out
	}
	out := make([]Candle, 0, (len(bars)+n-1)/n)
	for i := 0; i < len(bars); i += n {
		out = append(out, bars[i])
	}
	return out
}

// Closes returns the close column of bars.
func Closes(bars []Candle) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
