// Package indicators provides technical analysis indicators for daily candles.
package indicators

import (
	"math"

	"github.com/rustyeddy/stratlab/pricing"
)

// Indicator computes a single streaming value from candles.
// It is deterministic and is replayed from a clean state for every backtest.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed candle and updates internal state.
	Update(c pricing.Candle)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or 0 before Ready().
	Value() float64
}

// Field selects one price column from a candle.
type Field func(pricing.Candle) float64

var (
	Close Field = func(c pricing.Candle) float64 { return c.Close }
	High  Field = func(c pricing.Candle) float64 { return c.High }
	Low   Field = func(c pricing.Candle) float64 { return c.Low }
)

// Series replays ind over bars from a clean state and returns one value per
// bar. Bars before the indicator is ready are NaN.
func Series(ind Indicator, bars []pricing.Candle) []float64 {
	return Track(ind, bars, ind.Value)[0]
}

// Track is Series for indicators with several outputs: each out func is
// sampled after every update.
func Track(ind Indicator, bars []pricing.Candle, outs ...func() float64) [][]float64 {
	ind.Reset()

	res := make([][]float64, len(outs))
	for k := range res {
		res[k] = make([]float64, len(bars))
	}

	for i, c := range bars {
		ind.Update(c)
		for k, out := range outs {
			if ind.Ready() {
				res[k][i] = out()
			} else {
				res[k][i] = math.NaN()
			}
		}
	}
	return res
}

// Crossover reports whether a crossed above b on bar i: a was below b on
// the previous bar and is above it now. NaN inputs never cross.
func Crossover(a, b []float64, i int) bool {
	if i < 1 || i >= len(a) || i >= len(b) {
		return false
	}
	return a[i-1] < b[i-1] && a[i] > b[i]
}

// CrossAbove reports whether series crossed above level on bar i.
func CrossAbove(series []float64, level float64, i int) bool {
	if i < 1 || i >= len(series) {
		return false
	}
	return series[i-1] < level && series[i] > level
}

// CrossBelow reports whether series crossed below level on bar i.
func CrossBelow(series []float64, level float64, i int) bool {
	if i < 1 || i >= len(series) {
		return false
	}
	return series[i-1] > level && series[i] < level
}

// window is a fixed-size FIFO of the most recent values.
type window struct {
	size int
	vals []float64
	sum  float64
}

func newWindow(size int) *window {
	return &window{size: size, vals: make([]float64, 0, size)}
}

func (w *window) push(v float64) {
	w.vals = append(w.vals, v)
	w.sum += v
	if len(w.vals) > w.size {
		w.sum -= w.vals[0]
		w.vals = w.vals[1:]
	}
}

func (w *window) full() bool { return len(w.vals) >= w.size }

func (w *window) reset() {
	w.vals = w.vals[:0]
	w.sum = 0
}

func (w *window) mean() float64 {
	if len(w.vals) == 0 {
		return 0
	}
	return w.sum / float64(len(w.vals))
}

func (w *window) first() float64 {
	if len(w.vals) == 0 {
		return 0
	}
	return w.vals[0]
}
