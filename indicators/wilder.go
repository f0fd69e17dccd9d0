package indicators

import (
	"math"

	"github.com/rustyeddy/stratlab/pricing"
)

// wilder is Wilder's smoothing: the first n samples are averaged, after
// which each sample moves the value by 1/n of its distance.
type wilder struct {
	n     int
	seen  int
	value float64
}

func (w *wilder) add(x float64) {
	n := float64(w.n)
	if w.seen < w.n {
		w.value += x / n
		w.seen++
		return
	}
	w.value += (x - w.value) / n
}

func (w *wilder) ready() bool { return w.seen >= w.n }

func (w *wilder) reset() { w.seen, w.value = 0, 0 }

// trueRange is the largest of the bar's range and its gaps from prev close.
func trueRange(cur, prev pricing.Candle) float64 {
	return max(cur.High-cur.Low, math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close))
}
