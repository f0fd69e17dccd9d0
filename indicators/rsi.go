package indicators

import (
	"fmt"

	"github.com/rustyeddy/stratlab/pricing"
)

// RSI is Wilder's Relative Strength Index of the close. A flat window
// reads 50.
type RSI struct {
	gain, loss wilder
	prev       *float64
}

func NewRSI(period int) *RSI {
	return &RSI{gain: wilder{n: period}, loss: wilder{n: period}}
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI(%d)", r.gain.n) }
func (r *RSI) Warmup() int  { return r.gain.n + 1 }
func (r *RSI) Ready() bool  { return r.gain.ready() }

func (r *RSI) Reset() {
	r.gain.reset()
	r.loss.reset()
	r.prev = nil
}

func (r *RSI) Update(c pricing.Candle) {
	cl := c.Close
	if r.prev != nil {
		d := cl - *r.prev
		r.gain.add(max(d, 0))
		r.loss.add(max(-d, 0))
	}
	r.prev = &cl
}

func (r *RSI) Value() float64 {
	switch {
	case !r.Ready():
		return 0
	case r.loss.value == 0 && r.gain.value == 0:
		return 50
	case r.loss.value == 0:
		return 100
	}
	return 100 - 100/(1+r.gain.value/r.loss.value)
}
