package indicators

import (
	"fmt"

	"github.com/rustyeddy/stratlab/pricing"
)

// ATR is the Average True Range. The first candle only seeds the previous
// close, so Period+1 candles are needed.
type ATR struct {
	tr   wilder
	prev *pricing.Candle
}

func NewATR(period int) *ATR {
	return &ATR{tr: wilder{n: period}}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.tr.n) }
func (a *ATR) Warmup() int  { return a.tr.n + 1 }
func (a *ATR) Ready() bool  { return a.tr.ready() }

func (a *ATR) Reset() {
	a.tr.reset()
	a.prev = nil
}

func (a *ATR) Update(c pricing.Candle) {
	if a.prev != nil {
		a.tr.add(trueRange(c, *a.prev))
	}
	a.prev = &c
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.tr.value
}
