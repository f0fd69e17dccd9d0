package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/stratlab/pricing"
)

// ADX is Wilder's Average Directional Index, a trend-strength reading in
// [0, 100] that ignores direction.
//
// Period candles after the seed smooth TR and the directional moves, then
// Period more DX values seed the index itself.
type ADX struct {
	tr, plusDM, minusDM wilder
	dx                  wilder
	prev                *pricing.Candle
}

func NewADX(period int) *ADX {
	return &ADX{
		tr:      wilder{n: period},
		plusDM:  wilder{n: period},
		minusDM: wilder{n: period},
		dx:      wilder{n: period},
	}
}

func (a *ADX) Name() string { return fmt.Sprintf("ADX(%d)", a.dx.n) }
func (a *ADX) Warmup() int  { return 2*a.dx.n + 1 }
func (a *ADX) Ready() bool  { return a.dx.ready() }

func (a *ADX) Reset() {
	for _, w := range []*wilder{&a.tr, &a.plusDM, &a.minusDM, &a.dx} {
		w.reset()
	}
	a.prev = nil
}

func (a *ADX) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.dx.value
}

// PlusDI and MinusDI are the directional indicators behind the index.
func (a *ADX) PlusDI() float64  { return a.di(a.plusDM.value) }
func (a *ADX) MinusDI() float64 { return a.di(a.minusDM.value) }

func (a *ADX) di(dm float64) float64 {
	if a.tr.value == 0 {
		return 0
	}
	return 100 * dm / a.tr.value
}

func (a *ADX) Update(c pricing.Candle) {
	prev := a.prev
	a.prev = &c
	if prev == nil {
		return
	}

	up, down := c.High-prev.High, prev.Low-c.Low
	var pdm, mdm float64
	if up > down && up > 0 {
		pdm = up
	}
	if down > up && down > 0 {
		mdm = down
	}

	// DX only counts once the smoothed inputs were seeded before this candle.
	seeded := a.tr.ready()
	a.tr.add(trueRange(c, *prev))
	a.plusDM.add(pdm)
	a.minusDM.add(mdm)
	if !seeded {
		return
	}

	var dx float64
	pdi, mdi := a.PlusDI(), a.MinusDI()
	if sum := pdi + mdi; sum != 0 {
		dx = 100 * math.Abs(pdi-mdi) / sum
	}
	a.dx.add(dx)
}
