package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/stratlab/pricing"
)

// Highest is the rolling maximum of a price field (ta.MAX).
type Highest struct {
	period int
	field  Field
	w      *window
}

func NewHighest(period int, field Field) *Highest {
	return &Highest{period: period, field: field, w: newWindow(period)}
}

func (h *Highest) Name() string            { return fmt.Sprintf("MAX(%d)", h.period) }
func (h *Highest) Warmup() int             { return h.period }
func (h *Highest) Reset()                  { h.w.reset() }
func (h *Highest) Ready() bool             { return h.w.full() }
func (h *Highest) Update(c pricing.Candle) { h.w.push(h.field(c)) }

func (h *Highest) Value() float64 {
	if !h.Ready() {
		return 0
	}
	m := math.Inf(-1)
	for _, v := range h.w.vals {
		m = math.Max(m, v)
	}
	return m
}

// Lowest is the rolling minimum of a price field (ta.MIN).
type Lowest struct {
	period int
	field  Field
	w      *window
}

func NewLowest(period int, field Field) *Lowest {
	return &Lowest{period: period, field: field, w: newWindow(period)}
}

func (l *Lowest) Name() string            { return fmt.Sprintf("MIN(%d)", l.period) }
func (l *Lowest) Warmup() int             { return l.period }
func (l *Lowest) Reset()                  { l.w.reset() }
func (l *Lowest) Ready() bool             { return l.w.full() }
func (l *Lowest) Update(c pricing.Candle) { l.w.push(l.field(c)) }

func (l *Lowest) Value() float64 {
	if !l.Ready() {
		return 0
	}
	m := math.Inf(1)
	for _, v := range l.w.vals {
		m = math.Min(m, v)
	}
	return m
}

// Momentum is close minus the close period bars ago (ta.MOM).
type Momentum struct {
	period int
	w      *window
}

func NewMomentum(period int) *Momentum {
	return &Momentum{period: period, w: newWindow(period + 1)}
}

func (m *Momentum) Name() string            { return fmt.Sprintf("MOM(%d)", m.period) }
func (m *Momentum) Warmup() int             { return m.period + 1 }
func (m *Momentum) Reset()                  { m.w.reset() }
func (m *Momentum) Ready() bool             { return m.w.full() }
func (m *Momentum) Update(c pricing.Candle) { m.w.push(c.Close) }

func (m *Momentum) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.w.vals[len(m.w.vals)-1] - m.w.first()
}
