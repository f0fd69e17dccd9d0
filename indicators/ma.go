package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/stratlab/pricing"
)

// SimpleMA is a streaming Simple Moving Average of the close.
type SimpleMA struct {
	period int
	w      *window
}

// NewMA creates a new Simple Moving Average indicator with the given period
func NewMA(period int) *SimpleMA {
	return &SimpleMA{period: period, w: newWindow(period)}
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("MA(%d)", m.period) }
func (m *SimpleMA) Warmup() int  { return m.period }
func (m *SimpleMA) Reset()       { m.w.reset() }
func (m *SimpleMA) Ready() bool  { return m.w.full() }

func (m *SimpleMA) Update(c pricing.Candle) { m.w.push(c.Close) }

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.w.mean()
}

// ExponentialMA is a streaming Exponential Moving Average seeded with the
// SMA of the first period values.
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

// NewEMA creates a new Exponential Moving Average indicator with the given period
func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }
func (e *ExponentialMA) Warmup() int  { return e.period }

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *ExponentialMA) Update(c pricing.Candle) { e.push(c.Close) }

func (e *ExponentialMA) push(v float64) {
	if e.count < e.period {
		e.warmupSum += v
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (v-e.ema)*e.multiplier + e.ema
}

func (e *ExponentialMA) Ready() bool { return e.count >= e.period }

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// StdDev is the rolling population standard deviation of the close.
type StdDev struct {
	period int
	w      *window
}

func NewStdDev(period int) *StdDev {
	return &StdDev{period: period, w: newWindow(period)}
}

func (s *StdDev) Name() string            { return fmt.Sprintf("STDDEV(%d)", s.period) }
func (s *StdDev) Warmup() int             { return s.period }
func (s *StdDev) Reset()                  { s.w.reset() }
func (s *StdDev) Ready() bool             { return s.w.full() }
func (s *StdDev) Update(c pricing.Candle) { s.w.push(c.Close) }

func (s *StdDev) Value() float64 {
	if !s.Ready() {
		return 0
	}
	mean := s.w.mean()
	ss := 0.0
	for _, v := range s.w.vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(s.w.vals)))
}
