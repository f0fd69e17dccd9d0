package indicators

import (
	"fmt"

	"github.com/rustyeddy/stratlab/pricing"
)

// Bollinger holds SMA(period) ± k standard deviations of the close.
// Value returns the middle band.
type Bollinger struct {
	period int
	k      float64
	ma     *SimpleMA
	sd     *StdDev
}

func NewBollinger(period int, k float64) *Bollinger {
	return &Bollinger{period: period, k: k, ma: NewMA(period), sd: NewStdDev(period)}
}

func (b *Bollinger) Name() string { return fmt.Sprintf("BBANDS(%d,%g)", b.period, b.k) }
func (b *Bollinger) Warmup() int  { return b.period }
func (b *Bollinger) Ready() bool  { return b.ma.Ready() }

func (b *Bollinger) Reset() {
	b.ma.Reset()
	b.sd.Reset()
}

func (b *Bollinger) Update(c pricing.Candle) {
	b.ma.Update(c)
	b.sd.Update(c)
}

func (b *Bollinger) Value() float64 { return b.ma.Value() }
func (b *Bollinger) Upper() float64 { return b.ma.Value() + b.k*b.sd.Value() }
func (b *Bollinger) Lower() float64 { return b.ma.Value() - b.k*b.sd.Value() }

// MACD is EMA(fast) - EMA(slow) with an EMA(signal) signal line.
// Value returns the histogram (macd - signal).
type MACD struct {
	fastP, slowP, signalP int

	fast   *ExponentialMA
	slow   *ExponentialMA
	signal *ExponentialMA
	line   float64
}

func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastP:   fast,
		slowP:   slow,
		signalP: signal,
		fast:    NewEMA(fast),
		slow:    NewEMA(slow),
		signal:  NewEMA(signal),
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fastP, m.slowP, m.signalP)
}

func (m *MACD) Warmup() int { return m.slowP + m.signalP - 1 }

func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
	m.line = 0
}

func (m *MACD) Update(c pricing.Candle) {
	m.fast.Update(c)
	m.slow.Update(c)
	if !m.fast.Ready() || !m.slow.Ready() {
		return
	}
	m.line = m.fast.Value() - m.slow.Value()
	m.signal.push(m.line)
}

func (m *MACD) Ready() bool { return m.signal.Ready() }

func (m *MACD) Line() float64   { return m.line }
func (m *MACD) Signal() float64 { return m.signal.Value() }

func (m *MACD) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.line - m.signal.Value()
}

// Stochastic is the slow stochastic oscillator: raw %K over kPeriod bars,
// smoothed by an SMA(slowK); %D is an SMA(slowD) of slow %K.
// Value returns slow %K.
type Stochastic struct {
	kPeriod, slowK, slowD int

	hh    *Highest
	ll    *Lowest
	kWin  *window
	dWin  *window
	slowV float64
}

func NewStochastic(kPeriod, slowK, slowD int) *Stochastic {
	return &Stochastic{
		kPeriod: kPeriod,
		slowK:   slowK,
		slowD:   slowD,
		hh:      NewHighest(kPeriod, High),
		ll:      NewLowest(kPeriod, Low),
		kWin:    newWindow(slowK),
		dWin:    newWindow(slowD),
	}
}

func (s *Stochastic) Name() string {
	return fmt.Sprintf("STOCH(%d,%d,%d)", s.kPeriod, s.slowK, s.slowD)
}

func (s *Stochastic) Warmup() int { return s.kPeriod + s.slowK - 1 }

func (s *Stochastic) Reset() {
	s.hh.Reset()
	s.ll.Reset()
	s.kWin.reset()
	s.dWin.reset()
	s.slowV = 0
}

func (s *Stochastic) Update(c pricing.Candle) {
	s.hh.Update(c)
	s.ll.Update(c)
	if !s.hh.Ready() {
		return
	}

	hi, lo := s.hh.Value(), s.ll.Value()
	raw := 50.0
	if hi > lo {
		raw = 100 * (c.Close - lo) / (hi - lo)
	}
	s.kWin.push(raw)
	if s.kWin.full() {
		s.slowV = s.kWin.mean()
		s.dWin.push(s.slowV)
	}
}

func (s *Stochastic) Ready() bool { return s.kWin.full() }

func (s *Stochastic) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return s.slowV
}

// D returns slow %D once enough slow %K values exist.
func (s *Stochastic) D() float64 {
	if !s.dWin.full() {
		return 0
	}
	return s.dWin.mean()
}
