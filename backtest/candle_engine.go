package backtest

import (
	"math"
	"time"

	"github.com/rustyeddy/stratlab/pricing"
	"github.com/rustyeddy/stratlab/strategies"
)

// Exit reasons recorded on trades.
const (
	ReasonSignal    = "Signal"
	ReasonReverse   = "Reverse"
	ReasonExit      = "Exit"
	ReasonStop      = "StopLoss"
	ReasonTake      = "TakeProfit"
	ReasonEndOfData = "EndOfData"
)

// Order is a strategy decision and how it was filled. Bar is the bar the
// decision was made on; fills happen at the next bar's open.
type Order struct {
	Bar        int       `json:"bar"`
	Time       time.Time `json:"time"`
	Signal     string    `json:"signal"`
	FillBar    int       `json:"fill_bar"`
	FillPrice  float64   `json:"fill_price"`
	Units      float64   `json:"units"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Trade is one closed round trip. Prices include commission.
type Trade struct {
	EntryBar   int       `json:"entry_bar"`
	ExitBar    int       `json:"exit_bar"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	Side       string    `json:"side"`
	Units      float64   `json:"units"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PNL        float64   `json:"pnl"`
	ReturnPct  float64   `json:"return_pct"`
	Reason     string    `json:"reason"`
}

// EquityPoint is the account value at a bar's close.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

type position struct {
	strategies.Position
	stop, take float64
	entryTime  time.Time
}

// engine is the single-instrument account simulation: one position at a
// time, all-in sizing in whole shares, commission applied to fill prices.
type engine struct {
	bars       []pricing.Candle
	commission float64

	cash   float64
	pos    position
	trades []Trade
	orders []Order
	equity []EquityPoint

	pending    *strategies.Decision
	pendingBar int
}

func newEngine(bars []pricing.Candle, cash, commission float64) *engine {
	return &engine{bars: bars, commission: commission, cash: cash}
}

// adjusted returns price shifted against the trader by the commission rate:
// higher when buying, lower when selling.
func (e *engine) adjusted(price float64, buying bool) float64 {
	if buying {
		return price * (1 + e.commission)
	}
	return price * (1 - e.commission)
}

func (e *engine) value(i int) float64 {
	v := e.cash
	if e.pos.Open() {
		v += float64(e.pos.Side) * e.pos.Units * e.bars[i].Close
	}
	return v
}

// fillPending executes the decision made on the previous bar at this bar's
// open. Orders are exclusive: any open position is closed first.
func (e *engine) fillPending(i int) {
	if e.pending == nil {
		return
	}
	d := *e.pending
	e.pending = nil

	bar := e.bars[i]
	o := Order{
		Bar:        e.pendingBar,
		Time:       e.bars[e.pendingBar].Time,
		Signal:     d.Signal.String(),
		FillBar:    i,
		StopLoss:   d.StopLoss,
		TakeProfit: d.TakeProfit,
		Reason:     d.Reason,
	}

	if d.Signal == strategies.Exit {
		if e.pos.Open() {
			o.Units = e.pos.Units
			o.FillPrice = e.close(i, bar.Open, ReasonExit)
		}
		e.orders = append(e.orders, o)
		return
	}

	side := strategies.Long
	if d.Signal == strategies.Sell {
		side = strategies.Short
	}

	if e.pos.Open() {
		reason := ReasonSignal
		if e.pos.Side != side {
			reason = ReasonReverse
		}
		e.close(i, bar.Open, reason)
	}

	price := e.adjusted(bar.Open, side == strategies.Long)
	units := math.Floor(e.cash / price)
	if units <= 0 || price <= 0 {
		// cannot afford a single share; the order is dropped
		e.orders = append(e.orders, o)
		return
	}

	e.cash -= float64(side) * units * price
	e.pos = position{
		Position: strategies.Position{
			Side:       side,
			EntryBar:   i,
			EntryPrice: price,
			Units:      units,
		},
		stop:      d.StopLoss,
		take:      d.TakeProfit,
		entryTime: bar.Time,
	}
	o.FillPrice = price
	o.Units = units
	e.orders = append(e.orders, o)
}

// close exits the open position at raw price px and returns the
// commission-adjusted exit price.
func (e *engine) close(i int, px float64, reason string) float64 {
	p := e.pos
	exit := e.adjusted(px, p.Side == strategies.Short)

	e.cash += float64(p.Side) * p.Units * exit
	pnl := float64(p.Side) * p.Units * (exit - p.EntryPrice)

	e.trades = append(e.trades, Trade{
		EntryBar:   p.EntryBar,
		ExitBar:    i,
		EntryTime:  p.entryTime,
		ExitTime:   e.bars[i].Time,
		Side:       p.Side.String(),
		Units:      p.Units,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exit,
		PNL:        pnl,
		ReturnPct:  float64(p.Side) * (exit/p.EntryPrice - 1) * 100,
		Reason:     reason,
	})
	e.pos = position{}
	return exit
}

// checkExit evaluates stop/take on the bar's range. A gap through the level
// fills at the open. If both stop and take hit in the same bar the stop wins.
func checkExit(p position, c pricing.Candle) (exitPx float64, reason string, hit bool) {
	if !p.Open() {
		return 0, "", false
	}

	hasStop := p.stop > 0
	hasTake := p.take > 0

	switch p.Side {
	case strategies.Long:
		if hasStop && c.Low <= p.stop {
			return math.Min(c.Open, p.stop), ReasonStop, true
		}
		if hasTake && c.High >= p.take {
			return math.Max(c.Open, p.take), ReasonTake, true
		}
	case strategies.Short:
		if hasStop && c.High >= p.stop {
			return math.Max(c.Open, p.stop), ReasonStop, true
		}
		if hasTake && c.Low <= p.take {
			return math.Min(c.Open, p.take), ReasonTake, true
		}
	}
	return 0, "", false
}

// step processes bar i before the strategy sees it: pending fill at the
// open, then intrabar exits for positions opened on earlier bars.
func (e *engine) step(i int) {
	e.fillPending(i)

	if e.pos.Open() && e.pos.EntryBar < i {
		if px, reason, hit := checkExit(e.pos, e.bars[i]); hit {
			e.close(i, px, reason)
		}
	}
}

func (e *engine) mark(i int) {
	e.equity = append(e.equity, EquityPoint{Time: e.bars[i].Time, Equity: e.value(i)})
}

func (e *engine) submit(i int, d strategies.Decision) {
	if d.Signal == strategies.Hold {
		return
	}
	if d.Signal == strategies.Exit && !e.pos.Open() {
		return
	}
	e.pending = &d
	e.pendingBar = i
}

// finish closes any open position at the last close. A decision made on
// the last bar has no bar left to fill on and is discarded.
func (e *engine) finish() {
	last := len(e.bars) - 1
	e.pending = nil
	if e.pos.Open() {
		e.close(last, e.bars[last].Close, ReasonEndOfData)
		e.equity[last].Equity = e.cash
	}
}
