package backtest

import (
	"math"

	"backlab/internal/domain"
)

// position is the engine-internal state of one open trade while the
// reconstructor walks the series. It is created on a non-zero signal, mutated
// every bar for excursion tracking, and converted into a domain.Trade on
// close.
type position struct {
	entryIdx   int
	side       domain.Side
	entryPrice float64
	quantity   float64
	mfe        float64 // best unrealized pnl seen
	mae        float64 // worst unrealized pnl seen
}

// unrealized returns the sign-aware open pnl at the given price.
func (p *position) unrealized(price float64) float64 {
	if p.side == domain.SideLong {
		return (price - p.entryPrice) * p.quantity
	}
	return (p.entryPrice - price) * p.quantity
}

// track updates the running excursion extremes at the given price.
func (p *position) track(price float64) {
	u := p.unrealized(price)
	if u > p.mfe {
		p.mfe = u
	}
	if u < p.mae {
		p.mae = u
	}
}

// alignSignals re-indexes a signal series onto the bar index by timestamp.
// Bars with no matching signal point get 0 (flat). Signal points that match
// no bar are dropped.
func alignSignals(bars []domain.Bar, points []domain.SignalPoint) []float64 {
	byTime := make(map[int64]float64, len(points))
	for _, sp := range points {
		byTime[sp.Time.UnixNano()] = sp.Value
	}

	aligned := make([]float64, len(bars))
	for i, b := range bars {
		aligned[i] = byTime[b.Timestamp.UnixNano()]
	}
	return aligned
}

// shiftSignals delays a signal series by one bar, so a signal observed at bar
// i is acted on at bar i+1. The first slot becomes flat.
func shiftSignals(signals []float64) []float64 {
	shifted := make([]float64, len(signals))
	copy(shifted[1:], signals[:len(signals)-1])
	return shifted
}

// closeTrade converts an open position into an immutable Trade closed at bar
// exitIdx, applying the full round-trip cost model.
func (e *Engine) closeTrade(bars []domain.Bar, pos *position, exitIdx int, symbol, strat string) domain.Trade {
	entry := bars[pos.entryIdx]
	exit := bars[exitIdx]
	exitPrice := exit.Close

	gross := pos.unrealized(exitPrice)
	hours := exit.Timestamp.Sub(entry.Timestamp).Hours()
	costs := e.costs.RoundTrip(pos.entryPrice, pos.quantity, hours)
	net := gross - costs

	pnlPct := 0.0
	if notional := pos.entryPrice * pos.quantity; notional != 0 {
		pnlPct = net / notional
	}

	return domain.Trade{
		Symbol:        symbol,
		Strategy:      strat,
		Side:          pos.side,
		EntryTime:     entry.Timestamp,
		ExitTime:      exit.Timestamp,
		EntryPrice:    pos.entryPrice,
		ExitPrice:     exitPrice,
		Quantity:      pos.quantity,
		GrossPnL:      gross,
		NetPnL:        net,
		PnLPct:        pnlPct,
		DurationHours: hours,
		MaxFavorable:  pos.mfe,
		MaxAdverse:    pos.mae,
	}
}

// openPosition creates a position from a non-zero signal at bar i. Signal
// magnitude scales quantity by the configured unit size.
func (e *Engine) openPosition(bars []domain.Bar, i int, signal float64) *position {
	side := domain.SideLong
	if signal < 0 {
		side = domain.SideShort
	}
	return &position{
		entryIdx:   i,
		side:       side,
		entryPrice: bars[i].Close,
		quantity:   math.Abs(signal) * e.cfg.UnitSize,
	}
}

// flipsAgainst reports whether the signal opposes the open side.
func flipsAgainst(signal float64, side domain.Side) bool {
	return (side == domain.SideLong && signal < 0) ||
		(side == domain.SideShort && signal > 0)
}

// reconstructTrades converts an aligned signal series into discrete trades in
// a single forward pass. A sign flip closes the open position and opens the
// opposite one on the same bar. A trailing open position is force-closed
// against the final bar, and no position is ever opened on the final bar
// (it could never be acted on).
func (e *Engine) reconstructTrades(bars []domain.Bar, signals []float64, symbol, strat string) []domain.Trade {
	var trades []domain.Trade
	var pos *position
	last := len(bars) - 1

	for i, sig := range signals {
		if pos == nil {
			if sig != 0 && i < last {
				pos = e.openPosition(bars, i, sig)
			}
			continue
		}

		pos.track(bars[i].Close)

		switch {
		case sig == 0:
			trades = append(trades, e.closeTrade(bars, pos, i, symbol, strat))
			pos = nil
		case flipsAgainst(sig, pos.side):
			trades = append(trades, e.closeTrade(bars, pos, i, symbol, strat))
			pos = nil
			if i < last {
				pos = e.openPosition(bars, i, sig)
			}
		case i == last:
			// Series ended with the position still open.
			trades = append(trades, e.closeTrade(bars, pos, i, symbol, strat))
			pos = nil
		}
	}

	return trades
}
