package backtest

import (
	"context"

	"backlab/internal/domain"
	"backlab/internal/strategy"
)

// runEventDriven iterates bars one at a time, calling the strategy with only
// the data visible up to and including the current bar plus a mutable state
// object, so strategies with memory are supported. Position lifecycle follows
// the reconstructor semantics inline; equity is marked to market every bar.
// A trailing open position is force-closed against the last bar.
func (e *Engine) runEventDriven(ctx context.Context, req Request) (*Result, error) {
	state := strategy.NewState()
	last := len(req.Bars) - 1

	var (
		pos      *position
		trades   []domain.Trade
		realized float64
		equity   = make([]domain.EquityPoint, 0, len(req.Bars))
	)

	closeAt := func(i int) {
		t := e.closeTrade(req.Bars, pos, i, req.Symbol, req.Strategy.Name())
		trades = append(trades, t)
		realized += t.NetPnL
		pos = nil
	}

	for i, bar := range req.Bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if pos != nil {
			pos.track(bar.Close)
		}

		sig, ok := req.Strategy.OnBar(req.Bars[:i+1], state, req.Params)
		if ok {
			switch {
			case pos == nil:
				if sig != 0 && i < last {
					pos = e.openPosition(req.Bars, i, sig)
				}
			case sig == 0:
				closeAt(i)
			case flipsAgainst(sig, pos.side):
				closeAt(i)
				if i < last {
					pos = e.openPosition(req.Bars, i, sig)
				}
			}
		}

		// Exit check runs every bar, signal or not: the series end is the
		// one unconditional exit.
		if pos != nil && i == last {
			closeAt(i)
		}

		value := e.cfg.InitialCapital + realized
		if pos != nil {
			value += pos.unrealized(bar.Close)
		}
		equity = append(equity, domain.EquityPoint{Time: bar.Timestamp, Value: value})
	}

	return e.computeResult(req, equity, trades, req.Bars), nil
}
