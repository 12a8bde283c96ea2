package backtest

import (
	"context"

	"backlab/internal/domain"
)

// runVectorized calls the strategy's whole-series signal function once,
// aligns the result to the price index, and compounds per-bar strategy
// returns into an equity curve. The signal is applied one bar after it was
// observed; acting on the same bar's close would be look-ahead.
func (e *Engine) runVectorized(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	points, err := req.Strategy.Signal(req.Bars, req.Params)
	if err != nil {
		e.log.Warn("signal function failed, returning empty result",
			"strategy", req.Strategy.Name(), "symbol", req.Symbol, "error", err)
		return e.emptyResult(req), nil
	}
	if len(points) == 0 {
		e.log.Warn("signal function produced no signals",
			"strategy", req.Strategy.Name(), "symbol", req.Symbol)
		return e.emptyResult(req), nil
	}

	signals := alignSignals(req.Bars, points)
	lagged := shiftSignals(signals)

	// Equity compounds the lagged signal against close-to-close returns,
	// seeded at initial capital.
	equity := make([]domain.EquityPoint, len(req.Bars))
	value := e.cfg.InitialCapital
	for i, b := range req.Bars {
		if i > 0 {
			prev := req.Bars[i-1].Close
			if prev != 0 {
				value *= 1 + lagged[i]*(b.Close-prev)/prev
			}
		}
		equity[i] = domain.EquityPoint{Time: b.Timestamp, Value: value}
	}

	// Trade accounting follows the unlagged series: a trade is booked at the
	// bar its signal appeared on.
	trades := e.reconstructTrades(req.Bars, signals, req.Symbol, req.Strategy.Name())

	return e.computeResult(req, equity, trades, req.Bars), nil
}
