package backtest

import (
	"context"

	"backlab/internal/domain"
)

// window is one walk-forward train/test split, expressed as half-open index
// ranges into the bar series. Test ranges never overlap across windows;
// training ranges may.
type window struct {
	trainStart, trainEnd int // [trainStart, trainEnd)
	testStart, testEnd   int // [testStart, testEnd)
}

// splitWindows slides (train, test) windows over n bars, advancing by the
// test period each step. A shorter final test window is kept as long as it is
// non-empty.
func splitWindows(n, train, test int) []window {
	var windows []window
	for start := 0; start+train < n; start += test {
		w := window{
			trainStart: start,
			trainEnd:   start + train,
			testStart:  start + train,
			testEnd:    start + train + test,
		}
		if w.testEnd > n {
			w.testEnd = n
		}
		windows = append(windows, w)
	}
	return windows
}

// runWalkForward reoptimizes parameters on each training window, runs the
// optimized parameters vectorized on the out-of-sample test window, and
// stitches trades and equity segments across windows. Each test window
// restarts its equity at initial capital; for metric computation the segments
// are chained onto a continuous curve so window boundaries do not read as
// drawdowns. A window whose backtest fails is logged and skipped.
func (e *Engine) runWalkForward(ctx context.Context, req Request) (*Result, error) {
	windows := splitWindows(len(req.Bars), e.cfg.TrainPeriod, e.cfg.TestPeriod)
	if len(windows) == 0 {
		e.log.Warn("not enough bars for a single walk-forward window",
			"bars", len(req.Bars), "train", e.cfg.TrainPeriod, "test", e.cfg.TestPeriod)
		return e.emptyResult(req), nil
	}

	var (
		stitched []domain.EquityPoint // raw segments, each restarting at initial capital
		chained  []domain.EquityPoint // segments compounded end-to-end
		trades   []domain.Trade
		scale    = 1.0
	)

	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		params, candidates := e.optimize(ctx, req.Bars[w.trainStart:w.trainEnd], req)
		e.log.Debug("walk-forward window optimized",
			"window", i, "candidates", len(candidates),
			"fast", params.FastPeriod, "slow", params.SlowPeriod)

		seg, err := e.runVectorized(ctx, Request{
			Symbol:   req.Symbol,
			Bars:     req.Bars[w.testStart:w.testEnd],
			Strategy: req.Strategy,
			Params:   params,
			Mode:     ModeVectorized,
		})
		if err != nil {
			e.log.Warn("walk-forward window failed, skipping",
				"window", i, "error", err)
			continue
		}

		trades = append(trades, seg.Trades...)
		stitched = append(stitched, seg.EquityCurve...)
		for _, p := range seg.EquityCurve {
			chained = append(chained, domain.EquityPoint{
				Time:  p.Time,
				Value: p.Value * scale,
			})
		}
		if len(seg.EquityCurve) > 0 {
			scale *= seg.EquityCurve[len(seg.EquityCurve)-1].Value / e.cfg.InitialCapital
		}
	}

	return e.buildResult(req, stitched, chained, trades, req.Bars), nil
}
