package backtest

import (
	"context"
	"errors"
	"math"
	"sync"

	"backlab/internal/domain"
	"backlab/internal/strategy"
)

// errEmptyCandidate marks a grid point whose backtest produced no result.
var errEmptyCandidate = errors.New("backtest: candidate produced no signals")

// Fixed fast/slow grids for the walk-forward optimizer. Combinations where
// the fast window is not strictly shorter than the slow one are pruned.
var (
	fastGrid = []int{5, 10, 20, 50}
	slowGrid = []int{20, 50, 100, 200}
)

// optimizerWorkers bounds concurrent candidate evaluations. Candidates share
// nothing, so they parallelize freely.
const optimizerWorkers = 4

// Candidate records the outcome of one optimizer grid point, so callers can
// distinguish skipped failures from evaluated candidates.
type Candidate struct {
	Params strategy.Params
	Sharpe float64
	Err    error
}

// optimize grid-searches fast/slow window lengths over the training slice,
// scoring each combination by the Sharpe ratio of a vectorized backtest.
// Failed candidates are skipped, never fatal. If no candidate evaluates, the
// base parameters are returned unchanged. Ties go to the first-seen grid
// point.
func (e *Engine) optimize(ctx context.Context, bars []domain.Bar, req Request) (strategy.Params, []Candidate) {
	var grid []strategy.Params
	for _, fast := range fastGrid {
		for _, slow := range slowGrid {
			if fast >= slow {
				continue
			}
			grid = append(grid, strategy.Params{FastPeriod: fast, SlowPeriod: slow})
		}
	}

	candidates := make([]Candidate, len(grid))

	var wg sync.WaitGroup
	sem := make(chan struct{}, optimizerWorkers)
	for i, p := range grid {
		if ctx.Err() != nil {
			candidates[i] = Candidate{Params: p, Err: ctx.Err()}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p strategy.Params) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := e.runVectorized(ctx, Request{
				Symbol:   req.Symbol,
				Bars:     bars,
				Strategy: req.Strategy,
				Params:   p,
				Mode:     ModeVectorized,
			})
			if err != nil {
				candidates[i] = Candidate{Params: p, Err: err}
				return
			}
			if len(res.EquityCurve) == 0 {
				// Signal function produced nothing for this combination.
				candidates[i] = Candidate{Params: p, Err: errEmptyCandidate}
				return
			}
			candidates[i] = Candidate{Params: p, Sharpe: res.Sharpe}
		}(i, p)
	}
	wg.Wait()

	best := req.Params
	bestSharpe := math.Inf(-1)
	improved := false
	for _, c := range candidates {
		if c.Err != nil {
			e.log.Debug("optimizer candidate skipped",
				"fast", c.Params.FastPeriod, "slow", c.Params.SlowPeriod, "error", c.Err)
			continue
		}
		if c.Sharpe > bestSharpe {
			bestSharpe = c.Sharpe
			best = c.Params
			improved = true
		}
	}
	if !improved {
		return req.Params, candidates
	}
	return best, candidates
}
