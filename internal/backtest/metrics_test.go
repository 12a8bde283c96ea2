package backtest

import (
	"math"
	"testing"
	"time"

	"backlab/internal/domain"
	"backlab/internal/strategy"
)

func equityFrom(values []float64) []domain.EquityPoint {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]domain.EquityPoint, len(values))
	for i, v := range values {
		points[i] = domain.EquityPoint{Time: start.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return points
}

func TestDrawdownCurveInvariant(t *testing.T) {
	for _, values := range [][]float64{
		{100, 110, 105, 120, 90, 130},
		{100, 100, 100},
		{100, 90, 80, 70},
		{50, 60, 70, 80},
	} {
		dd := drawdownCurve(equityFrom(values))
		for i, v := range dd {
			if v > 0 {
				t.Errorf("drawdown[%d] = %v for %v, want <= 0", i, v, values)
			}
		}
	}
}

func TestMaxDrawdown(t *testing.T) {
	eq := equityFrom([]float64{100, 120, 90, 110, 130})
	dd := drawdownCurve(eq)

	pct, value := maxDrawdown(eq, dd)
	if want := (90.0 - 120.0) / 120.0; math.Abs(pct-want) > 1e-12 {
		t.Errorf("max drawdown pct = %v, want %v", pct, want)
	}
	if value != 30 {
		t.Errorf("max drawdown value = %v, want 30", value)
	}
}

func TestMaxDrawdownMonotonicCurveIsZero(t *testing.T) {
	eq := equityFrom([]float64{100, 101, 102, 103})
	dd := drawdownCurve(eq)
	pct, value := maxDrawdown(eq, dd)
	if pct != 0 || value != 0 {
		t.Errorf("monotonic curve drawdown = (%v, %v), want (0, 0)", pct, value)
	}
}

func TestDrawdownDuration(t *testing.T) {
	// Under water at indices 2-4 (3 bars) and 6 (1 bar).
	dd := []float64{0, 0, -0.1, -0.05, -0.01, 0, -0.2, 0}
	if got := longestRun(dd, func(v float64) bool { return v < 0 }); got != 3 {
		t.Errorf("longest drawdown run = %d, want 3", got)
	}
}

func TestPercentileLinearInterpolation(t *testing.T) {
	values := []float64{4, 1, 3, 2} // sorted: 1 2 3 4

	if got := percentile(values, 0); got != 1 {
		t.Errorf("p0 = %v, want 1", got)
	}
	if got := percentile(values, 100); got != 4 {
		t.Errorf("p100 = %v, want 4", got)
	}
	// Rank 0.05*3 = 0.15 between 1 and 2.
	if got, want := percentile(values, 5), 1.15; math.Abs(got-want) > 1e-12 {
		t.Errorf("p5 = %v, want %v", got, want)
	}
	if got := percentile(nil, 5); got != 0 {
		t.Errorf("p5 of empty = %v, want 0", got)
	}
}

func TestTailMean(t *testing.T) {
	returns := []float64{-0.05, -0.02, 0.01, 0.03}
	if got, want := tailMean(returns, -0.02), (-0.05-0.02)/2; math.Abs(got-want) > 1e-12 {
		t.Errorf("tail mean = %v, want %v", got, want)
	}
	if got := tailMean(returns, -1); got != 0 {
		t.Errorf("empty tail mean = %v, want 0", got)
	}
}

func TestSharpeZeroVolatility(t *testing.T) {
	if got := sharpeRatio([]float64{0.01, 0.01, 0.01}); got != 0 {
		t.Errorf("zero-volatility sharpe = %v, want 0", got)
	}
	if got := sharpeRatio(nil); got != 0 {
		t.Errorf("empty sharpe = %v, want 0", got)
	}
}

func TestSortinoNoNegativeReturns(t *testing.T) {
	if got := sortinoRatio([]float64{0.01, 0.02, 0.03}); got != 0 {
		t.Errorf("sortino without losses = %v, want 0", got)
	}
}

func TestPeriodReturns(t *testing.T) {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	points := []domain.EquityPoint{
		{Time: jan, Value: 100},
		{Time: jan.AddDate(0, 0, 10), Value: 110}, // Jan end: 110
		{Time: jan.AddDate(0, 1, 0), Value: 121},  // Feb end: 121
		{Time: jan.AddDate(0, 2, 0), Value: 121},  // Mar end: 121
	}

	monthly := periodReturns(points, monthKey)
	if len(monthly) != 2 {
		t.Fatalf("got %d monthly returns, want 2", len(monthly))
	}
	if monthly[0].Period != "2024-02" || math.Abs(monthly[0].Return-0.1) > 1e-12 {
		t.Errorf("feb return = %+v, want {2024-02 0.1}", monthly[0])
	}
	if monthly[1].Period != "2024-03" || monthly[1].Return != 0 {
		t.Errorf("mar return = %+v, want {2024-03 0}", monthly[1])
	}
}

func TestProfitFactorRules(t *testing.T) {
	e := mustEngine(t, DefaultConfig())
	bars := uptrendBars(5)
	req := Request{Symbol: "TEST", Strategy: constantSignal(0), Params: strategy.DefaultParams(), Mode: ModeVectorized, Bars: bars}

	mk := func(pnls ...float64) []domain.Trade {
		trades := make([]domain.Trade, len(pnls))
		for i, p := range pnls {
			trades[i] = domain.Trade{NetPnL: p}
		}
		return trades
	}

	// No trades: profit factor 0, not NaN.
	res := e.buildResult(req, nil, nil, nil, bars)
	if res.ProfitFactor != 0 {
		t.Errorf("no-trade profit factor = %v, want 0", res.ProfitFactor)
	}

	// Wins only: +Inf.
	res = e.buildResult(req, nil, nil, mk(5, 3), bars)
	if !math.IsInf(res.ProfitFactor, 1) {
		t.Errorf("all-win profit factor = %v, want +Inf", res.ProfitFactor)
	}

	// Mixed: gross profit / |gross loss|.
	res = e.buildResult(req, nil, nil, mk(6, -3), bars)
	if res.ProfitFactor != 2 {
		t.Errorf("mixed profit factor = %v, want 2", res.ProfitFactor)
	}

	// Break-even trades count in neither bucket.
	res = e.buildResult(req, nil, nil, mk(0, 0), bars)
	if res.WinningTrades != 0 || res.LosingTrades != 0 || res.TotalTrades != 2 {
		t.Errorf("break-even partition = %d/%d of %d, want 0/0 of 2",
			res.WinningTrades, res.LosingTrades, res.TotalTrades)
	}
	if res.ProfitFactor != 0 {
		t.Errorf("break-even profit factor = %v, want 0", res.ProfitFactor)
	}
}

func TestJSONSafeClampsProfitFactor(t *testing.T) {
	r := &Result{ProfitFactor: math.Inf(1)}
	if got := r.JSONSafe().ProfitFactor; got != math.MaxFloat64 {
		t.Errorf("clamped profit factor = %v, want MaxFloat64", got)
	}
	if !math.IsInf(r.ProfitFactor, 1) {
		t.Error("JSONSafe must not mutate the original result")
	}
}
