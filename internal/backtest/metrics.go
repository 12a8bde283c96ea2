package backtest

import (
	"fmt"
	"math"
	"sort"

	"backlab/internal/domain"
)

// Annualization constants. The risk-free rate is fixed at 2% per year,
// applied per trading day.
const (
	annualTradingDays = 252
	annualRiskFree    = 0.02
)

// computeResult derives the full Result from an equity curve and trade list.
func (e *Engine) computeResult(req Request, equity []domain.EquityPoint, trades []domain.Trade, bars []domain.Bar) *Result {
	return e.buildResult(req, equity, equity, trades, bars)
}

// buildResult is the metrics core. retained is the equity curve stored on the
// Result; metricCurve is the curve statistics are computed from. The two
// differ only for walk-forward runs, where each test window restarts at
// initial capital and the metric curve chains the segments so window
// boundaries are not mistaken for drawdowns.
func (e *Engine) buildResult(req Request, retained, metricCurve []domain.EquityPoint, trades []domain.Trade, bars []domain.Bar) *Result {
	res := e.emptyResult(req)
	res.EquityCurve = retained
	res.Trades = trades

	// ---------------------------------------------------------------------
	// Trade analysis
	// ---------------------------------------------------------------------

	var grossProfit, grossLoss, sumWin, sumLoss, sumDuration float64
	for _, t := range trades {
		res.TotalPnL += t.NetPnL
		sumDuration += t.DurationHours
		switch {
		case t.NetPnL > 0:
			res.WinningTrades++
			grossProfit += t.NetPnL
			sumWin += t.NetPnL
			if t.NetPnL > res.LargestWin {
				res.LargestWin = t.NetPnL
			}
		case t.NetPnL < 0:
			res.LosingTrades++
			grossLoss += t.NetPnL
			sumLoss += t.NetPnL
			if t.NetPnL < res.LargestLoss {
				res.LargestLoss = t.NetPnL
			}
		}
	}
	res.TotalTrades = len(trades)
	res.TotalPnLPct = res.TotalPnL / e.cfg.InitialCapital
	res.WinRate = safeDiv(float64(res.WinningTrades), float64(res.TotalTrades))
	res.AvgWin = safeDiv(sumWin, float64(res.WinningTrades))
	res.AvgLoss = safeDiv(sumLoss, float64(res.LosingTrades))
	res.AvgTradeDurationHours = safeDiv(sumDuration, float64(res.TotalTrades))

	switch {
	case res.TotalTrades == 0 || grossProfit == 0 && grossLoss == 0:
		res.ProfitFactor = 0
	case grossLoss == 0:
		res.ProfitFactor = math.Inf(1)
	default:
		res.ProfitFactor = grossProfit / math.Abs(grossLoss)
	}

	lossRate := safeDiv(float64(res.LosingTrades), float64(res.TotalTrades))
	res.Expectancy = res.WinRate*res.AvgWin + lossRate*res.AvgLoss

	if len(bars) > 1 {
		months := bars[len(bars)-1].Timestamp.Sub(bars[0].Timestamp).Hours() / (24 * 30.44)
		if months > 0 {
			res.TradesPerMonth = float64(res.TotalTrades) / months
		}
	}

	if len(metricCurve) == 0 {
		return res
	}

	// ---------------------------------------------------------------------
	// Equity-curve risk metrics
	// ---------------------------------------------------------------------

	res.DrawdownCurve = drawdownCurve(metricCurve)
	res.MaxDrawdownPct, res.MaxDrawdown = maxDrawdown(metricCurve, res.DrawdownCurve)
	res.MaxDrawdownDuration = longestRun(res.DrawdownCurve, func(v float64) bool { return v < 0 })

	returns := barReturns(metricCurve)
	res.VaR95 = percentile(returns, 5)
	res.CVaR95 = tailMean(returns, res.VaR95)
	res.Sharpe = sharpeRatio(returns)
	res.Sortino = sortinoRatio(returns)
	res.Calmar = safeDiv(res.TotalPnLPct, math.Abs(res.MaxDrawdownPct))

	res.MonthlyReturns = periodReturns(metricCurve, monthKey)
	res.YearlyReturns = periodReturns(metricCurve, yearKey)

	return res
}

// barReturns computes the per-bar percent change of the equity series.
func barReturns(equity []domain.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (equity[i].Value-prev)/prev)
	}
	return returns
}

// drawdownCurve evaluates (equity - running max) / running max pointwise.
func drawdownCurve(equity []domain.EquityPoint) []float64 {
	dd := make([]float64, len(equity))
	peak := math.Inf(-1)
	for i, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if peak != 0 {
			dd[i] = (p.Value - peak) / peak
		}
	}
	return dd
}

// maxDrawdown returns the most negative drawdown percent and the largest
// peak-to-trough decline in currency (positive magnitude).
func maxDrawdown(equity []domain.EquityPoint, dd []float64) (pct, value float64) {
	peak := math.Inf(-1)
	for i, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if dd[i] < pct {
			pct = dd[i]
		}
		if decline := peak - p.Value; decline > value {
			value = decline
		}
	}
	return pct, value
}

// longestRun returns the length of the longest contiguous run of values
// satisfying pred.
func longestRun(values []float64, pred func(float64) bool) int {
	longest, current := 0, 0
	for _, v := range values {
		if pred(v) {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}

// percentile returns the p-th percentile of values using linear interpolation
// between order statistics.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// tailMean returns the mean of all returns at or below the cutoff.
func tailMean(returns []float64, cutoff float64) float64 {
	sum, n := 0.0, 0
	for _, r := range returns {
		if r <= cutoff {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// sharpeRatio annualizes mean excess return over return volatility.
func sharpeRatio(returns []float64) float64 {
	sd := stdDev(returns)
	if sd == 0 {
		return 0
	}
	excess := mean(returns) - annualRiskFree/annualTradingDays
	return excess / sd * math.Sqrt(annualTradingDays)
}

// sortinoRatio is Sharpe with volatility taken over negative returns only.
func sortinoRatio(returns []float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	sd := stdDev(downside)
	if sd == 0 {
		return 0
	}
	excess := mean(returns) - annualRiskFree/annualTradingDays
	return excess / sd * math.Sqrt(annualTradingDays)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation (n-1 denominator).
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// monthKey and yearKey label calendar periods for equity resampling.
func monthKey(p domain.EquityPoint) string {
	return fmt.Sprintf("%04d-%02d", p.Time.Year(), int(p.Time.Month()))
}

func yearKey(p domain.EquityPoint) string {
	return fmt.Sprintf("%04d", p.Time.Year())
}

// periodReturns resamples the equity curve to period-end values and takes the
// percent change between consecutive periods.
func periodReturns(equity []domain.EquityPoint, key func(domain.EquityPoint) string) []PeriodReturn {
	if len(equity) == 0 {
		return nil
	}

	// Equity points are time-ordered, so the last point seen per key is the
	// period-end value.
	var keys []string
	ends := make(map[string]float64)
	for _, p := range equity {
		k := key(p)
		if _, seen := ends[k]; !seen {
			keys = append(keys, k)
		}
		ends[k] = p.Value
	}

	var out []PeriodReturn
	for i := 1; i < len(keys); i++ {
		prev := ends[keys[i-1]]
		ret := 0.0
		if prev != 0 {
			ret = (ends[keys[i]] - prev) / prev
		}
		out = append(out, PeriodReturn{Period: keys[i], Return: ret})
	}
	return out
}

// safeDiv guards the zero-denominator case by returning 0, never NaN.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// clampFinite maps non-finite floats to JSON-representable values.
func clampFinite(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	case math.IsNaN(v):
		return 0
	}
	return v
}
