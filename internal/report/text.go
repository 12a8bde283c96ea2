// Package report renders backtest results for humans. It is a pure
// presentation layer over the result record and carries no engine logic.
package report

import (
	"fmt"
	"math"
	"strings"

	"backlab/internal/backtest"
)

// maxRecentTrades bounds the Recent Trades section.
const maxRecentTrades = 10

// Render produces the plain-text report for a backtest result, with sections
// in a fixed order: Summary, Trade Analysis, Risk Metrics, Trading Metrics,
// Monthly Returns, Recent Trades.
func Render(res *backtest.Result) string {
	var b strings.Builder

	section(&b, "Summary")
	row(&b, "Symbol", res.Symbol)
	row(&b, "Strategy", res.Strategy)
	row(&b, "Mode", string(res.Mode))
	row(&b, "Parameters", fmt.Sprintf("fast=%d slow=%d", res.Params.FastPeriod, res.Params.SlowPeriod))
	row(&b, "Initial capital", money(res.InitialCapital))
	row(&b, "Total P&L", money(res.TotalPnL))
	row(&b, "Total return", pct(res.TotalPnLPct))

	section(&b, "Trade Analysis")
	row(&b, "Total trades", fmt.Sprintf("%d", res.TotalTrades))
	row(&b, "Winning / losing", fmt.Sprintf("%d / %d", res.WinningTrades, res.LosingTrades))
	row(&b, "Win rate", pct(res.WinRate))
	row(&b, "Avg win", money(res.AvgWin))
	row(&b, "Avg loss", money(res.AvgLoss))
	row(&b, "Largest win", money(res.LargestWin))
	row(&b, "Largest loss", money(res.LargestLoss))
	row(&b, "Profit factor", ratio(res.ProfitFactor))
	row(&b, "Expectancy", money(res.Expectancy))

	section(&b, "Risk Metrics")
	row(&b, "Max drawdown", money(res.MaxDrawdown))
	row(&b, "Max drawdown %", pct(res.MaxDrawdownPct))
	row(&b, "Drawdown duration", fmt.Sprintf("%d bars", res.MaxDrawdownDuration))
	row(&b, "VaR 95%", pct(res.VaR95))
	row(&b, "CVaR 95%", pct(res.CVaR95))
	row(&b, "Sharpe", ratio(res.Sharpe))
	row(&b, "Sortino", ratio(res.Sortino))
	row(&b, "Calmar", ratio(res.Calmar))

	section(&b, "Trading Metrics")
	row(&b, "Avg trade duration", fmt.Sprintf("%.1f hours", res.AvgTradeDurationHours))
	row(&b, "Trades per month", fmt.Sprintf("%.1f", res.TradesPerMonth))

	section(&b, "Monthly Returns")
	if len(res.MonthlyReturns) == 0 {
		fmt.Fprintf(&b, "  (none)\n")
	}
	for _, m := range res.MonthlyReturns {
		row(&b, m.Period, pct(m.Return))
	}

	section(&b, "Recent Trades")
	trades := res.Trades
	if len(trades) > maxRecentTrades {
		trades = trades[len(trades)-maxRecentTrades:]
	}
	if len(trades) == 0 {
		fmt.Fprintf(&b, "  (none)\n")
	}
	for _, t := range trades {
		fmt.Fprintf(&b, "  %s  %-5s  %.2f -> %.2f  qty %.2f  pnl %s\n",
			t.EntryTime.Format("2006-01-02 15:04"), t.Side,
			t.EntryPrice, t.ExitPrice, t.Quantity, money(t.NetPnL))
	}

	return b.String()
}

func section(b *strings.Builder, title string) {
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	fmt.Fprintf(b, "%s\n%s\n", title, strings.Repeat("-", len(title)))
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %-20s %s\n", label, value)
}

func money(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func ratio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
