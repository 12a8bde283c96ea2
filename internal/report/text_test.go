package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"backlab/internal/backtest"
	"backlab/internal/domain"
)

func TestRenderSectionOrder(t *testing.T) {
	res := &backtest.Result{
		Symbol:   "AAPL",
		Strategy: "sma_cross",
		Mode:     backtest.ModeVectorized,
	}

	out := Render(res)

	sections := []string{
		"Summary", "Trade Analysis", "Risk Metrics",
		"Trading Metrics", "Monthly Returns", "Recent Trades",
	}
	pos := -1
	for _, s := range sections {
		i := strings.Index(out, s+"\n")
		if i < 0 {
			t.Fatalf("section %q missing from report", s)
		}
		if i < pos {
			t.Errorf("section %q out of order", s)
		}
		pos = i
	}
}

func TestRenderValues(t *testing.T) {
	res := &backtest.Result{
		Symbol:       "AAPL",
		Strategy:     "sma_cross",
		Mode:         backtest.ModeEventDriven,
		TotalPnL:     -123.456,
		ProfitFactor: math.Inf(1),
		MonthlyReturns: []backtest.PeriodReturn{
			{Period: "2024-02", Return: 0.05},
		},
		Trades: []domain.Trade{
			{
				Side:       domain.SideLong,
				EntryTime:  time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
				EntryPrice: 100, ExitPrice: 101, Quantity: 10, NetPnL: 9.5,
			},
		},
	}

	out := Render(res)

	for _, want := range []string{"-$123.46", "inf", "2024-02", "5.00%", "long", "$9.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTruncatesRecentTrades(t *testing.T) {
	res := &backtest.Result{Symbol: "T", Strategy: "s", Mode: backtest.ModeVectorized}
	for i := 0; i < 25; i++ {
		res.Trades = append(res.Trades, domain.Trade{
			Side:      domain.SideLong,
			EntryTime: time.Date(2024, 1, 2, i, 0, 0, 0, time.UTC),
		})
	}

	out := Render(res)
	if got := strings.Count(out, "long"); got != maxRecentTrades {
		t.Errorf("recent trades rendered = %d, want %d", got, maxRecentTrades)
	}
}
