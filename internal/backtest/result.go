package backtest

import (
	"backlab/internal/domain"
	"backlab/internal/strategy"
)

// PeriodReturn is the percent return of one calendar period, computed from
// period-end equity values.
type PeriodReturn struct {
	Period string  `json:"period"` // "2024-03" for months, "2024" for years
	Return float64 `json:"return"`
}

// Result is the full performance record of one backtest run. Every field is a
// deterministic function of the equity curve, the trade list, and the price
// index; nothing is updated incrementally.
//
// ProfitFactor is +Inf when there are winning trades and no losing trades;
// callers serialising to JSON must map that themselves (JSON has no Inf).
type Result struct {
	Symbol   string          `json:"symbol"`
	Strategy string          `json:"strategy"`
	Mode     Mode            `json:"mode"`
	Params   strategy.Params `json:"params"`

	InitialCapital float64 `json:"initial_capital"`

	// Trade counts.
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`

	// Currency metrics.
	TotalPnL     float64 `json:"total_pnl"`
	TotalPnLPct  float64 `json:"total_pnl_pct"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	LargestWin   float64 `json:"largest_win"`
	LargestLoss  float64 `json:"largest_loss"`
	ProfitFactor float64 `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy"`

	// Risk metrics.
	MaxDrawdown         float64 `json:"max_drawdown"`     // currency, positive magnitude
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"` // <= 0
	MaxDrawdownDuration int     `json:"max_drawdown_duration"` // bars
	VaR95               float64 `json:"var_95"`
	CVaR95              float64 `json:"cvar_95"`
	Sharpe              float64 `json:"sharpe"`
	Sortino             float64 `json:"sortino"`
	Calmar              float64 `json:"calmar"`

	// Trading-activity metrics.
	AvgTradeDurationHours float64 `json:"avg_trade_duration_hours"`
	TradesPerMonth        float64 `json:"trades_per_month"`

	// Retained series.
	EquityCurve    []domain.EquityPoint `json:"equity_curve"`
	DrawdownCurve  []float64            `json:"drawdown_curve"`
	Trades         []domain.Trade       `json:"trades"`
	MonthlyReturns []PeriodReturn       `json:"monthly_returns"`
	YearlyReturns  []PeriodReturn       `json:"yearly_returns"`
}

// JSONSafe returns a shallow copy with non-finite float fields clamped so the
// record can pass through encoding/json. ProfitFactor is the only field that
// can legitimately be +Inf.
func (r *Result) JSONSafe() *Result {
	cp := *r
	cp.ProfitFactor = clampFinite(cp.ProfitFactor)
	return &cp
}

