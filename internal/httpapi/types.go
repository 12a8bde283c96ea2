// Package httpapi provides the JSON REST API for running backtests over
// stored bar data and browsing persisted runs.
package httpapi

import (
	"backlab/internal/backtest"
	"backlab/internal/strategy"
)

// BacktestRequest is the POST /api/backtest body. Start and End are
// "2006-01-02" dates; both are optional and default to the full stored range.
type BacktestRequest struct {
	Symbol    string           `json:"symbol"`
	Strategy  string           `json:"strategy"`
	Mode      string           `json:"mode"`
	Timeframe string           `json:"timeframe,omitempty"` // default "daily"
	Start     string           `json:"start,omitempty"`
	End       string           `json:"end,omitempty"`
	Params    *strategy.Params `json:"params,omitempty"` // default strategy params when omitted
}

// BacktestResponse pairs a persisted run ID with the full result record.
type BacktestResponse struct {
	RunID  int64            `json:"run_id"`
	Result *backtest.Result `json:"result"`
}

// StrategiesResponse lists the registered strategy names.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

// SymbolsResponse lists the symbols available in the bar store.
type SymbolsResponse struct {
	Timeframe string   `json:"timeframe"`
	Symbols   []string `json:"symbols"`
}
