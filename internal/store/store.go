// Package store defines storage for the backlab platform: historical OHLCV
// bars (Parquet) and persisted backtest runs (SQLite).
package store

import (
	"context"
	"time"

	"backlab/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market and timeframe.
	WriteBars(ctx context.Context, bars []domain.Bar, market, timeframe string) error

	// ReadBars returns bars for the given symbol within [start, end].
	ReadBars(ctx context.Context, symbol, market, timeframe string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available for the given market
	// and timeframe.
	ListSymbols(ctx context.Context, market, timeframe string) ([]string, error)
}

// RunSummary is the headline view of one persisted backtest run.
type RunSummary struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Symbol       string    `json:"symbol"`
	Strategy     string    `json:"strategy"`
	Mode         string    `json:"mode"`
	TotalTrades  int       `json:"total_trades"`
	TotalPnL     float64   `json:"total_pnl"`
	WinRate      float64   `json:"win_rate"`
	Sharpe       float64   `json:"sharpe"`
	MaxDrawdown  float64   `json:"max_drawdown_pct"`
	ProfitFactor float64   `json:"profit_factor"`
}

// RunStore persists completed backtest runs.
type RunStore interface {
	// SaveRun stores a run summary plus the full serialized result, returning
	// the new run ID.
	SaveRun(ctx context.Context, summary RunSummary, resultJSON []byte) (int64, error)

	// GetRun retrieves one run and its serialized result by ID.
	GetRun(ctx context.Context, id int64) (*RunSummary, []byte, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}
