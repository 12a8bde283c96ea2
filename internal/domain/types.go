// Package domain defines the core value types shared across the backlab
// platform: OHLCV bars, trade records, and signal series points.
package domain

import "time"

// Market identifies the market a symbol trades in.
type Market string

const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)

// Bar is a single OHLCV bar for one symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Side is the direction of a position or trade.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// SignalPoint is one point of a strategy signal series. Value follows the
// +1 long / -1 short / 0 flat convention; its magnitude scales position size.
type SignalPoint struct {
	Time  time.Time
	Value float64
}

// Trade is a closed round-trip trade produced by a backtest. It is immutable
// once emitted.
type Trade struct {
	Symbol        string    `json:"symbol"`
	Strategy      string    `json:"strategy"`
	Side          Side      `json:"side"`
	EntryTime     time.Time `json:"entry_time"`
	ExitTime      time.Time `json:"exit_time"`
	EntryPrice    float64   `json:"entry_price"`
	ExitPrice     float64   `json:"exit_price"`
	Quantity      float64   `json:"quantity"`
	GrossPnL      float64   `json:"gross_pnl"`
	NetPnL        float64   `json:"net_pnl"`
	PnLPct        float64   `json:"pnl_pct"`
	DurationHours float64   `json:"duration_hours"`
	MaxFavorable  float64   `json:"max_favorable_excursion"`
	MaxAdverse    float64   `json:"max_adverse_excursion"`
	Confidence    float64   `json:"confidence"`
}

// EquityPoint is one point of an equity curve: total account value at a bar.
type EquityPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}
