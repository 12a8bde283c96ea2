package gather

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// Gatherer is the interface for historical bar fetchers. A Gatherer pulls
// bars for an explicit set of symbols over a date range and persists them.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Fetch retrieves bars for the given symbols between start and end
	// (inclusive) and writes them to the backing store.
	Fetch(ctx context.Context, symbols []string, timeframe string, start, end time.Time) error
}

// Supported timeframe identifiers. They double as directory names in the
// Parquet store layout.
const (
	TimeframeDaily  = "daily"
	TimeframeHourly = "hourly"
)

// apiTimeFrame maps a timeframe identifier to the Alpaca market-data
// representation.
func apiTimeFrame(timeframe string) (marketdata.TimeFrame, error) {
	switch timeframe {
	case TimeframeDaily:
		return marketdata.OneDay, nil
	case TimeframeHourly:
		return marketdata.OneHour, nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unknown timeframe %q", timeframe)
	}
}
