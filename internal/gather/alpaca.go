package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"backlab/internal/domain"
	"backlab/internal/store"
	"backlab/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface checks
// ---------------------------------------------------------------------------

var _ Gatherer = (*AlpacaGatherer)(nil)

// ---------------------------------------------------------------------------
// AlpacaGatherer — historical OHLCV bars from the Alpaca market-data API.
// ---------------------------------------------------------------------------

const (
	fetchBatchSize   = 200 // symbols per GetMultiBars call
	fetchMaxAttempts = 3
	fetchBaseDelay   = 2 * time.Second
)

// AlpacaGatherer fetches historical bar data for US equities via the Alpaca
// market-data API and persists it to a BarStore.
type AlpacaGatherer struct {
	client *marketdata.Client
	store  store.BarStore
	feed   string
	log    *slog.Logger
}

// NewAlpacaGatherer creates an AlpacaGatherer configured with the given
// Alpaca credentials and target store. dataURL may be empty to use the
// default API endpoint.
func NewAlpacaGatherer(apiKey, apiSecret, dataURL string, s store.BarStore) *AlpacaGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaGatherer{
		client: marketdata.NewClient(opts),
		store:  s,
		feed:   "sip",
		log:    slog.Default().With("gatherer", "alpaca"),
	}
}

// Name returns the gatherer identifier.
func (g *AlpacaGatherer) Name() string { return "alpaca" }

// Fetch retrieves bars for the given symbols between start and end and
// writes them to the Parquet store under the US market. Symbols are fetched
// in batches, each batch retried with backoff on transient API errors.
func (g *AlpacaGatherer) Fetch(ctx context.Context, symbols []string, timeframe string, start, end time.Time) error {
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols given")
	}
	tf, err := apiTimeFrame(timeframe)
	if err != nil {
		return err
	}

	runStart := time.Now()
	var total int

	for i := 0; i < len(symbols); i += fetchBatchSize {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		batch := symbols[i:min(i+fetchBatchSize, len(symbols))]

		var bars []domain.Bar
		err := util.Retry(ctx, fetchMaxAttempts, fetchBaseDelay, func() error {
			var ferr error
			bars, ferr = g.fetchMultiBars(batch, tf, start, end)
			return ferr
		})
		if err != nil {
			return fmt.Errorf("fetching batch starting at %s: %w", batch[0], err)
		}

		if len(bars) == 0 {
			g.log.Warn("batch returned no bars", "first", batch[0], "count", len(batch))
			continue
		}
		if err := g.store.WriteBars(ctx, bars, string(domain.MarketUS), timeframe); err != nil {
			return fmt.Errorf("writing bars: %w", err)
		}
		total += len(bars)
	}

	g.log.Info("fetch complete",
		"symbols", len(symbols),
		"bars", total,
		"timeframe", timeframe,
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

// fetchMultiBars fetches bars for multiple symbols in a single API call.
func (g *AlpacaGatherer) fetchMultiBars(symbols []string, tf marketdata.TimeFrame, start, end time.Time) ([]domain.Bar, error) {
	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
		Feed:      marketdata.Feed(g.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:     strings.ToUpper(symbol),
				Timestamp:  ab.Timestamp,
				Open:       ab.Open,
				High:       ab.High,
				Low:        ab.Low,
				Close:      ab.Close,
				Volume:     int64(ab.Volume),
				TradeCount: int64(ab.TradeCount),
				VWAP:       ab.VWAP,
			})
		}
	}
	return bars, nil
}
