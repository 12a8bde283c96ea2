// Command backlab is the CLI for running backtests over stored bar data,
// fetching market data, and browsing persisted runs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"backlab/internal/backtest"
	"backlab/internal/config"
	"backlab/internal/gather"
	"backlab/internal/report"
	"backlab/internal/store"
	"backlab/internal/strategy"
	"backlab/internal/strategy/builtins"
	"backlab/internal/util"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: backlab <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run         Run a backtest over stored bars and print the report\n")
	fmt.Fprintf(os.Stderr, "  fetch       Fetch bars into the local store (Alpaca or synthetic)\n")
	fmt.Fprintf(os.Stderr, "  report      Re-render the report for a persisted run\n")
	fmt.Fprintf(os.Stderr, "  strategies  List available strategies\n")
	fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(ctx, os.Args[2:])
	case "fetch":
		err = cmdFetch(ctx, os.Args[2:])
	case "report":
		err = cmdReport(ctx, os.Args[2:])
	case "strategies":
		for _, name := range builtins.NewRegistry().List() {
			fmt.Println(name)
		}
	case "version":
		fmt.Printf("backlab %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "backlab %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file path")
	symbol := fs.String("symbol", "", "symbol to backtest (required)")
	stratName := fs.String("strategy", "sma_cross", "strategy name")
	modeStr := fs.String("mode", "vectorized", "simulation mode: vectorized, event_driven, walk_forward")
	timeframe := fs.String("timeframe", gather.TimeframeDaily, "bar timeframe: daily or hourly")
	startStr := fs.String("start", "", "start date (2006-01-02), default full range")
	endStr := fs.String("end", "", "end date (2006-01-02), default full range")
	fast := fs.Int("fast", 0, "fast period override")
	slow := fs.Int("slow", 0, "slow period override")
	save := fs.Bool("save", false, "persist the run to the local run store")
	fs.Parse(args)

	if *symbol == "" {
		return fmt.Errorf("-symbol is required")
	}
	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		return err
	}
	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	strat, ok := builtins.NewRegistry().Get(*stratName)
	if !ok {
		return fmt.Errorf("unknown strategy %q", *stratName)
	}
	mode, err := backtest.ParseMode(*modeStr)
	if err != nil {
		return err
	}

	start, end, err := dateRange(*startStr, *endStr)
	if err != nil {
		return err
	}

	bars, err := store.NewParquetStore(cfg.Storage.DataDir).ReadBars(
		ctx, strings.ToUpper(*symbol), "us", *timeframe, start, end)
	if err != nil {
		return fmt.Errorf("reading bars: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars stored for %s; run `backlab fetch` first", strings.ToUpper(*symbol))
	}

	params := strategy.DefaultParams()
	if *fast > 0 {
		params.FastPeriod = *fast
	}
	if *slow > 0 {
		params.SlowPeriod = *slow
	}

	engine, err := backtest.New(cfg.Backtest, logger)
	if err != nil {
		return err
	}
	res, err := engine.Run(ctx, backtest.Request{
		Symbol:   strings.ToUpper(*symbol),
		Bars:     bars,
		Strategy: strat,
		Params:   params,
		Mode:     mode,
	})
	if err != nil {
		return err
	}

	fmt.Print(report.Render(res))

	if *save {
		id, err := saveRun(ctx, cfg.Storage.SQLitePath, res)
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		fmt.Printf("\nsaved as run %d\n", id)
	}
	return nil
}

func saveRun(ctx context.Context, dbPath string, res *backtest.Result) (int64, error) {
	runs, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return 0, err
	}
	defer runs.Close()

	safe := res.JSONSafe()
	resultJSON, err := json.Marshal(safe)
	if err != nil {
		return 0, err
	}
	return runs.SaveRun(ctx, store.RunSummary{
		CreatedAt:    time.Now().UTC(),
		Symbol:       safe.Symbol,
		Strategy:     safe.Strategy,
		Mode:         string(safe.Mode),
		TotalTrades:  safe.TotalTrades,
		TotalPnL:     safe.TotalPnL,
		WinRate:      safe.WinRate,
		Sharpe:       safe.Sharpe,
		MaxDrawdown:  safe.MaxDrawdownPct,
		ProfitFactor: safe.ProfitFactor,
	}, resultJSON)
}

func cmdFetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file path")
	symbolsStr := fs.String("symbols", "", "comma-separated symbols (required)")
	timeframe := fs.String("timeframe", gather.TimeframeDaily, "bar timeframe: daily or hourly")
	startStr := fs.String("start", "", "start date (2006-01-02), default 2 years ago")
	endStr := fs.String("end", "", "end date (2006-01-02), default yesterday")
	synthetic := fs.Bool("synthetic", false, "generate deterministic synthetic bars instead of calling Alpaca")
	fs.Parse(args)

	if *symbolsStr == "" {
		return fmt.Errorf("-symbols is required")
	}
	var symbols []string
	for _, s := range strings.Split(*symbolsStr, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		return err
	}
	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	now := time.Now().UTC()
	start := now.AddDate(-2, 0, 0)
	end := now.AddDate(0, 0, -1)
	if *startStr != "" {
		if start, err = time.Parse("2006-01-02", *startStr); err != nil {
			return fmt.Errorf("invalid start date %q", *startStr)
		}
	}
	if *endStr != "" {
		if end, err = time.Parse("2006-01-02", *endStr); err != nil {
			return fmt.Errorf("invalid end date %q", *endStr)
		}
	}

	bars := store.NewParquetStore(cfg.Storage.DataDir)

	var g gather.Gatherer
	if *synthetic {
		g = gather.NewSyntheticGatherer(bars)
	} else {
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			return fmt.Errorf("alpaca credentials not configured; set APCA_API_KEY_ID and APCA_API_SECRET_KEY, or use -synthetic")
		}
		g = gather.NewAlpacaGatherer(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, bars)
	}

	return g.Fetch(ctx, symbols, *timeframe, start, end)
}

func cmdReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file path")
	id := fs.Int64("id", 0, "run ID (required); omit to list recent runs")
	fs.Parse(args)

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		return err
	}
	runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer runs.Close()

	if *id == 0 {
		summaries, err := runs.ListRuns(ctx, 20)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("no persisted runs")
			return nil
		}
		fmt.Printf("%-5s %-20s %-8s %-12s %-13s %8s %8s\n",
			"ID", "CREATED", "SYMBOL", "STRATEGY", "MODE", "TRADES", "PNL")
		for _, s := range summaries {
			fmt.Printf("%-5d %-20s %-8s %-12s %-13s %8d %8.2f\n",
				s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Symbol, s.Strategy, s.Mode, s.TotalTrades, s.TotalPnL)
		}
		return nil
	}

	_, resultJSON, err := runs.GetRun(ctx, *id)
	if err != nil {
		return err
	}
	var res backtest.Result
	if err := json.Unmarshal(resultJSON, &res); err != nil {
		return fmt.Errorf("decoding stored result: %w", err)
	}
	fmt.Print(report.Render(&res))
	return nil
}

// dateRange parses optional inclusive date bounds for reading stored bars.
func dateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Now().UTC().AddDate(0, 0, 1)

	if startStr != "" {
		t, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q", startStr)
		}
		start = t
	}
	if endStr != "" {
		t, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q", endStr)
		}
		end = t.AddDate(0, 0, 1)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date precedes start date")
	}
	return start, end, nil
}
