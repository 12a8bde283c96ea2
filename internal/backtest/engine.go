// Package backtest implements the strategy backtesting engine: cost
// modelling, trade reconstruction from signal series, three simulation
// drivers (vectorized, event-driven, walk-forward), grid-search parameter
// optimization, and the performance/risk metrics report.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"backlab/internal/domain"
	"backlab/internal/strategy"
)

// Mode selects the simulation driver for a run.
type Mode string

const (
	ModeVectorized  Mode = "vectorized"
	ModeEventDriven Mode = "event_driven"
	ModeWalkForward Mode = "walk_forward"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeVectorized, ModeEventDriven, ModeWalkForward:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Fatal setup errors. Anything else local to a single trade, optimizer
// candidate, or walk-forward window is absorbed and logged, never bubbled.
var (
	ErrUnknownMode   = errors.New("backtest: unknown simulation mode")
	ErrNoBars        = errors.New("backtest: no price bars supplied")
	ErrUnorderedBars = errors.New("backtest: bar timestamps must be strictly increasing")
	ErrBadConfig     = errors.New("backtest: invalid engine configuration")
	ErrNilStrategy   = errors.New("backtest: nil strategy")
)

// Config is the engine configuration consumed at construction. Cost rates are
// constants for the life of the engine.
type Config struct {
	InitialCapital float64 `yaml:"initial_capital"` // must be > 0
	Commission     float64 `yaml:"commission"`      // fraction of notional per side
	Slippage       float64 `yaml:"slippage"`        // per unit quantity per side
	SwapRate       float64 `yaml:"swap_rate"`       // per unit quantity per day
	UnitSize       float64 `yaml:"unit_size"`       // quantity per unit of signal magnitude

	// Walk-forward window lengths in bars.
	TrainPeriod int `yaml:"train_period"`
	TestPeriod  int `yaml:"test_period"`
}

// DefaultConfig returns an engine configuration with conventional defaults.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 10000,
		Commission:     0.001,
		Slippage:       0.01,
		SwapRate:       0.0001,
		UnitSize:       1,
		TrainPeriod:    252,
		TestPeriod:     63,
	}
}

// Request describes one backtest run.
type Request struct {
	Symbol   string
	Bars     []domain.Bar
	Strategy strategy.Strategy
	Params   strategy.Params
	Mode     Mode
}

// Engine runs backtests. It holds only immutable configuration, so a single
// Engine is safe for concurrent Run calls: all per-run state lives in a fresh
// context object created inside Run.
type Engine struct {
	cfg   Config
	costs CostModel
	log   *slog.Logger
}

// New creates an Engine from the given configuration, applying defaults for
// zero walk-forward periods and unit size.
func New(cfg Config, log *slog.Logger) (*Engine, error) {
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("%w: initial capital must be positive, got %v", ErrBadConfig, cfg.InitialCapital)
	}
	if cfg.Commission < 0 || cfg.Slippage < 0 || cfg.SwapRate < 0 {
		return nil, fmt.Errorf("%w: cost rates must be non-negative", ErrBadConfig)
	}
	if cfg.UnitSize <= 0 {
		cfg.UnitSize = 1
	}
	if cfg.TrainPeriod <= 0 {
		cfg.TrainPeriod = 252
	}
	if cfg.TestPeriod <= 0 {
		cfg.TestPeriod = 63
	}
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		cfg: cfg,
		costs: CostModel{
			CommissionRate: cfg.Commission,
			SlippageRate:   cfg.Slippage,
			DailySwapRate:  cfg.SwapRate,
		},
		log: log.With("component", "backtest"),
	}, nil
}

// Costs exposes the engine's cost model.
func (e *Engine) Costs() CostModel {
	return e.costs
}

// Run executes one backtest and returns a fully-populated Result, or an error
// for fatal setup problems (bad mode, empty or unordered bars). A signal
// function that produces nothing yields an empty-but-valid Result instead of
// an error.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Strategy == nil {
		return nil, ErrNilStrategy
	}
	if len(req.Bars) == 0 {
		return nil, ErrNoBars
	}
	for i := 1; i < len(req.Bars); i++ {
		if !req.Bars[i].Timestamp.After(req.Bars[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: bar %d (%s) does not follow bar %d (%s)",
				ErrUnorderedBars, i, req.Bars[i].Timestamp, i-1, req.Bars[i-1].Timestamp)
		}
	}
	if _, err := ParseMode(string(req.Mode)); err != nil {
		return nil, err
	}
	if req.Params == (strategy.Params{}) {
		req.Params = strategy.DefaultParams()
	}

	switch req.Mode {
	case ModeVectorized:
		return e.runVectorized(ctx, req)
	case ModeEventDriven:
		return e.runEventDriven(ctx, req)
	case ModeWalkForward:
		return e.runWalkForward(ctx, req)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
}

// emptyResult builds the all-zero Result returned when the signal function
// produces nothing.
func (e *Engine) emptyResult(req Request) *Result {
	return &Result{
		Symbol:         req.Symbol,
		Strategy:       req.Strategy.Name(),
		Mode:           req.Mode,
		Params:         req.Params,
		InitialCapital: e.cfg.InitialCapital,
	}
}
