package backtest

import (
	"time"

	"backlab/internal/domain"
	"backlab/internal/strategy"
)

// Shared test fixtures for the backtest package.

// hourlyBars builds an hourly bar series from the given closes, starting at a
// fixed timestamp.
func hourlyBars(closes []float64) []domain.Bar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    "TEST",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
		}
	}
	return bars
}

// uptrendBars builds n hourly bars with close = 100 + i*0.1.
func uptrendBars(n int) []domain.Bar {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.1
	}
	return hourlyBars(closes)
}

// scriptStrategy lets tests script both strategy signatures.
type scriptStrategy struct {
	name   string
	signal func(bars []domain.Bar, p strategy.Params) ([]domain.SignalPoint, error)
	onBar  func(visible []domain.Bar, st *strategy.State, p strategy.Params) (float64, bool)
}

func (s *scriptStrategy) Name() string {
	if s.name == "" {
		return "script"
	}
	return s.name
}

func (s *scriptStrategy) Signal(bars []domain.Bar, p strategy.Params) ([]domain.SignalPoint, error) {
	if s.signal == nil {
		return nil, nil
	}
	return s.signal(bars, p)
}

func (s *scriptStrategy) OnBar(visible []domain.Bar, st *strategy.State, p strategy.Params) (float64, bool) {
	if s.onBar == nil {
		return 0, false
	}
	return s.onBar(visible, st, p)
}

// constantSignal returns a strategy emitting the same value on every bar in
// both modes.
func constantSignal(v float64) *scriptStrategy {
	return &scriptStrategy{
		name: "constant",
		signal: func(bars []domain.Bar, _ strategy.Params) ([]domain.SignalPoint, error) {
			points := make([]domain.SignalPoint, len(bars))
			for i, b := range bars {
				points[i] = domain.SignalPoint{Time: b.Timestamp, Value: v}
			}
			return points, nil
		},
		onBar: func(_ []domain.Bar, _ *strategy.State, _ strategy.Params) (float64, bool) {
			return v, true
		},
	}
}

// alternatingSignal flips between +1 and -1 on every bar in both modes.
func alternatingSignal() *scriptStrategy {
	return &scriptStrategy{
		name: "alternating",
		signal: func(bars []domain.Bar, _ strategy.Params) ([]domain.SignalPoint, error) {
			points := make([]domain.SignalPoint, len(bars))
			for i, b := range bars {
				v := 1.0
				if i%2 == 1 {
					v = -1
				}
				points[i] = domain.SignalPoint{Time: b.Timestamp, Value: v}
			}
			return points, nil
		},
		onBar: func(visible []domain.Bar, _ *strategy.State, _ strategy.Params) (float64, bool) {
			if (len(visible)-1)%2 == 1 {
				return -1, true
			}
			return 1, true
		},
	}
}

// mustEngine builds an engine with the given config or fails the test.
func mustEngine(t interface{ Fatalf(string, ...any) }, cfg Config) *Engine {
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return e
}
