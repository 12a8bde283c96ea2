// Package builtins provides built-in strategy implementations that ship with
// the backlab platform.
package builtins

import (
	"fmt"

	"backlab/internal/domain"
	"backlab/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross is a simple moving average crossover strategy. It signals long
// while the fast SMA is above the slow SMA and short while it is below. Until
// the slow window has filled the signal is flat.
type SMACross struct{}

// NewSMACross creates a new SMACross strategy. The fast and slow window
// lengths come from the per-run Params so the optimizer can vary them.
func NewSMACross() *SMACross {
	return &SMACross{}
}

// Name returns "sma_cross".
func (s *SMACross) Name() string {
	return "sma_cross"
}

// Signal computes the crossover signal for the full bar series.
func (s *SMACross) Signal(bars []domain.Bar, p strategy.Params) ([]domain.SignalPoint, error) {
	if err := validatePeriods(p); err != nil {
		return nil, err
	}

	points := make([]domain.SignalPoint, 0, len(bars))
	for i := range bars {
		fast, okFast := sma(bars, i, p.FastPeriod)
		slow, okSlow := sma(bars, i, p.SlowPeriod)

		v := 0.0
		if okFast && okSlow {
			switch {
			case fast > slow:
				v = 1
			case fast < slow:
				v = -1
			}
		}
		points = append(points, domain.SignalPoint{Time: bars[i].Timestamp, Value: v})
	}
	return points, nil
}

// OnBar computes the crossover signal for the latest visible bar.
func (s *SMACross) OnBar(visible []domain.Bar, _ *strategy.State, p strategy.Params) (float64, bool) {
	if err := validatePeriods(p); err != nil {
		return 0, false
	}
	i := len(visible) - 1
	if i < 0 {
		return 0, false
	}

	fast, okFast := sma(visible, i, p.FastPeriod)
	slow, okSlow := sma(visible, i, p.SlowPeriod)
	if !okFast || !okSlow {
		return 0, false
	}
	switch {
	case fast > slow:
		return 1, true
	case fast < slow:
		return -1, true
	}
	return 0, true
}

// sma returns the mean of the last n closes ending at index i (inclusive).
// It returns false until n bars are available.
func sma(bars []domain.Bar, i, n int) (float64, bool) {
	if n <= 0 || i+1 < n {
		return 0, false
	}
	sum := 0.0
	for j := i - n + 1; j <= i; j++ {
		sum += bars[j].Close
	}
	return sum / float64(n), true
}

func validatePeriods(p strategy.Params) error {
	if p.FastPeriod <= 0 || p.SlowPeriod <= 0 {
		return fmt.Errorf("sma_cross: periods must be positive, got fast=%d slow=%d", p.FastPeriod, p.SlowPeriod)
	}
	if p.FastPeriod >= p.SlowPeriod {
		return fmt.Errorf("sma_cross: fast period %d must be shorter than slow period %d", p.FastPeriod, p.SlowPeriod)
	}
	return nil
}
