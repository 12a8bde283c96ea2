package builtins

import (
	"backlab/internal/domain"
	"backlab/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Momentum)(nil)

// Momentum signals in the direction of the close-to-close move over the fast
// window: long when price is above its level FastPeriod bars ago, short when
// below. The event-driven path additionally remembers its last emitted signal
// and stays quiet while the direction is unchanged, exercising strategy state.
type Momentum struct{}

// NewMomentum creates a new Momentum strategy.
func NewMomentum() *Momentum {
	return &Momentum{}
}

// Name returns "momentum".
func (m *Momentum) Name() string {
	return "momentum"
}

// Signal computes the momentum signal for the full bar series.
func (m *Momentum) Signal(bars []domain.Bar, p strategy.Params) ([]domain.SignalPoint, error) {
	lookback := p.FastPeriod
	if lookback <= 0 {
		lookback = 1
	}

	points := make([]domain.SignalPoint, 0, len(bars))
	for i := range bars {
		v := 0.0
		if i >= lookback {
			switch {
			case bars[i].Close > bars[i-lookback].Close:
				v = 1
			case bars[i].Close < bars[i-lookback].Close:
				v = -1
			}
		}
		points = append(points, domain.SignalPoint{Time: bars[i].Timestamp, Value: v})
	}
	return points, nil
}

// OnBar computes the momentum signal for the latest visible bar, emitting
// only on direction changes.
func (m *Momentum) OnBar(visible []domain.Bar, state *strategy.State, p strategy.Params) (float64, bool) {
	lookback := p.FastPeriod
	if lookback <= 0 {
		lookback = 1
	}
	i := len(visible) - 1
	if i < lookback {
		return 0, false
	}

	v := 0.0
	switch {
	case visible[i].Close > visible[i-lookback].Close:
		v = 1
	case visible[i].Close < visible[i-lookback].Close:
		v = -1
	}

	if last, seen := state.Vars["last_signal"]; seen && last == v {
		// Direction unchanged, nothing new to say.
		return 0, false
	}
	state.Vars["last_signal"] = v
	return v, true
}
