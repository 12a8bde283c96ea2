// Package strategy defines the Strategy interface for trading-signal
// generators and provides a Registry for managing multiple strategy
// implementations.
package strategy

import (
	"sort"

	"backlab/internal/domain"
)

// Params holds the tunable parameters a strategy accepts. The same struct is
// varied by the walk-forward grid optimizer.
type Params struct {
	FastPeriod int `yaml:"fast_period" json:"fast_period"`
	SlowPeriod int `yaml:"slow_period" json:"slow_period"`
}

// DefaultParams returns the baseline parameter set used when the caller
// supplies none.
func DefaultParams() Params {
	return Params{FastPeriod: 10, SlowPeriod: 30}
}

// State carries mutable per-run strategy memory for event-driven simulation.
// A fresh State is created for every backtest run, so strategies may store
// whatever they like in Vars without leaking across runs.
type State struct {
	Vars map[string]float64
}

// NewState creates an empty strategy State.
func NewState() *State {
	return &State{Vars: make(map[string]float64)}
}

// Strategy is the interface all trading strategies implement. It exposes both
// simulation signatures: a whole-series signal for vectorized runs and a
// per-bar signal for event-driven runs.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Signal computes the signal series for the full bar series. The result
	// need not cover every bar; the engine aligns it to the price index by
	// timestamp and treats missing points as flat.
	Signal(bars []domain.Bar, p Params) ([]domain.SignalPoint, error)

	// OnBar computes the signal for the most recent bar of the visible
	// series. The visible slice only ever grows; state persists across bars
	// within one run. The second return value is false when the strategy has
	// no opinion on this bar.
	OnBar(visible []domain.Bar, state *State, p Params) (float64, bool)
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
