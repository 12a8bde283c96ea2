package builtins

import "backlab/internal/strategy"

// NewRegistry returns a Registry populated with all built-in strategies.
func NewRegistry() *strategy.Registry {
	reg := strategy.NewRegistry()
	reg.Register(NewSMACross())
	reg.Register(NewMomentum())
	return reg
}
