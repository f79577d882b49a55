package strategy

import (
	"github.com/timebill/backend/internal/domain/shared/strategy"
	"github.com/timebill/backend/internal/infrastructure/strategy/allocation"
)

// NewRegistryWithDefaults creates a new registry with the built-in strategies
// registered and the proportional allocator set as the allocation default.
func NewRegistryWithDefaults() (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	proportional := allocation.NewProportionalAllocationStrategy()
	if err := r.RegisterAllocationStrategy(proportional); err != nil {
		return nil, err
	}

	if err := r.SetDefault(strategy.StrategyTypeAllocation, proportional.Name()); err != nil {
		return nil, err
	}

	return r, nil
}
