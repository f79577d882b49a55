package allocation

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/timebill/backend/internal/domain/shared/strategy"
)

// epsilon for "effectively zero" comparisons between hour values
var epsilon = decimal.NewFromFloat(0.0001)

// ProportionalAllocationStrategy redistributes a project-level billable-hours
// target across resources. Increases are spread in equal shares over the
// resources that still have headroom (worked hours not yet allocated as
// billable); decreases are taken from the largest current targets first.
// When every resource's headroom is exhausted before the target is reached,
// the leftover lands entirely on the first resource in input order, even past
// its own worked hours. That escape valve keeps the project total exact.
type ProportionalAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewProportionalAllocationStrategy creates a new proportional allocation strategy
func NewProportionalAllocationStrategy() *ProportionalAllocationStrategy {
	return &ProportionalAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"proportional",
			strategy.StrategyTypeAllocation,
			"Distribute a project billable target across resources, capped by each resource's worked hours",
		),
	}
}

// Allocate computes per-resource billable targets. The result preserves the
// input resource order, and the targets sum to the requested total whenever
// the input makes that feasible.
func (s *ProportionalAllocationStrategy) Allocate(
	ctx context.Context,
	allocCtx strategy.AllocationContext,
) (strategy.AllocationResult, error) {
	resources := allocCtx.Resources
	target := allocCtx.TargetBillableHours.Round(2)

	if len(resources) == 0 {
		return strategy.AllocationResult{Targets: []strategy.ResourceTarget{}}, nil
	}

	targets := make([]decimal.Decimal, len(resources))
	for i, r := range resources {
		targets[i] = r.CurrentHours.Round(2)
	}

	switch {
	case target.LessThanOrEqual(decimal.Zero):
		for i := range targets {
			targets[i] = decimal.Zero
		}
	case len(resources) == 1:
		// Single resource takes the whole target, no distribution needed.
		targets[0] = decimal.Max(target, decimal.Zero)
	default:
		currentTotal := decimal.Zero
		for _, t := range targets {
			currentTotal = currentTotal.Add(t)
		}
		diff := target.Sub(currentTotal)
		switch {
		case diff.GreaterThan(epsilon):
			s.increase(resources, targets, diff)
		case diff.Neg().GreaterThan(epsilon):
			s.decrease(targets, diff.Neg())
		}
	}

	result := strategy.AllocationResult{
		Targets: make([]strategy.ResourceTarget, len(resources)),
	}
	for i, r := range resources {
		result.Targets[i] = strategy.ResourceTarget{UserID: r.UserID, TargetHours: targets[i]}
		result.TotalAllocated = result.TotalAllocated.Add(targets[i])
	}
	return result, nil
}

// increase spreads remaining hours in equal shares over the resources that
// still have headroom, iterating as shares get capped by small headrooms.
func (s *ProportionalAllocationStrategy) increase(resources []strategy.BillingResource, targets []decimal.Decimal, remaining decimal.Decimal) {
	for remaining.GreaterThan(epsilon) {
		var candidates []int
		for i, r := range resources {
			if r.Headroom(targets[i]).GreaterThan(epsilon) {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			break
		}

		share := remaining.Div(decimal.NewFromInt(int64(len(candidates)))).Round(4)
		consumed := decimal.Zero
		for _, i := range candidates {
			add := decimal.Min(share, resources[i].Headroom(targets[i]))
			targets[i] = targets[i].Add(add).Round(2)
			consumed = consumed.Add(add)
		}
		remaining = remaining.Sub(consumed)

		// A round that consumes nothing cannot make progress.
		if consumed.LessThanOrEqual(epsilon) {
			break
		}
	}

	if remaining.GreaterThan(epsilon) {
		targets[0] = targets[0].Add(remaining).Round(2)
	}
}

// decrease trims targets largest-first until the reduction is consumed. Ties
// keep their original relative order.
func (s *ProportionalAllocationStrategy) decrease(targets []decimal.Decimal, remaining decimal.Decimal) {
	order := make([]int, len(targets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return targets[order[a]].GreaterThan(targets[order[b]])
	})

	for _, i := range order {
		if remaining.LessThanOrEqual(epsilon) {
			break
		}
		cut := decimal.Min(targets[i], remaining)
		targets[i] = targets[i].Sub(cut).Round(2)
		remaining = remaining.Sub(cut)
	}
}

// ConservesTarget reports whether the strategy guarantees the allocated sum
// equals the requested target for feasible inputs
func (s *ProportionalAllocationStrategy) ConservesTarget() bool {
	return true
}
