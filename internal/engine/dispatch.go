// Package engine computes exact probability distributions for dice pools.
// Two strategies exist: a convolution engine that is near-linear in
// count*sides but limited to modifiers expressible on a single-die vector,
// and a discrete enumeration engine that materializes the bounded joint
// outcome space and handles order- and count-dependent modifiers. A
// stateless dispatcher routes each pool to the cheapest applicable strategy.
package engine

import (
	"github.com/cory-johannsen/d20dist/internal/dist"
	"github.com/cory-johannsen/d20dist/internal/expr"
)

// Limits carries the cost guards and the explode truncation cutoff. Both
// engines receive their guard explicitly so callers can tune them per call
// and tests can exercise the guards deterministically at small values.
type Limits struct {
	// Convolution bounds count*sides for the convolution path.
	Convolution int
	// Enumeration bounds sides^count for the discrete path.
	Enumeration int
	// ExplodeEpsilon is the joint mass below which explode recursion stops
	// and the remaining mass is folded into the accumulated outcome.
	ExplodeEpsilon float64
}

// DefaultLimits returns the production thresholds: generous for the
// near-linear convolution path, tight for the exponential enumeration path.
func DefaultLimits() Limits {
	return Limits{
		Convolution:    10000,
		Enumeration:    8192,
		ExplodeEpsilon: 1e-7,
	}
}

// PoolDistribution computes the distribution of a dice pool under its
// modifier chain, routing to the convolution engine when every modifier is
// convolution-safe and to discrete enumeration otherwise. The routing is a
// pure function re-evaluated per pool node; whichever engine is selected
// enforces its own cost guard before doing any work.
func PoolDistribution(count, sides int, ops []expr.Operation, lim Limits) (dist.Distribution, error) {
	if SupportsConvolution(ops) {
		return ConvolutionDistribution(count, sides, ops, lim)
	}
	return EnumerationDistribution(count, sides, ops, lim)
}

// ConvolutionDistribution computes a pool's distribution on the convolution
// engine. It fails with ErrUnsupportedSelector or ErrUnsupportedOperator for
// chains the engine cannot express; use PoolDistribution for routing.
func ConvolutionDistribution(count, sides int, ops []expr.Operation, lim Limits) (dist.Distribution, error) {
	b, err := newConvolutionBuilder(count, sides, lim)
	if err != nil {
		return dist.Distribution{}, err
	}
	for _, op := range ops {
		if err := b.applyOperation(op); err != nil {
			return dist.Distribution{}, err
		}
	}
	return b.distribution(), nil
}

// EnumerationDistribution computes a pool's distribution on the discrete
// enumeration engine.
func EnumerationDistribution(count, sides int, ops []expr.Operation, lim Limits) (dist.Distribution, error) {
	b, err := newDiscreteBuilder(count, sides, lim)
	if err != nil {
		return dist.Distribution{}, err
	}
	for _, op := range ops {
		if err := b.applyOperation(op); err != nil {
			return dist.Distribution{}, err
		}
	}
	return b.distribution(), nil
}
