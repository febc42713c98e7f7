// Package dist implements immutable discrete probability distributions over
// integer outcomes, together with the algebra used to compose dice
// expressions: sum, difference, product, floor division, negation, and
// advantage/disadvantage self-combination.
package dist

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDivisionByZero is returned by Div when the divisor distribution assigns
// non-zero probability to the outcome 0.
var ErrDivisionByZero = errors.New("dist: division by zero")

// Distribution is a probability mass function over integer outcomes.
//
// Invariant: every stored probability is > 0, and for any distribution
// produced by an engine the probabilities sum to 1 within a small tolerance.
// A Distribution is immutable after construction; every algebra operation
// returns a new instance.
type Distribution struct {
	pmf map[int]float64
}

// New builds a Distribution from an outcome→probability map.
//
// Entries with non-positive probability are discarded. An empty input is
// normalized to the single outcome 0 with probability 1, the identity element
// of the arithmetic algebra.
//
// Postcondition: the returned Distribution has at least one outcome.
func New(pmf map[int]float64) Distribution {
	out := make(map[int]float64, len(pmf))
	for k, p := range pmf {
		if p > 0 {
			out[k] = p
		}
	}
	if len(out) == 0 {
		out[0] = 1
	}
	return Distribution{pmf: out}
}

// Single returns the degenerate distribution with all mass on value.
func Single(value int) Distribution {
	return Distribution{pmf: map[int]float64{value: 1}}
}

// Get returns the probability of outcome k, or 0 when k is not attainable.
func (d Distribution) Get(k int) float64 {
	return d.pmf[k]
}

// GetAtLeast returns the cumulative tail mass Σ_{j>=k} P(j).
//
// Postcondition: GetAtLeast(Min()) equals the total mass of the
// distribution, and the result is non-increasing in k.
func (d Distribution) GetAtLeast(k int) float64 {
	var total float64
	for outcome, p := range d.pmf {
		if outcome >= k {
			total += p
		}
	}
	return total
}

// Min returns the smallest attainable outcome.
func (d Distribution) Min() int {
	first := true
	var min int
	for k := range d.pmf {
		if first || k < min {
			min = k
			first = false
		}
	}
	return min
}

// Max returns the largest attainable outcome.
func (d Distribution) Max() int {
	first := true
	var max int
	for k := range d.pmf {
		if first || k > max {
			max = k
			first = false
		}
	}
	return max
}

// Keys returns the attainable outcomes in ascending order.
func (d Distribution) Keys() []int {
	keys := make([]int, 0, len(d.pmf))
	for k := range d.pmf {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// ToMap returns a copy of the outcome→probability map.
func (d Distribution) ToMap() map[int]float64 {
	out := make(map[int]float64, len(d.pmf))
	for k, p := range d.pmf {
		out[k] = p
	}
	return out
}

// Total returns the sum of all probabilities. Engine-produced distributions
// total 1 within tolerance; the accessor exists so callers and tests can
// verify the normalization invariant.
func (d Distribution) Total() float64 {
	var total float64
	for _, p := range d.pmf {
		total += p
	}
	return total
}

// MeanOf returns the expectation Σ f(k)·P(k).
func (d Distribution) MeanOf(f func(int) float64) float64 {
	var mean float64
	for k, p := range d.pmf {
		mean += f(k) * p
	}
	return mean
}

// Mean returns the expectation of the identity mapping.
func (d Distribution) Mean() float64 {
	return d.MeanOf(func(k int) float64 { return float64(k) })
}

// Stdev returns the standard deviation sqrt(E[X^2] - E[X]^2).
func (d Distribution) Stdev() float64 {
	ex2 := d.MeanOf(func(k int) float64 { return float64(k) * float64(k) })
	ex := d.Mean()
	variance := ex2 - ex*ex
	if variance < 0 {
		// Guard against float cancellation on degenerate distributions.
		variance = 0
	}
	return math.Sqrt(variance)
}

// combine forms the full cross product of two supports, bucketing the
// products of probabilities by f(a, b). Cost is proportional to the product
// of the support sizes; callers keep supports bounded via the engine cost
// guards.
func (d Distribution) combine(other Distribution, f func(a, b int) int) Distribution {
	out := make(map[int]float64, len(d.pmf)*len(other.pmf))
	for a, pa := range d.pmf {
		for b, pb := range other.pmf {
			out[f(a, b)] += pa * pb
		}
	}
	return Distribution{pmf: out}
}

// Add returns the distribution of X + Y for independent X, Y.
func (d Distribution) Add(other Distribution) Distribution {
	return d.combine(other, func(a, b int) int { return a + b })
}

// Sub returns the distribution of X - Y for independent X, Y.
func (d Distribution) Sub(other Distribution) Distribution {
	return d.combine(other, func(a, b int) int { return a - b })
}

// Mul returns the distribution of X * Y for independent X, Y.
func (d Distribution) Mul(other Distribution) Distribution {
	return d.combine(other, func(a, b int) int { return a * b })
}

// Div returns the distribution of X // Y (floor division) for independent
// X, Y.
//
// Postcondition: returns ErrDivisionByZero, before any combination work,
// when the divisor assigns non-zero probability to 0.
func (d Distribution) Div(other Distribution) (Distribution, error) {
	if other.Get(0) > 0 {
		return Distribution{}, fmt.Errorf("%w: divisor can roll 0", ErrDivisionByZero)
	}
	return d.combine(other, floorDiv), nil
}

// Neg returns the distribution of -X: every outcome negated, probabilities
// unchanged.
func (d Distribution) Neg() Distribution {
	out := make(map[int]float64, len(d.pmf))
	for k, p := range d.pmf {
		out[-k] = p
	}
	return Distribution{pmf: out}
}

// Advantage returns the distribution of max(X, X') for two independent draws
// of this distribution.
func (d Distribution) Advantage() Distribution {
	return d.combine(d, func(a, b int) int {
		if a > b {
			return a
		}
		return b
	})
}

// Disadvantage returns the distribution of min(X, X') for two independent
// draws of this distribution.
func (d Distribution) Disadvantage() Distribution {
	return d.combine(d, func(a, b int) int {
		if a < b {
			return a
		}
		return b
	})
}

// floorDiv divides a by b rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
