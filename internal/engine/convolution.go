package engine

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/d20dist/internal/dist"
	"github.com/cory-johannsen/d20dist/internal/expr"
)

// sparseThreshold drops negligible entries when building the final
// distribution so the support stays sparse after long convolutions.
const sparseThreshold = 1e-10

// convolutionBuilder computes a pool's distribution by transforming a
// single-die probability vector and self-convolving it count times. It only
// supports modifiers expressible as a transformation of that single-die
// vector; SupportsConvolution gates routing.
//
// Vector layout: index i holds the probability of face i. Index 0 is a sink
// bucket for mass removed by keep/drop; a die whose mass lands there
// contributes nothing to the pool's sum.
type convolutionBuilder struct {
	count int
	sides int
	vec   []float64
}

// newConvolutionBuilder initializes the uniform single-die vector.
//
// Postcondition: returns ErrComputationTooLarge, before any vector is built,
// when count*sides exceeds the convolution cost guard.
func newConvolutionBuilder(count, sides int, lim Limits) (*convolutionBuilder, error) {
	if count*sides > lim.Convolution {
		return nil, fmt.Errorf("%w: %dd%d exceeds convolution limit %d",
			ErrComputationTooLarge, count, sides, lim.Convolution)
	}
	vec := make([]float64, sides+1)
	for i := 1; i <= sides; i++ {
		vec[i] = 1 / float64(sides)
	}
	return &convolutionBuilder{count: count, sides: sides, vec: vec}, nil
}

// applyOperation applies one modifier to the single-die vector, in
// expression order.
func (b *convolutionBuilder) applyOperation(op expr.Operation) error {
	switch op.Op {
	case expr.OpMin:
		return b.applyMin(op.Selectors)
	case expr.OpMax:
		return b.applyMax(op.Selectors)
	case expr.OpKeep:
		return b.applyKeep(op.Selectors)
	case expr.OpDrop:
		return b.applyDrop(op.Selectors)
	case expr.OpRerollOnce:
		return b.applyRerollOnce(op.Selectors)
	case expr.OpExplode:
		return fmt.Errorf("%w: explode is not convolution-safe", ErrUnsupportedSelector)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOperator, op.Op)
	}
}

// applyMin folds all mass at faces below n into face n. The vector is
// extended with zero-probability slots when n exceeds the current length.
func (b *convolutionBuilder) applyMin(sels []expr.Selector) error {
	for _, sel := range sels {
		if sel.Cat != expr.CatNone {
			return fmt.Errorf("%w: %q on mi", ErrUnsupportedSelector, sel.Cat)
		}
		n := sel.Num
		for len(b.vec) <= n {
			b.vec = append(b.vec, 0)
		}
		for i := 1; i < n; i++ {
			b.vec[n] += b.vec[i]
			b.vec[i] = 0
		}
	}
	return nil
}

// applyMax folds all mass at faces above n into face n.
func (b *convolutionBuilder) applyMax(sels []expr.Selector) error {
	for _, sel := range sels {
		if sel.Cat != expr.CatNone {
			return fmt.Errorf("%w: %q on ma", ErrUnsupportedSelector, sel.Cat)
		}
		n := sel.Num
		if n >= len(b.vec) {
			continue
		}
		for i := n + 1; i < len(b.vec); i++ {
			b.vec[n] += b.vec[i]
			b.vec[i] = 0
		}
	}
	return nil
}

// applyKeep moves the mass of every face not satisfying the selector to the
// sink.
func (b *convolutionBuilder) applyKeep(sels []expr.Selector) error {
	for _, sel := range sels {
		for i := 1; i < len(b.vec); i++ {
			match, err := matchesSelector(i, sel)
			if err != nil {
				return err
			}
			if !match {
				b.vec[0] += b.vec[i]
				b.vec[i] = 0
			}
		}
	}
	return nil
}

// applyDrop is the inverse of keep: satisfying faces move to the sink.
func (b *convolutionBuilder) applyDrop(sels []expr.Selector) error {
	for _, sel := range sels {
		for i := 1; i < len(b.vec); i++ {
			match, err := matchesSelector(i, sel)
			if err != nil {
				return err
			}
			if match {
				b.vec[0] += b.vec[i]
				b.vec[i] = 0
			}
		}
	}
	return nil
}

// applyRerollOnce rerolls each face satisfying the selector a single time:
// the pooled mass of all satisfying faces is redistributed uniformly across
// one fresh roll, so every rollable face 1..sides gains an even 1/sides share
// of that pool. Faces only reachable through a prior mi extension are beyond
// sides and gain nothing from a fresh roll.
func (b *convolutionBuilder) applyRerollOnce(sels []expr.Selector) error {
	for _, sel := range sels {
		var occurring float64
		for i := 1; i < len(b.vec); i++ {
			match, err := matchesSelector(i, sel)
			if err != nil {
				return err
			}
			if match {
				occurring += b.vec[i]
				b.vec[i] = 0
			}
		}
		share := occurring / float64(b.sides)
		for i := 1; i <= b.sides && i < len(b.vec); i++ {
			b.vec[i] += share
		}
	}
	return nil
}

// distribution self-convolves the single-die vector count times and builds
// the result from non-negligible entries. Sink mass (index 0) flows through
// the convolution contributing 0 to the sum, which is exactly the "this die
// contributes nothing" semantics of keep/drop.
func (b *convolutionBuilder) distribution() dist.Distribution {
	result := []float64{1}
	for n := 0; n < b.count; n++ {
		result = convolve(result, b.vec)
	}
	pmf := make(map[int]float64)
	for k, p := range result {
		if math.Abs(p) >= sparseThreshold {
			pmf[k] = p
		}
	}
	return dist.New(pmf)
}

// convolve returns the polynomial convolution of a and b: out[k] is the
// total probability of index pairs summing to k. Pairwise convolution is
// associative and commutative, so repeated application composes identical
// dice in any order.
func convolve(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, pa := range a {
		if pa == 0 {
			continue
		}
		for j, pb := range b {
			out[i+j] += pa * pb
		}
	}
	return out
}

// SupportsConvolution reports whether every operation in a modifier chain is
// expressible as a single-die vector transformation. Explode and reroll-add
// are not; neither is any highest/lowest selector.
func SupportsConvolution(ops []expr.Operation) bool {
	for _, op := range ops {
		if op.Op == expr.OpExplode || op.Op == expr.OpRerollAdd {
			return false
		}
		for _, sel := range op.Selectors {
			if sel.Cat == expr.CatHighest || sel.Cat == expr.CatLowest {
				return false
			}
		}
	}
	return true
}
