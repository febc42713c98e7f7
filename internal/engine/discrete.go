package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cory-johannsen/d20dist/internal/dist"
	"github.com/cory-johannsen/d20dist/internal/expr"
)

// jointTolerance is the normalization tolerance for the joint distribution
// after an order-dependent transform. A violation is a defect in the
// transform, not a recoverable condition.
const jointTolerance = 1e-6

// discreteBuilder computes a pool's distribution by materializing the full
// joint outcome space and applying modifiers directly on outcome tuples. It
// handles the order- and count-dependent modifiers the convolution engine
// cannot: highest/lowest selection, reroll-with-ordering, and exploding dice.
//
// Keys are canonical: tuples are sorted ascending before use, merging the
// probability mass of permutation-equivalent rolls. Dice of one pool are
// exchangeable, so two orderings of the same multiset are the same physical
// outcome; merging both preserves normalization and keeps the key space from
// blowing up with redundant permutations.
type discreteBuilder struct {
	count  int
	sides  int
	cutoff float64
	joint  map[string]float64
}

// newDiscreteBuilder enumerates the Cartesian product of count dice with
// sides faces, accumulating uniform mass per canonical key.
//
// Postcondition: returns ErrComputationTooLarge, before enumerating anything,
// when sides^count exceeds the enumeration cost guard.
func newDiscreteBuilder(count, sides int, lim Limits) (*discreteBuilder, error) {
	possibilities, ok := boundedPow(sides, count, lim.Enumeration)
	if !ok {
		return nil, fmt.Errorf("%w: %dd%d has more than %d outcomes",
			ErrComputationTooLarge, count, sides, lim.Enumeration)
	}

	b := &discreteBuilder{
		count:  count,
		sides:  sides,
		cutoff: lim.ExplodeEpsilon,
		joint:  make(map[string]float64, possibilities),
	}

	mass := 1 / float64(possibilities)
	faces := make([]int, count)
	for i := range faces {
		faces[i] = 1
	}
	for {
		b.add(b.joint, faces, mass)
		// Odometer increment over the outcome space.
		i := count - 1
		for i >= 0 && faces[i] == sides {
			faces[i] = 1
			i--
		}
		if i < 0 {
			break
		}
		faces[i]++
	}
	return b, nil
}

// boundedPow computes base^exp unless it exceeds limit, multiplying
// incrementally so the check never overflows.
func boundedPow(base, exp, limit int) (int, bool) {
	result := 1
	for i := 0; i < exp; i++ {
		if result > limit/base {
			return 0, false
		}
		result *= base
	}
	if result > limit {
		return 0, false
	}
	return result, true
}

// add accumulates mass under the canonical (sorted) form of faces.
func (b *discreteBuilder) add(joint map[string]float64, faces []int, mass float64) {
	joint[canonicalKey(faces)] += mass
}

// canonicalKey sorts a copy of the tuple ascending and encodes it. The empty
// tuple (every die kept nothing) encodes as the empty string and sums to 0.
func canonicalKey(faces []int) string {
	sorted := make([]int, len(faces))
	copy(sorted, faces)
	sort.Ints(sorted)
	var sb strings.Builder
	for i, f := range sorted {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(f))
	}
	return sb.String()
}

func decodeKey(key string) []int {
	if key == "" {
		return nil
	}
	parts := strings.Split(key, ",")
	faces := make([]int, len(parts))
	for i, part := range parts {
		f, err := strconv.Atoi(part)
		if err != nil {
			// Keys are only ever produced by canonicalKey; a malformed one is
			// a defect, not an input error.
			panic(fmt.Sprintf("engine: malformed joint key %q", key))
		}
		faces[i] = f
	}
	return faces
}

func sumFaces(faces []int) int {
	total := 0
	for _, f := range faces {
		total += f
	}
	return total
}

// applyOperation applies one modifier to the joint distribution, in
// expression order. The opcode is resolved before the selector loop so a
// recognized-but-unimplemented opcode (rr, ra) errors even with an empty
// selector list instead of silently doing nothing.
func (b *discreteBuilder) applyOperation(op expr.Operation) error {
	var apply func(expr.Selector) error
	switch op.Op {
	case expr.OpMin:
		apply = b.applyMin
	case expr.OpMax:
		apply = b.applyMax
	case expr.OpKeep:
		apply = func(sel expr.Selector) error {
			return b.transform(func(faces []int) ([]int, error) { return keepFaces(faces, sel) })
		}
	case expr.OpDrop:
		apply = func(sel expr.Selector) error {
			return b.transform(func(faces []int) ([]int, error) { return dropFaces(faces, sel) })
		}
	case expr.OpRerollOnce:
		apply = b.applyRerollOnce
	case expr.OpExplode:
		apply = b.applyExplode
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOperator, op.Op)
	}
	for _, sel := range op.Selectors {
		if err := apply(sel); err != nil {
			return err
		}
	}
	return nil
}

// transform rebuilds the joint distribution by mapping every tuple through f
// and re-canonicalizing the result, merging mass on key collisions.
func (b *discreteBuilder) transform(f func([]int) ([]int, error)) error {
	next := make(map[string]float64, len(b.joint))
	for key, mass := range b.joint {
		faces, err := f(decodeKey(key))
		if err != nil {
			return err
		}
		b.add(next, faces, mass)
	}
	b.joint = next
	return nil
}

// applyMin clamps every die in every tuple up to the selector value.
func (b *discreteBuilder) applyMin(sel expr.Selector) error {
	if sel.Cat != expr.CatNone {
		return fmt.Errorf("%w: %q on mi", ErrUnsupportedSelector, sel.Cat)
	}
	return b.transform(func(faces []int) ([]int, error) {
		out := make([]int, len(faces))
		for i, f := range faces {
			if f < sel.Num {
				f = sel.Num
			}
			out[i] = f
		}
		return out, nil
	})
}

// applyMax clamps every die in every tuple down to the selector value.
func (b *discreteBuilder) applyMax(sel expr.Selector) error {
	if sel.Cat != expr.CatNone {
		return fmt.Errorf("%w: %q on ma", ErrUnsupportedSelector, sel.Cat)
	}
	return b.transform(func(faces []int) ([]int, error) {
		out := make([]int, len(faces))
		for i, f := range faces {
			if f > sel.Num {
				f = sel.Num
			}
			out[i] = f
		}
		return out, nil
	})
}

// keepFaces keeps the dice matching the selector. Highest/lowest selectors
// sort the tuple and slice the top/bottom N.
func keepFaces(faces []int, sel expr.Selector) ([]int, error) {
	switch sel.Cat {
	case expr.CatHighest:
		sorted := sortedCopy(faces, true)
		return sorted[:minInt(sel.Num, len(sorted))], nil
	case expr.CatLowest:
		sorted := sortedCopy(faces, false)
		return sorted[:minInt(sel.Num, len(sorted))], nil
	default:
		out := make([]int, 0, len(faces))
		for _, f := range faces {
			match, err := matchesSelector(f, sel)
			if err != nil {
				return nil, err
			}
			if match {
				out = append(out, f)
			}
		}
		return out, nil
	}
}

// dropFaces is the exact inverse of keepFaces: it keeps the complementary
// set, or slices off the opposite end for highest/lowest.
func dropFaces(faces []int, sel expr.Selector) ([]int, error) {
	switch sel.Cat {
	case expr.CatHighest:
		sorted := sortedCopy(faces, true)
		return sorted[minInt(sel.Num, len(sorted)):], nil
	case expr.CatLowest:
		sorted := sortedCopy(faces, false)
		return sorted[minInt(sel.Num, len(sorted)):], nil
	default:
		out := make([]int, 0, len(faces))
		for _, f := range faces {
			match, err := matchesSelector(f, sel)
			if err != nil {
				return nil, err
			}
			if !match {
				out = append(out, f)
			}
		}
		return out, nil
	}
}

// applyRerollOnce replaces each affected die with one fresh uniform roll.
// For a given original tuple every combination of fresh values for the
// affected dice is equally likely, so the tuple's mass is spread evenly over
// all such combinations. Highest/lowest selectors pick the positionally
// highest or lowest N dice of the sorted tuple first; which physical dice
// those are depends on the full tuple, not a per-value predicate.
func (b *discreteBuilder) applyRerollOnce(sel expr.Selector) error {
	next := make(map[string]float64, len(b.joint))
	for key, mass := range b.joint {
		outcomes, err := b.rerollOutcomes(decodeKey(key), sel)
		if err != nil {
			return err
		}
		share := mass / float64(len(outcomes))
		for _, outcome := range outcomes {
			b.add(next, outcome, share)
		}
	}
	b.joint = next
	b.assertNormalized("reroll")
	return nil
}

// rerollOutcomes enumerates every equally likely tuple reachable from faces
// by rerolling the selector's dice once. For highest/lowest the selector
// count decrements as it walks the sorted tuple; for value selectors each
// die is tested independently.
func (b *discreteBuilder) rerollOutcomes(faces []int, sel expr.Selector) ([][]int, error) {
	if len(faces) == 0 {
		return [][]int{nil}, nil
	}

	if sel.Cat == expr.CatHighest || sel.Cat == expr.CatLowest {
		if sel.Num <= 0 {
			return [][]int{faces}, nil
		}
		sorted := sortedCopy(faces, sel.Cat == expr.CatHighest)
		rest, err := b.rerollOutcomes(sorted[1:], expr.Selector{Cat: sel.Cat, Num: sel.Num - 1})
		if err != nil {
			return nil, err
		}
		return b.expandFreshRolls(rest), nil
	}

	first, tail := faces[0], faces[1:]
	rest, err := b.rerollOutcomes(tail, sel)
	if err != nil {
		return nil, err
	}
	match, err := matchesSelector(first, sel)
	if err != nil {
		return nil, err
	}
	if match {
		return b.expandFreshRolls(rest), nil
	}
	outcomes := make([][]int, 0, len(rest))
	for _, combo := range rest {
		outcomes = append(outcomes, append([]int{first}, combo...))
	}
	return outcomes, nil
}

// expandFreshRolls prefixes every face value of one fresh die to each
// partial outcome.
func (b *discreteBuilder) expandFreshRolls(rest [][]int) [][]int {
	outcomes := make([][]int, 0, len(rest)*b.sides)
	for _, combo := range rest {
		for roll := 1; roll <= b.sides; roll++ {
			outcome := make([]int, 0, len(combo)+1)
			outcome = append(outcome, roll)
			outcome = append(outcome, combo...)
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

// applyExplode recursively appends fresh full-pool rolls to every outcome
// whose sum satisfies the selector. The recursion is driven by an explicit
// worklist of (accumulated key, accumulated mass) pairs so depth is bounded
// by the cutoff, not the call stack. When a branch's joint mass falls below
// the cutoff its remaining mass is folded into the accumulated key reached so
// far, one level early relative to the true infinite tail. That keeps the
// total mass exactly 1 at the cost of a bias within the cutoff epsilon.
// Convergence is geometric: each level retains at most the probability of
// satisfying the selector again.
func (b *discreteBuilder) applyExplode(sel expr.Selector) error {
	if err := validateValueSelector(sel); err != nil {
		return err
	}

	type frame struct {
		acc  []int
		mass float64
	}

	base := b.joint
	result := make(map[string]float64, len(base))
	work := []frame{{acc: nil, mass: 1}}
	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]
		for key, p := range base {
			faces := decodeKey(key)
			joint := f.mass * p
			accumulated := make([]int, 0, len(f.acc)+len(faces))
			accumulated = append(accumulated, f.acc...)
			accumulated = append(accumulated, faces...)
			if joint < b.cutoff {
				b.add(result, accumulated, joint)
				continue
			}
			match, err := matchesSelector(sumFaces(faces), sel)
			if err != nil {
				return err
			}
			if match {
				work = append(work, frame{acc: accumulated, mass: joint})
			} else {
				b.add(result, accumulated, joint)
			}
		}
	}
	b.joint = result
	b.assertNormalized("explode")
	return nil
}

// assertNormalized verifies the joint distribution still sums to 1. A
// violation indicates a defect in a transform and fails loudly rather than
// returning silently-wrong probabilities.
func (b *discreteBuilder) assertNormalized(stage string) {
	var total float64
	for _, mass := range b.joint {
		total += mass
	}
	if math.Abs(total-1) > jointTolerance {
		panic(fmt.Sprintf("engine: joint distribution not normalized after %s: total %.12f", stage, total))
	}
}

// distribution collapses the joint distribution by summing each tuple's
// values into a per-outcome probability.
func (b *discreteBuilder) distribution() dist.Distribution {
	pmf := make(map[int]float64, len(b.joint))
	for key, mass := range b.joint {
		pmf[sumFaces(decodeKey(key))] += mass
	}
	return dist.New(pmf)
}

func sortedCopy(faces []int, descending bool) []int {
	out := make([]int, len(faces))
	copy(out, faces)
	if descending {
		sort.Sort(sort.Reverse(sort.IntSlice(out)))
	} else {
		sort.Ints(out)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
