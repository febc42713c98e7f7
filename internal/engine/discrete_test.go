package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/d20dist/internal/dist"
	"github.com/cory-johannsen/d20dist/internal/engine"
	"github.com/cory-johannsen/d20dist/internal/expr"
)

func enumerate(t *testing.T, count, sides int, ops ...expr.Operation) dist.Distribution {
	t.Helper()
	d, err := engine.EnumerationDistribution(count, sides, ops, engine.DefaultLimits())
	require.NoError(t, err)
	return d
}

func uniformDie(sides int) dist.Distribution {
	pmf := make(map[int]float64, sides)
	for i := 1; i <= sides; i++ {
		pmf[i] = 1 / float64(sides)
	}
	return dist.New(pmf)
}

// clampMin raises every outcome of d below n up to n.
func clampMin(d dist.Distribution, n int) dist.Distribution {
	pmf := make(map[int]float64)
	for k, p := range d.ToMap() {
		if k < n {
			k = n
		}
		pmf[k] += p
	}
	return dist.New(pmf)
}

func assertSameDistribution(t *testing.T, want, got dist.Distribution, tol float64) {
	t.Helper()
	keys := map[int]struct{}{}
	for _, k := range want.Keys() {
		keys[k] = struct{}{}
	}
	for _, k := range got.Keys() {
		keys[k] = struct{}{}
	}
	for k := range keys {
		assert.InDelta(t, want.Get(k), got.Get(k), tol, "P(%d)", k)
	}
}

func TestEnumeration_PlainPoolMatchesConvolution(t *testing.T) {
	want := convolve(t, 3, 4)
	got := enumerate(t, 3, 4)
	assertSameDistribution(t, want, got, 1e-9)
}

func TestEnumeration_KeepHighestOfTwo(t *testing.T) {
	// 2d6kh1 is advantage on a d6: P(max=k) = (2k-1)/36.
	d := enumerate(t, 2, 6, op(expr.OpKeep, expr.CatHighest, 1))
	for k := 1; k <= 6; k++ {
		assert.InDelta(t, float64(2*k-1)/36, d.Get(k), 1e-9, "P(%d)", k)
	}
}

func TestEnumeration_KeepLowestOfTwo(t *testing.T) {
	d := enumerate(t, 2, 6, op(expr.OpKeep, expr.CatLowest, 1))
	for k := 1; k <= 6; k++ {
		assert.InDelta(t, float64(2*(7-k)-1)/36, d.Get(k), 1e-9, "P(%d)", k)
	}
}

func TestEnumeration_DropLowestEqualsKeepHighest(t *testing.T) {
	kept := enumerate(t, 4, 6, op(expr.OpKeep, expr.CatHighest, 3))
	dropped := enumerate(t, 4, 6, op(expr.OpDrop, expr.CatLowest, 1))
	assertSameDistribution(t, kept, dropped, 1e-9)
}

func TestEnumeration_SelectorLargerThanPoolKeepsAll(t *testing.T) {
	want := enumerate(t, 2, 6)
	got := enumerate(t, 2, 6, op(expr.OpKeep, expr.CatHighest, 5))
	assertSameDistribution(t, want, got, 1e-9)
}

func TestEnumeration_DropEverything(t *testing.T) {
	d := enumerate(t, 1, 6, op(expr.OpDrop, expr.CatGreater, 0))
	assert.Equal(t, []int{0}, d.Keys())
	assert.InDelta(t, 1.0, d.Get(0), 1e-9)
}

func TestEnumeration_RerollLowestIsAdvantagePlusFreshDie(t *testing.T) {
	// Rerolling the lowest of two dice keeps the higher one and replaces the
	// other with a fresh roll, so the sum is advantage(d12) + d12.
	d12 := uniformDie(12)
	want := d12.Advantage().Add(d12)
	got := enumerate(t, 2, 12, op(expr.OpRerollOnce, expr.CatLowest, 1))
	assertSameDistribution(t, want, got, 1e-9)
}

func TestEnumeration_RerollLowestThenMin(t *testing.T) {
	// mi3 clamps each die after the reroll, so both components clamp before
	// the sum.
	d12 := uniformDie(12)
	want := clampMin(d12.Advantage(), 3).Add(clampMin(d12, 3))
	got := enumerate(t, 2, 12,
		op(expr.OpRerollOnce, expr.CatLowest, 1),
		op(expr.OpMin, expr.CatNone, 3),
	)
	assertSameDistribution(t, want, got, 1e-9)
}

func TestEnumeration_RerollValueSelectorMatchesConvolution(t *testing.T) {
	ops := []expr.Operation{op(expr.OpRerollOnce, expr.CatLess, 3)}
	want := convolve(t, 2, 6, ops...)
	got := enumerate(t, 2, 6, ops...)
	assertSameDistribution(t, want, got, 1e-9)
}

func TestEnumeration_ExplodeD8(t *testing.T) {
	d := enumerate(t, 1, 8, op(expr.OpExplode, expr.CatNone, 8))

	// An 8 always explodes, so 8 itself is never a final outcome; the mass
	// moves to 8+1..8+8 and beyond.
	assert.Zero(t, d.Get(8))
	assert.Zero(t, d.Get(16))
	for k := 1; k <= 7; k++ {
		assert.InDelta(t, 0.125, d.Get(k), 1e-9, "P(%d)", k)
	}
	for k := 9; k <= 15; k++ {
		assert.InDelta(t, 0.015625, d.Get(k), 1e-9, "P(%d)", k)
	}
	assert.InDelta(t, 1.0/512, d.Get(17), 1e-9)
	assert.InDelta(t, 1.0/64, d.GetAtLeast(17), 1e-9)
	assert.InDelta(t, 1.0, d.Total(), 1e-9)
}

func TestEnumeration_ExplodeResidualFoldsEarly(t *testing.T) {
	// With a coarse cutoff the surviving branch mass is folded into the last
	// accumulated outcome instead of being discarded, so the total stays 1.
	lim := engine.DefaultLimits()
	lim.ExplodeEpsilon = 0.2
	d, err := engine.EnumerationDistribution(1, 2,
		[]expr.Operation{op(expr.OpExplode, expr.CatNone, 2)}, lim)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, d.Get(1), 1e-9)
	assert.InDelta(t, 0.25, d.Get(3), 1e-9)
	assert.InDelta(t, 0.125, d.Get(5), 1e-9)
	assert.InDelta(t, 0.125, d.Get(6), 1e-9, "residual branch mass folds into 2+2+2")
	assert.InDelta(t, 1.0, d.Total(), 1e-9)
}

func TestEnumeration_ExplodeRejectsPositionalSelector(t *testing.T) {
	_, err := engine.EnumerationDistribution(1, 8,
		[]expr.Operation{op(expr.OpExplode, expr.CatHighest, 1)}, engine.DefaultLimits())
	assert.ErrorIs(t, err, engine.ErrUnsupportedSelector)
}

func TestEnumeration_RejectsUnimplementedOpcodeWithoutSelectors(t *testing.T) {
	// An operation constructed without selectors must still fail on an
	// unimplemented opcode rather than silently passing the pool through.
	ops := []expr.Operation{{Op: expr.OpRerollAdd}}

	_, err := engine.EnumerationDistribution(1, 6, ops, engine.DefaultLimits())
	assert.ErrorIs(t, err, engine.ErrUnsupportedOperator)

	_, err = engine.PoolDistribution(1, 6, ops, engine.DefaultLimits())
	assert.ErrorIs(t, err, engine.ErrUnsupportedOperator)

	_, err = engine.PoolDistribution(1, 6,
		[]expr.Operation{{Op: expr.OpRerollAlways}}, engine.DefaultLimits())
	assert.ErrorIs(t, err, engine.ErrUnsupportedOperator)
}

func TestEnumeration_RejectsRerollAlwaysAndAdd(t *testing.T) {
	_, err := engine.EnumerationDistribution(1, 20,
		[]expr.Operation{op(expr.OpRerollAlways, expr.CatNone, 1)}, engine.DefaultLimits())
	assert.ErrorIs(t, err, engine.ErrUnsupportedOperator)

	_, err = engine.EnumerationDistribution(1, 20,
		[]expr.Operation{op(expr.OpRerollAdd, expr.CatNone, 6)}, engine.DefaultLimits())
	assert.ErrorIs(t, err, engine.ErrUnsupportedOperator)
}

func TestEnumeration_MinRejectsPositionalSelector(t *testing.T) {
	_, err := engine.EnumerationDistribution(4, 6,
		[]expr.Operation{op(expr.OpMin, expr.CatHighest, 2)}, engine.DefaultLimits())
	assert.ErrorIs(t, err, engine.ErrUnsupportedSelector)
}

func TestEnumeration_CostGuard(t *testing.T) {
	// 6^6 = 46656 outcomes exceeds the default 8192 guard; 6^4 = 1296 fits.
	_, err := engine.EnumerationDistribution(6, 6,
		[]expr.Operation{op(expr.OpKeep, expr.CatHighest, 3)}, engine.DefaultLimits())
	assert.ErrorIs(t, err, engine.ErrComputationTooLarge)

	_, err = engine.EnumerationDistribution(4, 6,
		[]expr.Operation{op(expr.OpKeep, expr.CatHighest, 3)}, engine.DefaultLimits())
	assert.NoError(t, err)
}

func TestEnumeration_CostGuardDoesNotOverflow(t *testing.T) {
	// 12^100 overflows int64 many times over; the guard must still fire.
	_, err := engine.EnumerationDistribution(100, 12, nil, engine.DefaultLimits())
	assert.ErrorIs(t, err, engine.ErrComputationTooLarge)
}

func TestEnumeration_Deterministic(t *testing.T) {
	ops := []expr.Operation{op(expr.OpKeep, expr.CatHighest, 2)}
	first := enumerate(t, 4, 6, ops...)
	second := enumerate(t, 4, 6, ops...)
	assert.Equal(t, first.ToMap(), second.ToMap())
}
