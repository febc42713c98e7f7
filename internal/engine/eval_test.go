package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/d20dist/internal/dist"
	"github.com/cory-johannsen/d20dist/internal/engine"
	"github.com/cory-johannsen/d20dist/internal/expr"
)

func evalNotation(t *testing.T, notation string) dist.Distribution {
	t.Helper()
	d, err := engine.EvaluateNotation(notation, engine.DefaultLimits())
	require.NoError(t, err)
	return d
}

func TestEvaluate_ConstantArithmetic(t *testing.T) {
	d := evalNotation(t, "2+3*4")
	assert.Equal(t, []int{14}, d.Keys())

	d = evalNotation(t, "7/2")
	assert.Equal(t, []int{3}, d.Keys())

	d = evalNotation(t, "-7/2")
	assert.Equal(t, []int{-4}, d.Keys(), "floor division rounds toward negative infinity")
}

func TestEvaluate_PoolPlusModifier(t *testing.T) {
	d := evalNotation(t, "3d6+5")
	assert.Equal(t, 8, d.Min())
	assert.Equal(t, 23, d.Max())
	assert.InDelta(t, 15.5, d.Mean(), 1e-9)
}

func TestEvaluate_ParenthesizedScaling(t *testing.T) {
	d := evalNotation(t, "2*(1d4-1)")
	assert.Equal(t, []int{0, 2, 4, 6}, d.Keys())
	for _, k := range d.Keys() {
		assert.InDelta(t, 0.25, d.Get(k), 1e-9)
	}
}

func TestEvaluate_UnaryMinus(t *testing.T) {
	d := evalNotation(t, "-d4+10")
	assert.Equal(t, 6, d.Min())
	assert.Equal(t, 9, d.Max())
}

func TestEvaluate_ProductOfPools(t *testing.T) {
	d := evalNotation(t, "(1d4)*(1d4)")
	assert.Equal(t, 1, d.Min())
	assert.Equal(t, 16, d.Max())
	// 4 = 1*4, 2*2, 4*1.
	assert.InDelta(t, 3.0/16, d.Get(4), 1e-9)
}

func TestEvaluate_DivisionByZeroLiteral(t *testing.T) {
	_, err := engine.EvaluateNotation("1d6/0", engine.DefaultLimits())
	assert.ErrorIs(t, err, dist.ErrDivisionByZero)
}

func TestEvaluate_DivisionByDistributionSpanningZero(t *testing.T) {
	_, err := engine.EvaluateNotation("1d6/(1d4-1)", engine.DefaultLimits())
	assert.ErrorIs(t, err, dist.ErrDivisionByZero)
}

func TestEvaluate_UnsupportedRerollSurfaces(t *testing.T) {
	_, err := engine.EvaluateNotation("1d20rr1", engine.DefaultLimits())
	assert.ErrorIs(t, err, engine.ErrUnsupportedOperator)

	_, err = engine.EvaluateNotation("1d20ra6", engine.DefaultLimits())
	assert.ErrorIs(t, err, engine.ErrUnsupportedOperator)
}

func TestEvaluate_SyntaxErrorSurfaces(t *testing.T) {
	_, err := engine.EvaluateNotation("1d20 +", engine.DefaultLimits())
	assert.ErrorIs(t, err, expr.ErrSyntax)
}

func TestEvaluate_MixedExpressionNormalized(t *testing.T) {
	d := evalNotation(t, "4d6kh3+2*(1d4-1)")
	assert.InDelta(t, 1.0, d.Total(), 1e-9)
	assert.Equal(t, 3, d.Min())
	assert.Equal(t, 24, d.Max())
}
