package expr_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/d20dist/internal/expr"
)

func TestParse_SimplePool(t *testing.T) {
	node, err := expr.Parse("3d6")
	require.NoError(t, err)
	pool, ok := node.(*expr.Pool)
	require.True(t, ok, "expected *expr.Pool, got %T", node)
	assert.Equal(t, 3, pool.Count)
	assert.Equal(t, 6, pool.Sides)
	assert.Empty(t, pool.Ops)
}

func TestParse_BareDieDefaultsToCountOne(t *testing.T) {
	node, err := expr.Parse("d20")
	require.NoError(t, err)
	pool, ok := node.(*expr.Pool)
	require.True(t, ok)
	assert.Equal(t, 1, pool.Count)
	assert.Equal(t, 20, pool.Sides)
}

func TestParse_Literal(t *testing.T) {
	node, err := expr.Parse("42")
	require.NoError(t, err)
	lit, ok := node.(*expr.Literal)
	require.True(t, ok)
	assert.Equal(t, 42, lit.Value)
}

func TestParse_KeepHighest(t *testing.T) {
	node, err := expr.Parse("4d6kh3")
	require.NoError(t, err)
	pool := node.(*expr.Pool)
	require.Len(t, pool.Ops, 1)
	assert.Equal(t, expr.OpKeep, pool.Ops[0].Op)
	require.Len(t, pool.Ops[0].Selectors, 1)
	assert.Equal(t, expr.Selector{Cat: expr.CatHighest, Num: 3}, pool.Ops[0].Selectors[0])
}

func TestParse_ModifierChainInOrder(t *testing.T) {
	node, err := expr.Parse("2d12rol1mi3")
	require.NoError(t, err)
	pool := node.(*expr.Pool)
	require.Len(t, pool.Ops, 2)
	assert.Equal(t, expr.OpRerollOnce, pool.Ops[0].Op)
	assert.Equal(t, expr.Selector{Cat: expr.CatLowest, Num: 1}, pool.Ops[0].Selectors[0])
	assert.Equal(t, expr.OpMin, pool.Ops[1].Op)
	assert.Equal(t, expr.Selector{Cat: expr.CatNone, Num: 3}, pool.Ops[1].Selectors[0])
}

func TestParse_ComparisonSelectors(t *testing.T) {
	node, err := expr.Parse("8d6p<3")
	require.NoError(t, err)
	pool := node.(*expr.Pool)
	require.Len(t, pool.Ops, 1)
	assert.Equal(t, expr.OpDrop, pool.Ops[0].Op)
	assert.Equal(t, expr.Selector{Cat: expr.CatLess, Num: 3}, pool.Ops[0].Selectors[0])

	node, err = expr.Parse("8d6k>4")
	require.NoError(t, err)
	pool = node.(*expr.Pool)
	assert.Equal(t, expr.Selector{Cat: expr.CatGreater, Num: 4}, pool.Ops[0].Selectors[0])
}

func TestParse_RerollVariantsAndExplode(t *testing.T) {
	for notation, want := range map[string]expr.Opcode{
		"1d20rr1": expr.OpRerollAlways,
		"1d20ra6": expr.OpRerollAdd,
		"1d8e8":   expr.OpExplode,
		"1d6ma4":  expr.OpMax,
	} {
		node, err := expr.Parse(notation)
		require.NoError(t, err, notation)
		pool := node.(*expr.Pool)
		require.Len(t, pool.Ops, 1, notation)
		assert.Equal(t, want, pool.Ops[0].Op, notation)
	}
}

func TestParse_Precedence(t *testing.T) {
	node, err := expr.Parse("1+2*3")
	require.NoError(t, err)
	add, ok := node.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.BinAdd, add.Op)
	mul, ok := add.Right.(*expr.Binary)
	require.True(t, ok, "multiplication must bind tighter than addition")
	assert.Equal(t, expr.BinMul, mul.Op)
}

func TestParse_Parentheses(t *testing.T) {
	node, err := expr.Parse(" ( 1d4 + 2 ) * 3 ")
	require.NoError(t, err)
	mul, ok := node.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.BinMul, mul.Op)
	paren, ok := mul.Left.(*expr.Paren)
	require.True(t, ok)
	inner, ok := paren.Inner.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.BinAdd, inner.Op)
}

func TestParse_UnaryMinus(t *testing.T) {
	node, err := expr.Parse("-1d4")
	require.NoError(t, err)
	un, ok := node.(*expr.Unary)
	require.True(t, ok)
	assert.Equal(t, expr.UnaryMinus, un.Op)
	_, ok = un.Operand.(*expr.Pool)
	assert.True(t, ok)
}

func TestParse_SyntaxErrors(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"1d20 +",
		"foo",
		"4d",
		"1d6k",
		"1d6m3",
		"2d6kh",
		"(1d6",
		"1d6)",
		"0d6",
		"1d0",
		"1d6 kh3", // modifiers attach without whitespace
		"1 2",
	}
	for _, notation := range cases {
		_, err := expr.Parse(notation)
		require.Error(t, err, "notation %q", notation)
		assert.ErrorIs(t, err, expr.ErrSyntax, "notation %q", notation)
	}
}

// TestParse_RoundTripPools_Property checks that every syntactically valid
// count/sides pair parses back to itself.
func TestParse_RoundTripPools_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 999).Draw(rt, "count")
		sides := rapid.IntRange(1, 999).Draw(rt, "sides")
		notation := rapid.SampledFrom([]string{"%dd%d", "%dd%dkh1", "%dd%dmi2"}).Draw(rt, "shape")

		node, err := expr.Parse(fmt.Sprintf(notation, count, sides))
		require.NoError(rt, err)
		pool, ok := node.(*expr.Pool)
		require.True(rt, ok)
		assert.Equal(rt, count, pool.Count)
		assert.Equal(rt, sides, pool.Sides)
	})
}
