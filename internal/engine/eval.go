package engine

import (
	"fmt"

	"github.com/cory-johannsen/d20dist/internal/dist"
	"github.com/cory-johannsen/d20dist/internal/expr"
)

// Evaluate walks an expression tree and composes the distributions of its
// subtrees through the dist algebra. Subtrees are independent, so evaluation
// order does not affect the result.
func Evaluate(node expr.Node, lim Limits) (dist.Distribution, error) {
	switch n := node.(type) {
	case *expr.Literal:
		return dist.Single(n.Value), nil

	case *expr.Unary:
		operand, err := Evaluate(n.Operand, lim)
		if err != nil {
			return dist.Distribution{}, err
		}
		switch n.Op {
		case expr.UnaryPlus:
			return operand, nil
		case expr.UnaryMinus:
			return operand.Neg(), nil
		default:
			return dist.Distribution{}, fmt.Errorf("%w: unary %q", ErrUnsupportedOperator, n.Op)
		}

	case *expr.Binary:
		left, err := Evaluate(n.Left, lim)
		if err != nil {
			return dist.Distribution{}, err
		}
		right, err := Evaluate(n.Right, lim)
		if err != nil {
			return dist.Distribution{}, err
		}
		switch n.Op {
		case expr.BinAdd:
			return left.Add(right), nil
		case expr.BinSub:
			return left.Sub(right), nil
		case expr.BinMul:
			return left.Mul(right), nil
		case expr.BinDiv:
			return left.Div(right)
		default:
			return dist.Distribution{}, fmt.Errorf("%w: binary %q", ErrUnsupportedOperator, n.Op)
		}

	case *expr.Paren:
		return Evaluate(n.Inner, lim)

	case *expr.Pool:
		return PoolDistribution(n.Count, n.Sides, n.Ops, lim)

	default:
		return dist.Distribution{}, fmt.Errorf("%w: expression node %T", ErrUnsupportedOperator, node)
	}
}

// EvaluateNotation parses raw dice notation and evaluates it in one call.
func EvaluateNotation(notation string, lim Limits) (dist.Distribution, error) {
	node, err := expr.Parse(notation)
	if err != nil {
		return dist.Distribution{}, err
	}
	return Evaluate(node, lim)
}
