package engine

import (
	"fmt"

	"github.com/cory-johannsen/d20dist/internal/expr"
)

// matchesSelector reports whether a single face value satisfies a per-value
// selector. Highest/lowest selectors depend on the full pool ordering, not a
// per-value predicate, so they are rejected here; operations that support
// them handle those categories before calling this.
func matchesSelector(value int, sel expr.Selector) (bool, error) {
	switch sel.Cat {
	case expr.CatNone:
		return value == sel.Num, nil
	case expr.CatLess:
		return value < sel.Num, nil
	case expr.CatGreater:
		return value > sel.Num, nil
	case expr.CatHighest, expr.CatLowest:
		return false, fmt.Errorf("%w: %q is order-dependent", ErrUnsupportedSelector, sel.Cat)
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidSelector, sel.Cat)
	}
}

// validateValueSelector checks that a selector is one of the per-value
// categories (exact, less-than, greater-than) without matching anything.
func validateValueSelector(sel expr.Selector) error {
	_, err := matchesSelector(0, sel)
	return err
}
