package engine

import "errors"

// Error kinds raised by the engines and the dispatcher. All are returned at
// the point of detection and propagate unchanged to the caller; there are no
// retries and no partial results.
var (
	// ErrUnsupportedOperator reports a modifier opcode neither engine
	// implements (notably "rr" and "ra", which parse but never evaluate).
	ErrUnsupportedOperator = errors.New("engine: unsupported operator")

	// ErrUnsupportedSelector reports a selector category the targeted
	// operation cannot honor, e.g. a highest/lowest selector on mi/ma, or
	// explode on the convolution engine.
	ErrUnsupportedSelector = errors.New("engine: unsupported selector for operator")

	// ErrInvalidSelector reports a selector category outside the defined set.
	ErrInvalidSelector = errors.New("engine: invalid selector category")

	// ErrComputationTooLarge reports a pool that exceeds the cost guard of
	// the engine it was routed to. It is raised before any enumeration or
	// convolution work begins.
	ErrComputationTooLarge = errors.New("engine: computation too large")
)
