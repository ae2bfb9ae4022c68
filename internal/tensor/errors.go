package tensor

import (
	"errors"
	"fmt"
)

// ErrDimension is wrapped by every DimensionError.
var ErrDimension = errors.New("dimension mismatch")

// DimensionError reports operands whose shapes are incompatible with an operation.
type DimensionError struct {
	Op     string // operation name, e.g. "matrix dot"
	A      Shape  // first operand shape
	B      Shape  // second operand shape, if any
	Reason string
}

// Error implements the error interface.
func (e *DimensionError) Error() string {
	switch {
	case e.A != nil && e.B != nil:
		return fmt.Sprintf("%s: %s and %s: %s", e.Op, e.A, e.B, e.Reason)
	case e.A != nil:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.A, e.Reason)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
}

// Unwrap allows errors.Is(err, ErrDimension).
func (e *DimensionError) Unwrap() error {
	return ErrDimension
}
