package layer

import (
	"errors"
	"fmt"

	"github.com/FlavioCFOliveira/GoConvNet/internal/activations"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

// ErrShape is wrapped by every ShapeError.
var ErrShape = errors.New("invalid shape")

// ShapeError reports the first inconsistency found in a layer sequence, or an
// input/output whose dimensions do not match the network.
type ShapeError struct {
	Index    int    // offending layer
	Type     Type   // its type
	Field    string // dimension name, e.g. "w" or "depth"
	Expected int
	Actual   int
	Reason   string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("[%d] %s", e.Index, e.Type)
	if e.Field != "" {
		msg += fmt.Sprintf(": %s expected %d, actual %d", e.Field, e.Expected, e.Actual)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap allows errors.Is(err, ErrShape).
func (e *ShapeError) Unwrap() error {
	return ErrShape
}

func mismatch(i int, s Spec, field string, expected, actual int) *ShapeError {
	return &ShapeError{Index: i, Type: s.Type, Field: field, Expected: expected, Actual: actual}
}

func invalid(i int, s Spec, format string, args ...any) *ShapeError {
	return &ShapeError{Index: i, Type: s.Type, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that a layer sequence is internally consistent. It returns a
// *ShapeError describing the first violation, and has no side effects.
func Validate(shape []Spec) error {
	if len(shape) == 0 {
		return &ShapeError{Reason: "network needs at least an input layer"}
	}
	if shape[0].Type != TypeInput {
		return invalid(0, shape[0], "the first layer must be an input layer")
	}
	if err := positive(0, shape[0], "w", "h", "d"); err != nil {
		return err
	}
	if shape[0].Activation != activations.None {
		return invalid(0, shape[0], "input layers take no activation")
	}

	for i := 1; i < len(shape); i++ {
		prev, cur := shape[i-1], shape[i]
		if !cur.Type.valid() {
			return invalid(i, cur, "unknown layer type")
		}
		if !cur.Activation.Valid() {
			return invalid(i, cur, "unknown activation %d", int(cur.Activation))
		}

		var err *ShapeError
		switch cur.Type {
		case TypeInput:
			err = invalid(i, cur, "only the first layer can be an input layer")
		case TypeConv:
			err = validateConv(i, prev, cur)
		case TypePool:
			err = validatePool(i, prev, cur)
		case TypeFC:
			if !prev.Flat() {
				err = invalid(i, cur, "the previous layer should be fc or flatten, got %s", prev.Type)
			} else {
				err = positive(i, cur, "l")
			}
		case TypeFlatten:
			err = validateFlatten(i, prev, cur)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func field(s Spec, name string) int {
	switch name {
	case "w":
		return s.W
	case "h":
		return s.H
	case "d":
		return s.D
	case "f":
		return s.F
	case "k":
		return s.K
	case "s":
		return s.S
	case "l":
		return s.L
	}
	return 0
}

func positive(i int, s Spec, names ...string) *ShapeError {
	for _, name := range names {
		if v := field(s, name); v < 1 {
			return invalid(i, s, "%s must be positive, got %d", name, v)
		}
	}
	return nil
}

func validateConv(i int, prev, cur Spec) *ShapeError {
	if !prev.Spatial() {
		return invalid(i, cur, "the previous layer must be a volume, got %s", prev.Type)
	}
	if err := positive(i, cur, "f", "k", "s"); err != nil {
		return err
	}
	if cur.P < 0 {
		return invalid(i, cur, "p must not be negative, got %d", cur.P)
	}
	outW := tensor.ConvOutputSize(prev.W, cur.F, cur.S, cur.P)
	outH := tensor.ConvOutputSize(prev.H, cur.F, cur.S, cur.P)
	if outW < 1 || outH < 1 {
		return invalid(i, cur, "filter %d does not fit input %dx%d with padding %d", cur.F, prev.W, prev.H, cur.P)
	}
	if cur.W != outW {
		return mismatch(i, cur, "w", outW, cur.W)
	}
	if cur.H != outH {
		return mismatch(i, cur, "h", outH, cur.H)
	}
	if cur.D != cur.K {
		return mismatch(i, cur, "d", cur.K, cur.D)
	}
	return nil
}

func validatePool(i int, prev, cur Spec) *ShapeError {
	if !prev.Spatial() {
		return invalid(i, cur, "the previous layer must be a volume, got %s", prev.Type)
	}
	if err := positive(i, cur, "f", "s"); err != nil {
		return err
	}
	if cur.P != 0 {
		return invalid(i, cur, "pooling layers take no padding, got p=%d", cur.P)
	}
	outW := tensor.PoolOutputSize(prev.W, cur.F, cur.S)
	outH := tensor.PoolOutputSize(prev.H, cur.F, cur.S)
	if outW < 1 || outH < 1 {
		return invalid(i, cur, "window %d does not fit input %dx%d", cur.F, prev.W, prev.H)
	}
	if cur.W != outW {
		return mismatch(i, cur, "w", outW, cur.W)
	}
	if cur.H != outH {
		return mismatch(i, cur, "h", outH, cur.H)
	}
	if cur.D != prev.D {
		return mismatch(i, cur, "d", prev.D, cur.D)
	}
	return nil
}

func validateFlatten(i int, prev, cur Spec) *ShapeError {
	if prev.Flat() {
		return invalid(i, cur, "the previous layer can't be flat, got %s", prev.Type)
	}
	if cur.Activation != activations.None {
		return invalid(i, cur, "flatten layers take no activation")
	}
	if cur.W != prev.W {
		return mismatch(i, cur, "w", prev.W, cur.W)
	}
	if cur.H != prev.H {
		return mismatch(i, cur, "h", prev.H, cur.H)
	}
	if cur.D != prev.D {
		return mismatch(i, cur, "d", prev.D, cur.D)
	}
	if cur.L != 0 && cur.L != cur.W*cur.H*cur.D {
		return mismatch(i, cur, "l", cur.W*cur.H*cur.D, cur.L)
	}
	return nil
}
