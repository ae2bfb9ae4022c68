package net

import (
	"errors"
	"fmt"
)

var (
	// ErrNaN is wrapped by every NumericError.
	ErrNaN = errors.New("NaN value")
	// ErrState reports an operation called out of the forward/backward/update order.
	ErrState = errors.New("invalid network state")
)

// Stage identifies where in a layer a NaN was detected.
type Stage int

const (
	StagePreActivation Stage = iota
	StagePostActivation
	StageGradient
)

func (s Stage) String() string {
	switch s {
	case StagePreActivation:
		return "pre-activation"
	case StagePostActivation:
		return "post-activation"
	case StageGradient:
		return "gradient"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// NumericError reports a NaN produced while computing layer Layer.
type NumericError struct {
	Layer int
	Stage Stage
	Index int // flat index of the first NaN
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("layer %d: NaN %s value at index %d", e.Layer, e.Stage, e.Index)
}

func (e *NumericError) Unwrap() error {
	return ErrNaN
}

// StateError reports an operation that is not allowed in the current state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: not allowed in state %s", e.Op, e.State)
}

func (e *StateError) Unwrap() error {
	return ErrState
}
