// Package activations provides the activation functions a layer can be tagged with.
package activations

import (
	"fmt"
	"math"
)

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes y = f(x)
	Activate(x float64) float64

	// Derivative computes f'(x) from the activated value y = f(x).
	// The network only keeps activated values, so derivatives are expressed in y.
	Derivative(y float64) float64
}

// Kind is the symbolic tag stored in layer specifications and snapshots.
// Only the tag is ever serialized; the function pair is resolved with Lookup.
type Kind int

const (
	None Kind = iota
	ReLUKind
	SigmoidKind
	TanhKind
)

var kindNames = map[Kind]string{
	None:        "none",
	ReLUKind:    "relu",
	SigmoidKind: "sigmoid",
	TanhKind:    "tanh",
}

// String returns the lower-case tag name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is a known tag.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind resolves a tag name. The empty string means None.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return None, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return None, fmt.Errorf("unknown activation %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown activation kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Lookup returns the function pair for a tag. ok is false for None.
func Lookup(k Kind) (act Activation, ok bool) {
	switch k {
	case ReLUKind:
		return ReLU{}, true
	case SigmoidKind:
		return Sigmoid{}, true
	case TanhKind:
		return Tanh{}, true
	default:
		return nil, false
	}
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if y > 0, else 0
func (r ReLU) Derivative(y float64) float64 {
	if y > 0 {
		return 1
	}
	return 0
}

// Sigmoid activation function.
type Sigmoid struct{}

// Activate computes 1 / (1 + e^-x)
func (s Sigmoid) Activate(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Derivative computes y * (1 - y)
func (s Sigmoid) Derivative(y float64) float64 {
	return y * (1 - y)
}

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - y^2
func (t Tanh) Derivative(y float64) float64 {
	return 1 - y*y
}
