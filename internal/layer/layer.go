// Package layer defines layer specifications and the rules that make a sequence
// of them a valid network topology.
package layer

import (
	"fmt"

	"github.com/FlavioCFOliveira/GoConvNet/internal/activations"
)

// Type identifies the variant of a Spec.
type Type int

const (
	TypeInput Type = iota
	TypeConv
	TypePool
	TypeFC
	TypeFlatten
)

var typeNames = [...]string{
	TypeInput:   "input",
	TypeConv:    "conv",
	TypePool:    "pool",
	TypeFC:      "fc",
	TypeFlatten: "flatten",
}

func (t Type) valid() bool {
	return t >= 0 && int(t) < len(typeNames)
}

// String returns the lower-case type name.
func (t Type) String() string {
	if t.valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("unknown layer type %d", int(t))
	}
	return []byte(typeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	for i, name := range typeNames {
		if name == string(b) {
			*t = Type(i)
			return nil
		}
	}
	return fmt.Errorf("unknown layer type %q", b)
}

// Spec describes one layer. Which fields are meaningful depends on Type:
//
//	Input   W, H, D
//	Conv    W, H, D (output), F (filter size), K (kernel count), S (stride), P (padding), Activation
//	Pool    W, H, D (output), F, S, Activation
//	FC      L, Activation
//	Flatten W, H, D (of the flattened input), L = W*H*D
type Spec struct {
	Type       Type             `json:"type"`
	W          int              `json:"w,omitempty"`
	H          int              `json:"h,omitempty"`
	D          int              `json:"d,omitempty"`
	F          int              `json:"f,omitempty"`
	K          int              `json:"k,omitempty"`
	S          int              `json:"s,omitempty"`
	P          int              `json:"p,omitempty"`
	L          int              `json:"l,omitempty"`
	Activation activations.Kind `json:"activation"`
}

// Input describes the network input volume.
func Input(w, h, d int) Spec {
	return Spec{Type: TypeInput, W: w, H: h, D: d}
}

// Conv describes a convolution layer producing a w x h x d volume from k filters of
// size f x f, applied with stride s over an input zero-padded by p.
func Conv(w, h, d, f, k, s, p int, act activations.Kind) Spec {
	return Spec{Type: TypeConv, W: w, H: h, D: d, F: f, K: k, S: s, P: p, Activation: act}
}

// Pool describes a max-pooling layer with an f x f window and stride s.
func Pool(w, h, d, f, s int, act activations.Kind) Spec {
	return Spec{Type: TypePool, W: w, H: h, D: d, F: f, S: s, Activation: act}
}

// FC describes a fully connected layer of l units.
func FC(l int, act activations.Kind) Spec {
	return Spec{Type: TypeFC, L: l, Activation: act}
}

// Flatten reshapes a w x h x d volume into a vector.
func Flatten(w, h, d int) Spec {
	return Spec{Type: TypeFlatten, W: w, H: h, D: d, L: w * h * d}
}

// Spatial reports whether the layer output is a D x H x W volume.
func (s Spec) Spatial() bool {
	return s.Type == TypeInput || s.Type == TypeConv || s.Type == TypePool
}

// Flat reports whether the layer output is a vector.
func (s Spec) Flat() bool {
	return s.Type == TypeFC || s.Type == TypeFlatten
}

// Length returns the number of values the layer outputs.
func (s Spec) Length() int {
	switch s.Type {
	case TypeFC:
		return s.L
	default:
		return s.W * s.H * s.D
	}
}

// OutputShape returns the shape of the layer's activation tensor.
func (s Spec) OutputShape() []int {
	if s.Flat() {
		return []int{s.Length()}
	}
	return []int{s.D, s.H, s.W}
}

// HasParams reports whether the layer owns weights and biases.
func (s Spec) HasParams() bool {
	return s.Type == TypeConv || s.Type == TypeFC
}

// String renders the spec in the markup syntax.
func (s Spec) String() string {
	act := ""
	if s.Activation != activations.None {
		act = fmt.Sprintf(", act=%s", s.Activation)
	}
	switch s.Type {
	case TypeInput:
		return fmt.Sprintf("Input(w=%d, h=%d, d=%d)", s.W, s.H, s.D)
	case TypeConv:
		return fmt.Sprintf("Conv(w=%d, h=%d, d=%d, f=%d, k=%d, s=%d, p=%d%s)", s.W, s.H, s.D, s.F, s.K, s.S, s.P, act)
	case TypePool:
		return fmt.Sprintf("Pool(w=%d, h=%d, d=%d, f=%d, s=%d%s)", s.W, s.H, s.D, s.F, s.S, act)
	case TypeFC:
		return fmt.Sprintf("FC(l=%d%s)", s.L, act)
	case TypeFlatten:
		return fmt.Sprintf("Flatten(w=%d, h=%d, d=%d)", s.W, s.H, s.D)
	default:
		return s.Type.String()
	}
}

// ParamShapes returns the weight and bias shapes of layer i of a validated
// topology, or nil for layers without parameters.
//
//	Conv  weights K x inD x F x F, biases K
//	FC    weights inL x L,         biases L
func ParamShapes(shape []Spec, i int) (weights, biases []int) {
	if i <= 0 || i >= len(shape) {
		return nil, nil
	}
	prev, cur := shape[i-1], shape[i]
	switch cur.Type {
	case TypeConv:
		return []int{cur.K, prev.D, cur.F, cur.F}, []int{cur.K}
	case TypeFC:
		return []int{prev.Length(), cur.L}, []int{cur.L}
	}
	return nil, nil
}
