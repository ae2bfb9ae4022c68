// Package tensor provides the dense tensor type and the numeric primitives
// (matrix algebra, correlation, pooling and their derivatives) used by the network.
package tensor

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements described by the shape.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is positive.
func (s Shape) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("empty shape")
	}
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal reports whether two shapes are identical.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Strides returns row-major strides: stride[i] is the product of all dimensions after i.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// String formats the shape as "DxHxW".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, "x") + "]"
}

// Tensor is a dense float64 tensor stored as a flat row-major buffer plus an explicit shape.
type Tensor struct {
	shape   Shape
	strides []int
	data    []float64
}

// New allocates a zero-filled tensor. It panics on a non-positive dimension.
func New(shape ...int) *Tensor {
	s := Shape(shape).Clone()
	if err := s.Validate(); err != nil {
		panic("tensor.New: " + err.Error())
	}
	return &Tensor{
		shape:   s,
		strides: s.Strides(),
		data:    make([]float64, s.NumElements()),
	}
}

// FromSlice wraps data (without copying) in a tensor of the given shape.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	s := Shape(shape).Clone()
	if err := s.Validate(); err != nil {
		return nil, &DimensionError{Op: "from slice", A: s, Reason: err.Error()}
	}
	if len(data) != s.NumElements() {
		return nil, &DimensionError{
			Op:     "from slice",
			A:      s,
			Reason: fmt.Sprintf("data length %d does not match %d elements", len(data), s.NumElements()),
		}
	}
	return &Tensor{shape: s, strides: s.Strides(), data: data}, nil
}

// Must unwraps a (tensor, error) pair and panics on error. Intended for literals and presets.
func Must(t *Tensor, err error) *Tensor {
	if err != nil {
		panic(err)
	}
	return t
}

// FromVector builds a rank-1 tensor from a copy of v.
func FromVector(v []float64) (*Tensor, error) {
	data := make([]float64, len(v))
	copy(data, v)
	return FromSlice(data, len(v))
}

// FromMatrix builds a rank-2 tensor from equally long rows.
func FromMatrix(rows [][]float64) (*Tensor, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, &DimensionError{Op: "from matrix", Reason: "empty matrix"}
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, &DimensionError{Op: "from matrix", Reason: fmt.Sprintf("row %d has %d columns, want %d", i, len(r), cols)}
		}
		data = append(data, r...)
	}
	return FromSlice(data, len(rows), cols)
}

// FromVolume builds a rank-3 tensor (depth x height x width) from nested slices.
func FromVolume(v [][][]float64) (*Tensor, error) {
	if len(v) == 0 || len(v[0]) == 0 || len(v[0][0]) == 0 {
		return nil, &DimensionError{Op: "from volume", Reason: "empty volume"}
	}
	d, h, w := len(v), len(v[0]), len(v[0][0])
	data := make([]float64, 0, d*h*w)
	for z := range v {
		if len(v[z]) != h {
			return nil, &DimensionError{Op: "from volume", Reason: fmt.Sprintf("channel %d has %d rows, want %d", z, len(v[z]), h)}
		}
		for y := range v[z] {
			if len(v[z][y]) != w {
				return nil, &DimensionError{Op: "from volume", Reason: fmt.Sprintf("row %d/%d has %d columns, want %d", z, y, len(v[z][y]), w)}
			}
			data = append(data, v[z][y]...)
		}
	}
	return FromSlice(data, d, h, w)
}

// Shape returns a copy of the tensor shape.
func (t *Tensor) Shape() Shape {
	return t.shape.Clone()
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Data returns the underlying row-major buffer. Writes are visible to the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.shape))
		}
		off += v * t.strides[i]
	}
	return off
}

// At returns the element at the given coordinates.
func (t *Tensor) At(idx ...int) float64 {
	return t.data[t.offset(idx)]
}

// Set stores v at the given coordinates.
func (t *Tensor) Set(v float64, idx ...int) {
	t.data[t.offset(idx)] = v
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), strides: t.strides, data: data}
}

// Reshape returns a view with a new shape sharing the same buffer.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	s := Shape(shape)
	if s.NumElements() != len(t.data) {
		return nil, &DimensionError{Op: "reshape", A: t.shape, B: s, Reason: "element count differs"}
	}
	return FromSlice(t.data, shape...)
}

// Map returns a new tensor of the same shape with f applied to every element.
func (t *Tensor) Map(f func(float64) float64) *Tensor {
	out := &Tensor{shape: t.shape.Clone(), strides: t.strides, data: make([]float64, len(t.data))}
	for i, v := range t.data {
		out.data[i] = f(v)
	}
	return out
}

// FirstNaN returns the flat index of the first NaN element.
func (t *Tensor) FirstNaN() (int, bool) {
	for i, v := range t.data {
		if math.IsNaN(v) {
			return i, true
		}
	}
	return -1, false
}

// Equal reports whether both tensors have the same shape and bit-identical elements.
func (t *Tensor) Equal(other *Tensor) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i := range t.data {
		if t.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// String renders shape and values for debugging.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%s%v", t.shape, t.data)
}

type tensorJSON struct {
	Shape Shape     `json:"shape"`
	Data  []float64 `json:"data"`
}

// MarshalJSON encodes the tensor as {"shape": [...], "data": [...]}.
func (t *Tensor) MarshalJSON() ([]byte, error) {
	return json.Marshal(tensorJSON{Shape: t.shape, Data: t.data})
}

// UnmarshalJSON decodes a tensor produced by MarshalJSON.
func (t *Tensor) UnmarshalJSON(b []byte) error {
	var raw tensorJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	decoded, err := FromSlice(raw.Data, raw.Shape...)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

