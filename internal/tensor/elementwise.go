package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

func checkElementwise(op string, a, b *Tensor) error {
	if a.Rank() < 1 || a.Rank() > 3 {
		return &DimensionError{Op: op, A: a.shape, B: b.shape, Reason: "rank must be between 1 and 3"}
	}
	if !a.shape.Equal(b.shape) {
		return &DimensionError{Op: op, A: a.shape, B: b.shape, Reason: "both operands must have equal shape"}
	}
	return nil
}

// Add returns a + b elementwise for equally shaped tensors of rank 1-3.
func Add(a, b *Tensor) (*Tensor, error) {
	if err := checkElementwise("add", a, b); err != nil {
		return nil, err
	}
	out := New(a.shape...)
	floats.AddTo(out.data, a.data, b.data)
	return out, nil
}

// Multiply returns the elementwise (Hadamard) product of equally shaped tensors of rank 1-3.
func Multiply(a, b *Tensor) (*Tensor, error) {
	if err := checkElementwise("multiply", a, b); err != nil {
		return nil, err
	}
	out := New(a.shape...)
	floats.MulTo(out.data, a.data, b.data)
	return out, nil
}

// FlattenDeep concatenates every element in z, y, x order into a rank-1 tensor.
func FlattenDeep(a *Tensor) *Tensor {
	data := make([]float64, len(a.data))
	copy(data, a.data)
	return Must(FromSlice(data, len(data)))
}

// ArgMax returns the index of the largest value; ties go to the lowest index.
// It returns -1 for an empty slice.
func ArgMax(v []float64) int {
	if len(v) == 0 {
		return -1
	}
	return floats.MaxIdx(v)
}

// Softmax returns exp(v) normalised to sum to one, shifted by max(v) for stability.
func Softmax(v []float64) []float64 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float64, len(v))
	m := floats.Max(v)
	for i, x := range v {
		out[i] = math.Exp(x - m)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}
