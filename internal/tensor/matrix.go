package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

func asDense(t *Tensor) *mat.Dense {
	return mat.NewDense(t.shape[0], t.shape[1], t.data)
}

func fromDense(m mat.Matrix) *Tensor {
	r, c := m.Dims()
	out := New(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.data[i*c+j] = m.At(i, j)
		}
	}
	return out
}

// MatDot returns the matrix product a·b of two rank-2 tensors.
func MatDot(a, b *Tensor) (*Tensor, error) {
	if a.Rank() != 2 || b.Rank() != 2 {
		return nil, &DimensionError{Op: "matrix dot", A: a.shape, B: b.shape, Reason: "both operands must be 2D"}
	}
	if a.shape[1] != b.shape[0] {
		return nil, &DimensionError{
			Op:     "matrix dot",
			A:      a.shape,
			B:      b.shape,
			Reason: fmt.Sprintf("columns of a (%d) must equal rows of b (%d)", a.shape[1], b.shape[0]),
		}
	}
	var c mat.Dense
	c.Mul(asDense(a), asDense(b))
	return fromDense(&c), nil
}

// Transpose returns the transpose of a tensor of rank 1 or 2.
// A rank-1 tensor is treated as a single row and becomes a column.
func Transpose(a *Tensor) (*Tensor, error) {
	switch a.Rank() {
	case 1:
		return fromDense(mat.NewDense(1, a.shape[0], a.data).T()), nil
	case 2:
		return fromDense(asDense(a).T()), nil
	default:
		return nil, &DimensionError{Op: "transpose", A: a.shape, Reason: "transpose supports up to 2D tensors"}
	}
}

// Outer returns the outer product a ⊗ b of two rank-1 tensors as a len(a) x len(b) matrix.
func Outer(a, b *Tensor) (*Tensor, error) {
	if a.Rank() != 1 || b.Rank() != 1 {
		return nil, &DimensionError{Op: "outer", A: a.shape, B: b.shape, Reason: "both operands must be 1D"}
	}
	var m mat.Dense
	m.Outer(1, mat.NewVecDense(a.shape[0], a.data), mat.NewVecDense(b.shape[0], b.data))
	return fromDense(&m), nil
}
