// Package backend selects how the network's heavy kernels are executed.
package backend

import (
	"fmt"
	"runtime"

	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

// Type represents the execution strategy of a Backend.
type Type int

const (
	CPU Type = iota
	Parallel
)

// String returns the flag name of the type.
func (t Type) String() string {
	switch t {
	case CPU:
		return "cpu"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType resolves a backend name as accepted on the command line.
func ParseType(s string) (Type, error) {
	switch s {
	case "cpu", "sequential":
		return CPU, nil
	case "parallel":
		return Parallel, nil
	}
	return CPU, fmt.Errorf("unknown backend %q", s)
}

// Backend computes the network kernels. Every implementation returns results
// identical to the sequential reference.
type Backend interface {
	Type() Type
	Name() string

	MatDot(a, b *tensor.Tensor) (*tensor.Tensor, error)
	Correlate(input, filters *tensor.Tensor, stride, padding int, bias *tensor.Tensor) (*tensor.Tensor, error)
	MaxPool(input *tensor.Tensor, filterSize, stride int) (*tensor.Tensor, *tensor.CoordMap, error)
	BackPropagateCorrelation(filters, dOut, input *tensor.Tensor, stride, padding int) (*tensor.CorrelationGrads, error)
}

// New returns the backend of the given type. cfg is only used by Parallel.
func New(t Type, cfg Config) (Backend, error) {
	switch t {
	case CPU:
		return &CPUDevice{}, nil
	case Parallel:
		return NewParallel(cfg), nil
	}
	return nil, fmt.Errorf("unknown backend %v", t)
}

// Default returns the best backend for the current machine.
func Default() Backend {
	if runtime.NumCPU() > 1 {
		return NewParallel(DefaultConfig())
	}
	return &CPUDevice{}
}

// kernels implements Backend on top of a tensor.Runner.
type kernels struct {
	runner tensor.Runner
}

func (k kernels) MatDot(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.MatDot(a, b)
}

func (k kernels) Correlate(input, filters *tensor.Tensor, stride, padding int, bias *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.CorrelateWith(k.runner, input, filters, stride, padding, bias)
}

func (k kernels) MaxPool(input *tensor.Tensor, filterSize, stride int) (*tensor.Tensor, *tensor.CoordMap, error) {
	return tensor.MaxPoolWith(k.runner, input, filterSize, stride)
}

func (k kernels) BackPropagateCorrelation(filters, dOut, input *tensor.Tensor, stride, padding int) (*tensor.CorrelationGrads, error) {
	return tensor.BackPropagateCorrelationWith(k.runner, filters, dOut, input, stride, padding)
}

// CPUDevice runs every kernel on the calling goroutine.
type CPUDevice struct{}

func (d *CPUDevice) Type() Type   { return CPU }
func (d *CPUDevice) Name() string { return "cpu" }

func (d *CPUDevice) MatDot(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return kernels{tensor.Sequential}.MatDot(a, b)
}

func (d *CPUDevice) Correlate(input, filters *tensor.Tensor, stride, padding int, bias *tensor.Tensor) (*tensor.Tensor, error) {
	return kernels{tensor.Sequential}.Correlate(input, filters, stride, padding, bias)
}

func (d *CPUDevice) MaxPool(input *tensor.Tensor, filterSize, stride int) (*tensor.Tensor, *tensor.CoordMap, error) {
	return kernels{tensor.Sequential}.MaxPool(input, filterSize, stride)
}

func (d *CPUDevice) BackPropagateCorrelation(filters, dOut, input *tensor.Tensor, stride, padding int) (*tensor.CorrelationGrads, error) {
	return kernels{tensor.Sequential}.BackPropagateCorrelation(filters, dOut, input, stride, padding)
}
