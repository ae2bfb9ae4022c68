// Package loss provides the error functions a network is trained against.
package loss

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// BackwardInPlacer is an optional interface for loss functions that support
// in-place gradient computation to avoid allocations.
type BackwardInPlacer interface {
	BackwardInPlace(yPred, yTrue, grad []float64)
}

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue []float64) float64

	// Backward computes the gradient of the loss w.r.t. prediction.
	// This creates a new slice and should be avoided in hot loops.
	Backward(yPred, yTrue []float64) []float64
}

// Parse resolves a loss by name.
func Parse(name string) (Loss, error) {
	switch name {
	case "", "half-squared", "hse":
		return HalfSquaredError{}, nil
	case "mse":
		return MSE{}, nil
	}
	return nil, fmt.Errorf("unknown loss %q", name)
}

func mustMatch(name string, lens ...int) {
	for _, n := range lens[1:] {
		if n != lens[0] {
			panic(name + ": slices must have same length")
		}
	}
}

// HalfSquaredError is ½·Σ(y_pred − y_true)². Its gradient is the plain
// difference y_pred − y_true.
type HalfSquaredError struct{}

// Forward computes ½·Σ(y_pred − y_true)².
func (HalfSquaredError) Forward(yPred, yTrue []float64) float64 {
	mustMatch("HalfSquaredError", len(yPred), len(yTrue))
	d := make([]float64, len(yPred))
	floats.SubTo(d, yPred, yTrue)
	return 0.5 * floats.Dot(d, d)
}

// Backward computes y_pred − y_true.
func (h HalfSquaredError) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	h.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace stores y_pred − y_true in grad.
func (HalfSquaredError) BackwardInPlace(yPred, yTrue, grad []float64) {
	mustMatch("HalfSquaredError", len(yPred), len(yTrue), len(grad))
	floats.SubTo(grad, yPred, yTrue)
}

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes mean squared error: (1/n) * sum((y_pred - y_true)^2)
func (MSE) Forward(yPred, yTrue []float64) float64 {
	mustMatch("MSE", len(yPred), len(yTrue))
	d := make([]float64, len(yPred))
	floats.SubTo(d, yPred, yTrue)
	return floats.Dot(d, d) / float64(len(d))
}

// Backward computes gradient: dL/dy_pred = (2/n) * (y_pred - y_true)
func (m MSE) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	m.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace computes the gradient into grad.
func (MSE) BackwardInPlace(yPred, yTrue, grad []float64) {
	mustMatch("MSE", len(yPred), len(yTrue), len(grad))
	floats.SubTo(grad, yPred, yTrue)
	floats.Scale(2/float64(len(grad)), grad)
}
