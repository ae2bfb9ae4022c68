// Package activations provides benchmarks for activation functions.
package activations

import (
	"math/rand"
	"testing"
)

// fillRandom fills a slice with random values.
func fillRandom(slice []float64) {
	for i := range slice {
		slice[i] = rand.Float64()*2 - 1
	}
}

func benchmarkActivation(b *testing.B, act Activation) {
	inputs := make([]float64, 1000)
	fillRandom(inputs)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, x := range inputs {
			act.Derivative(act.Activate(x))
		}
	}
}

// BenchmarkReLU benchmarks ReLU forward and derivative.
func BenchmarkReLU(b *testing.B) {
	benchmarkActivation(b, ReLU{})
}

// BenchmarkSigmoid benchmarks Sigmoid forward and derivative.
func BenchmarkSigmoid(b *testing.B) {
	benchmarkActivation(b, Sigmoid{})
}

// BenchmarkTanh benchmarks Tanh forward and derivative.
func BenchmarkTanh(b *testing.B) {
	benchmarkActivation(b, Tanh{})
}
