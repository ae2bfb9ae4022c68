package opt

import (
	"math/rand"
	"testing"
)

// fillRandom fills a slice with random values.
func fillRandom(slice []float64) {
	for i := range slice {
		slice[i] = rand.Float64()
	}
}

// BenchmarkSGDStepInPlace benchmarks the in-place update.
func BenchmarkSGDStepInPlace(b *testing.B) {
	sgd := SGD{LearningRate: 0.01}
	params := make([]float64, 1000)
	gradients := make([]float64, 1000)
	fillRandom(params)
	fillRandom(gradients)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sgd.StepInPlace(params, gradients)
	}
}
