package loss

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

func BenchmarkHalfSquaredErrorForward(b *testing.B) {
	h := HalfSquaredError{}
	yPred := make([]float64, 1000)
	yTrue := make([]float64, 1000)
	fillRandom(yPred)
	fillRandom(yTrue)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = h.Forward(yPred, yTrue)
	}
}

func BenchmarkHalfSquaredErrorBackwardInPlace(b *testing.B) {
	h := HalfSquaredError{}
	yPred := make([]float64, 1000)
	yTrue := make([]float64, 1000)
	grad := make([]float64, 1000)
	fillRandom(yPred)
	fillRandom(yTrue)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.BackwardInPlace(yPred, yTrue, grad)
	}
}
