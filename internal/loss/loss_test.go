package loss

import (
	"math"
	"testing"
)

func TestHalfSquaredError(t *testing.T) {
	h := HalfSquaredError{}

	tests := []struct {
		name     string
		yPred    []float64
		yTrue    []float64
		expected float64
	}{
		{"Perfect prediction", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"Single error", []float64{1, 2}, []float64{1.5, 2}, 0.125}, // 0.5 * 0.25
		{"Multiple errors", []float64{1, 2, 3}, []float64{0, 1, 2}, 1.5},
		{"Empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Forward(tt.yPred, tt.yTrue); math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("HalfSquaredError.Forward() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHalfSquaredErrorGradientIsDifference(t *testing.T) {
	yPred := []float64{0.2, -0.4, 0.9}
	yTrue := []float64{0, 1, 1}
	grad := HalfSquaredError{}.Backward(yPred, yTrue)
	for i := range grad {
		if want := yPred[i] - yTrue[i]; grad[i] != want {
			t.Errorf("grad[%d] = %v, want %v", i, grad[i], want)
		}
	}
}

// TestGradientsMatchFiniteDifferences checks every loss against a central difference.
func TestGradientsMatchFiniteDifferences(t *testing.T) {
	yPred := []float64{0.3, -1.2, 0.7, 2.0}
	yTrue := []float64{0, 1, 0.5, 2.5}
	const h = 1e-6

	for name, l := range map[string]Loss{"hse": HalfSquaredError{}, "mse": MSE{}} {
		grad := l.Backward(yPred, yTrue)
		for i := range yPred {
			p := append([]float64(nil), yPred...)
			p[i] += h
			up := l.Forward(p, yTrue)
			p[i] -= 2 * h
			down := l.Forward(p, yTrue)
			if numeric := (up - down) / (2 * h); math.Abs(numeric-grad[i]) > 1e-6 {
				t.Errorf("%s grad[%d] = %v, want %v", name, i, grad[i], numeric)
			}
		}
	}
}

func TestMSEForward(t *testing.T) {
	if got := (MSE{}).Forward([]float64{1, 2, 3}, []float64{0, 1, 2}); math.Abs(got-1) > 1e-12 {
		t.Errorf("MSE.Forward() = %v, want 1", got)
	}
}

func TestLengthMismatchPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on length mismatch")
		}
	}()
	HalfSquaredError{}.Forward([]float64{1, 2}, []float64{1})
}

func TestParse(t *testing.T) {
	for _, name := range []string{"", "hse", "mse"} {
		if _, err := Parse(name); err != nil {
			t.Errorf("Parse(%q): %v", name, err)
		}
	}
	if _, err := Parse("hinge"); err == nil {
		t.Error("expected error for unknown loss")
	}
}
