// Package activations provides unit tests for activation functions.
package activations

import (
	"encoding/json"
	"math"
	"testing"
)

// TestReLU tests ReLU activation.
func TestReLU(t *testing.T) {
	relu := ReLU{}

	tests := []struct {
		input    float64
		expected float64
	}{
		{-1.0, 0.0}, // Negative -> 0
		{0.0, 0.0},  // Zero -> 0
		{1.0, 1.0},  // Positive -> identity
		{2.5, 2.5},  // Larger positive -> identity
		{-0.1, 0.0}, // Small negative -> 0
	}

	for _, tt := range tests {
		output := relu.Activate(tt.input)
		if math.Abs(output-tt.expected) > 1e-12 {
			t.Errorf("ReLU(%v) = %v, want %v", tt.input, output, tt.expected)
		}
	}
}

// TestDerivativesFromOutput checks every derivative against a central difference
// of the activation, evaluated through the activated value.
func TestDerivativesFromOutput(t *testing.T) {
	acts := map[string]Activation{
		"relu":    ReLU{},
		"sigmoid": Sigmoid{},
		"tanh":    Tanh{},
	}
	inputs := []float64{-2.0, -0.5, 0.3, 1.7}
	const h = 1e-6

	for name, act := range acts {
		for _, x := range inputs {
			numeric := (act.Activate(x+h) - act.Activate(x-h)) / (2 * h)
			analytic := act.Derivative(act.Activate(x))
			if math.Abs(numeric-analytic) > 1e-6 {
				t.Errorf("%s'(%v) = %v, want %v", name, x, analytic, numeric)
			}
		}
	}
}

// TestSigmoid tests known sigmoid values.
func TestSigmoid(t *testing.T) {
	s := Sigmoid{}
	if got := s.Activate(0); got != 0.5 {
		t.Errorf("Sigmoid(0) = %v, want 0.5", got)
	}
	if got := s.Derivative(0.5); got != 0.25 {
		t.Errorf("Sigmoid'(y=0.5) = %v, want 0.25", got)
	}
}

// TestLookup tests tag resolution.
func TestLookup(t *testing.T) {
	tests := []struct {
		kind Kind
		want Activation
		ok   bool
	}{
		{None, nil, false},
		{ReLUKind, ReLU{}, true},
		{SigmoidKind, Sigmoid{}, true},
		{TanhKind, Tanh{}, true},
	}

	for _, tt := range tests {
		got, ok := Lookup(tt.kind)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Lookup(%v) = %v, %v; want %v, %v", tt.kind, got, ok, tt.want, tt.ok)
		}
	}
}

// TestKindText tests tag encoding in JSON.
func TestKindText(t *testing.T) {
	type holder struct {
		Activation Kind `json:"activation"`
	}

	b, err := json.Marshal(holder{Activation: TanhKind})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"activation":"tanh"}` {
		t.Errorf("Marshal = %s", b)
	}

	var h holder
	if err := json.Unmarshal([]byte(`{"activation":"relu"}`), &h); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if h.Activation != ReLUKind {
		t.Errorf("Unmarshal = %v, want relu", h.Activation)
	}

	if err := json.Unmarshal([]byte(`{"activation":"softplus"}`), &h); err == nil {
		t.Error("expected error for unknown activation")
	}

	if k, err := ParseKind(""); err != nil || k != None {
		t.Errorf("ParseKind(\"\") = %v, %v", k, err)
	}
}
