package net

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

// ConfusionMatrix counts examples by actual class (row) and predicted class (column).
type ConfusionMatrix [][]int

// NewConfusionMatrix returns an empty classes x classes matrix.
func NewConfusionMatrix(classes int) ConfusionMatrix {
	cm := make(ConfusionMatrix, classes)
	for i := range cm {
		cm[i] = make([]int, classes)
	}
	return cm
}

// Total returns the number of counted examples.
func (cm ConfusionMatrix) Total() int {
	total := 0
	for _, row := range cm {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// String renders the matrix as aligned rows.
func (cm ConfusionMatrix) String() string {
	var b strings.Builder
	for _, row := range cm {
		for j, v := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%5d", v)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ConfusionMatrix runs forward passes only and tallies actual against
// predicted classes, both taken as the argmax of the respective vector.
func (n *Network) ConfusionMatrix(data []Example) (ConfusionMatrix, error) {
	classes := n.layers[len(n.layers)-1].Len()
	cm := NewConfusionMatrix(classes)
	for j, ex := range data {
		if len(ex.Output) != classes {
			return nil, fmt.Errorf("example %d: label has %d classes, network outputs %d", j, len(ex.Output), classes)
		}
		predicted, err := n.Predict(ex.Input)
		if err != nil {
			return nil, fmt.Errorf("example %d: %w", j, err)
		}
		cm[tensor.ArgMax(ex.Output)][predicted]++
	}
	return cm, nil
}

// ClassStats holds the statistics of one class. A value is NaN when it is
// undefined, e.g. the precision of a class that was never predicted.
type ClassStats struct {
	Precision float64
	Recall    float64
	F1        float64
	Accuracy  float64
}

// Stats summarizes a confusion matrix.
type Stats struct {
	Classes []ClassStats
	// Avg averages every per-class value over the classes where it is defined.
	// Avg.Accuracy is the overall accuracy, the trace over the total.
	Avg   ClassStats
	Total int
}

// ConfusionMatrixStats derives per-class precision, recall, F1 and accuracy.
// Classes with no actual or no predicted instances yield NaN for the affected
// values, and NaN values are left out of the averages.
func ConfusionMatrixStats(cm ConfusionMatrix) Stats {
	k := len(cm)
	total := cm.Total()
	s := Stats{Classes: make([]ClassStats, k), Total: total}

	var trace int
	for c := 0; c < k; c++ {
		tp := cm[c][c]
		trace += tp
		actual, predicted := 0, 0
		for j := 0; j < k; j++ {
			actual += cm[c][j]
			predicted += cm[j][c]
		}
		fp, fn := predicted-tp, actual-tp
		tn := total - tp - fp - fn

		cs := ClassStats{Precision: math.NaN(), Recall: math.NaN(), F1: math.NaN(), Accuracy: math.NaN()}
		if predicted > 0 {
			cs.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			cs.Recall = float64(tp) / float64(actual)
		}
		if !math.IsNaN(cs.Precision) && !math.IsNaN(cs.Recall) {
			if sum := cs.Precision + cs.Recall; sum > 0 {
				cs.F1 = 2 * cs.Precision * cs.Recall / sum
			} else {
				cs.F1 = 0
			}
		}
		if actual > 0 || predicted > 0 {
			cs.Accuracy = float64(tp+tn) / float64(total)
		}
		s.Classes[c] = cs
	}

	s.Avg = ClassStats{
		Precision: meanDefined(s.Classes, func(c ClassStats) float64 { return c.Precision }),
		Recall:    meanDefined(s.Classes, func(c ClassStats) float64 { return c.Recall }),
		F1:        meanDefined(s.Classes, func(c ClassStats) float64 { return c.F1 }),
		Accuracy:  math.NaN(),
	}
	if total > 0 {
		s.Avg.Accuracy = float64(trace) / float64(total)
	}
	return s
}

func meanDefined(classes []ClassStats, field func(ClassStats) float64) float64 {
	var vals []float64
	for _, c := range classes {
		if v := field(c); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}
