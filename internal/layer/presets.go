package layer

import (
	"sort"

	"github.com/FlavioCFOliveira/GoConvNet/internal/activations"
)

// LeNet5 returns the classic LeNet-5 topology for 32x32 grayscale input and ten
// classes, with tanh on every trainable and pooling layer.
func LeNet5() []Spec {
	tanh := activations.TanhKind
	return []Spec{
		Input(32, 32, 1),
		Conv(28, 28, 6, 5, 6, 1, 0, tanh),
		Pool(14, 14, 6, 2, 2, tanh),
		Conv(10, 10, 16, 5, 16, 1, 0, tanh),
		Pool(5, 5, 16, 2, 2, tanh),
		Conv(1, 1, 120, 5, 120, 1, 0, tanh),
		Flatten(1, 1, 120),
		FC(84, tanh),
		FC(10, tanh),
	}
}

// Small returns a compact conv-pool-fc topology for size x size x depth input,
// suited to quick experiments on small images.
func Small(size, depth, classes int) []Spec {
	convOut := size - 2
	poolOut := convOut / 2
	return []Spec{
		Input(size, size, depth),
		Conv(convOut, convOut, 8, 3, 8, 1, 0, activations.ReLUKind),
		Pool(poolOut, poolOut, 8, 2, 2, activations.None),
		Flatten(poolOut, poolOut, 8),
		FC(classes, activations.SigmoidKind),
	}
}

var presets = map[string]func() []Spec{
	"lenet5": LeNet5,
	"mnist":  func() []Spec { return Small(28, 1, 10) },
	"cifar":  func() []Spec { return Small(32, 3, 10) },
}

// Preset returns a named topology.
func Preset(name string) ([]Spec, bool) {
	f, ok := presets[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Presets lists the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
