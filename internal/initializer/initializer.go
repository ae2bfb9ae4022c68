// Package initializer draws the initial weights of a network.
package initializer

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/FlavioCFOliveira/GoConvNet/internal/layer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

// Scheme chooses the weight distribution.
type Scheme int

const (
	// Auto uses Kaiming for convolution filters and Xavier for dense weights.
	Auto Scheme = iota
	// Xavier draws from U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
	Xavier
	// Kaiming draws from U(-1, 1) * sqrt(2/fanIn).
	Kaiming
)

// String returns the flag name of the scheme.
func (s Scheme) String() string {
	switch s {
	case Auto:
		return "auto"
	case Xavier:
		return "xavier"
	case Kaiming:
		return "kaiming"
	default:
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
}

// ParseScheme resolves a scheme name.
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "", "auto":
		return Auto, nil
	case "xavier", "glorot":
		return Xavier, nil
	case "kaiming", "he":
		return Kaiming, nil
	}
	return Auto, fmt.Errorf("unknown initializer %q", s)
}

// Initializer fills weight tensors from a seeded source.
type Initializer struct {
	scheme Scheme
	rng    *rand.Rand
}

// New returns an initializer. A zero seed picks a time based one.
func New(scheme Scheme, seed int64) *Initializer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Initializer{scheme: scheme, rng: rand.New(rand.NewSource(seed))}
}

// Scheme returns the distribution in use.
func (in *Initializer) Scheme() Scheme { return in.scheme }

// Fill overwrites t with values for a layer of the given fan-in and fan-out.
// Auto behaves as Xavier here.
func (in *Initializer) Fill(t *tensor.Tensor, fanIn, fanOut int) {
	in.fill(t, in.scheme, fanIn, fanOut)
}

func (in *Initializer) fill(t *tensor.Tensor, scheme Scheme, fanIn, fanOut int) {
	var bound float64
	switch scheme {
	case Kaiming:
		bound = math.Sqrt(2.0 / float64(fanIn))
	default:
		bound = math.Sqrt(6.0 / float64(fanIn+fanOut))
	}
	data := t.Data()
	for i := range data {
		data[i] = (in.rng.Float64()*2 - 1) * bound
	}
}

// Params allocates the weights and biases of layer i of a validated shape.
// Layers without parameters get nil tensors; biases start at zero.
func (in *Initializer) Params(shape []layer.Spec, i int) (weights, biases *tensor.Tensor) {
	ws, bs := layer.ParamShapes(shape, i)
	if ws == nil {
		return nil, nil
	}
	weights, biases = tensor.New(ws...), tensor.New(bs...)

	scheme := in.scheme
	switch cur := shape[i]; cur.Type {
	case layer.TypeConv:
		if scheme == Auto {
			scheme = Kaiming
		}
		in.fill(weights, scheme, ws[1]*cur.F*cur.F, cur.K*cur.F*cur.F)
	case layer.TypeFC:
		if scheme == Auto {
			scheme = Xavier
		}
		in.fill(weights, scheme, ws[0], ws[1])
	}
	return weights, biases
}
