package initializer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/GoConvNet/internal/activations"
	"github.com/FlavioCFOliveira/GoConvNet/internal/layer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

func TestFillBounds(t *testing.T) {
	tests := []struct {
		scheme        Scheme
		fanIn, fanOut int
		bound         float64
	}{
		{Xavier, 100, 50, math.Sqrt(6.0 / 150)},
		{Kaiming, 75, 6, math.Sqrt(2.0 / 75)},
	}

	for _, tt := range tests {
		t.Run(tt.scheme.String(), func(t *testing.T) {
			w := tensor.New(tt.fanIn, tt.fanOut)
			New(tt.scheme, 1).Fill(w, tt.fanIn, tt.fanOut)

			var sum float64
			for _, v := range w.Data() {
				require.LessOrEqual(t, math.Abs(v), tt.bound)
				sum += v
			}
			assert.InDelta(t, 0, sum/float64(w.Len()), tt.bound/4, "mean should be near zero")
		})
	}
}

func TestSeedIsReproducible(t *testing.T) {
	a, b := tensor.New(10, 10), tensor.New(10, 10)
	New(Xavier, 42).Fill(a, 10, 10)
	New(Xavier, 42).Fill(b, 10, 10)
	assert.Equal(t, a.Data(), b.Data())

	New(Xavier, 43).Fill(b, 10, 10)
	assert.NotEqual(t, a.Data(), b.Data())
}

func TestParamsShapes(t *testing.T) {
	shape := []layer.Spec{
		layer.Input(12, 12, 2),
		layer.Conv(6, 6, 4, 4, 4, 2, 1, activations.ReLUKind),
		layer.Pool(3, 3, 4, 2, 2, activations.None),
		layer.Flatten(3, 3, 4),
		layer.FC(10, activations.SigmoidKind),
	}
	require.NoError(t, layer.Validate(shape))
	in := New(Auto, 1)

	w, b := in.Params(shape, 1)
	bound := math.Sqrt(2.0 / (2 * 4 * 4))
	for _, v := range w.Data() {
		require.LessOrEqual(t, math.Abs(v), bound, "conv filters use the Kaiming bound")
	}
	assert.Equal(t, tensor.Shape{4, 2, 4, 4}, w.Shape(), "filters are as deep as the previous layer")
	assert.Equal(t, tensor.Shape{4}, b.Shape())
	assert.Equal(t, make([]float64, 4), b.Data())

	w, b = in.Params(shape, 4)
	assert.Equal(t, tensor.Shape{36, 10}, w.Shape())
	assert.Equal(t, tensor.Shape{10}, b.Shape())

	for _, i := range []int{0, 2, 3} {
		w, b = in.Params(shape, i)
		assert.Nil(t, w)
		assert.Nil(t, b)
	}
}

func TestParseScheme(t *testing.T) {
	s, err := ParseScheme("he")
	require.NoError(t, err)
	assert.Equal(t, Kaiming, s)
	s, err = ParseScheme("")
	require.NoError(t, err)
	assert.Equal(t, Auto, s)
	_, err = ParseScheme("orthogonal")
	assert.Error(t, err)
}
