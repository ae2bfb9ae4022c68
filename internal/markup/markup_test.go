package markup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/GoConvNet/internal/activations"
	"github.com/FlavioCFOliveira/GoConvNet/internal/layer"
)

func TestParse(t *testing.T) {
	code := `# A small net.
		Input(w=8, h=8,d=1)

		Conv(w=6, h=6, d=4, f=3, k=4, s=1, act=relu)
		# Commented line
		Pool(w=3,h=3,d=4,f=2,s=2)
		Flatten(w=3, h=3, d=4)
		FC(l=10, act=sigmoid)
	`
	shape, err := Parse(code)
	require.NoError(t, err)
	assert.Equal(t, []layer.Spec{
		layer.Input(8, 8, 1),
		layer.Conv(6, 6, 4, 3, 4, 1, 0, activations.ReLUKind),
		layer.Pool(3, 3, 4, 2, 2, activations.None),
		layer.Flatten(3, 3, 4),
		layer.FC(10, activations.SigmoidKind),
	}, shape)
	assert.NoError(t, layer.Validate(shape))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		line int
	}{
		{"unknown block", "Input(w=1, h=1, d=1)\nDense(l=3)", 1},
		{"missing attribute", "Input(w=1, h=1)", 0},
		{"unexpected attribute", "FC(l=3, k=2)", 0},
		{"duplicate attribute", "FC(l=3, l=4)", 0},
		{"not an integer", "FC(l=3.5)", 0},
		{"unknown activation", "FC(l=3, act=softsign)", 0},
		{"bad syntax", "FC(l=3", 0},
		{"no layers", "# nothing\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.code)
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, name := range layer.Presets() {
		t.Run(name, func(t *testing.T) {
			want, ok := layer.Preset(name)
			require.True(t, ok)
			got, err := Parse(Format(want))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lenet5.net")
	require.NoError(t, os.WriteFile(path, []byte(Format(layer.LeNet5())), 0644))
	shape, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, layer.LeNet5(), shape)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.net"))
	assert.Error(t, err)
}

func TestParseErrorMessage(t *testing.T) {
	_, err := Parse("Input(w=1, h=1, d=1)\nFoo")
	assert.EqualError(t, err, "line 2: unknown block: Foo")
}
