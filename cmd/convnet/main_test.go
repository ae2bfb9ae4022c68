package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/GoConvNet/internal/dataset"
	"github.com/FlavioCFOliveira/GoConvNet/internal/layer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/markup"
)

func TestSyntheticRecords(t *testing.T) {
	f := dataset.Format{Depth: 1, Size: 8}
	records := syntheticRecords(f, 4, 20, 1)
	require.Len(t, records, 20)

	counts := map[int]int{}
	for _, r := range records {
		counts[r.Label]++
		assert.Len(t, r.Pixels, f.Pixels())
		// Rows 2r and 2r+1 are the bright band of class r.
		assert.GreaterOrEqual(t, r.Pixels[2*r.Label*f.Size], byte(160))
	}
	assert.Equal(t, map[int]int{0: 5, 1: 5, 2: 5, 3: 5}, counts)
}

func TestArchitecture(t *testing.T) {
	f := dataset.Format{Depth: 1, Size: 28}

	shape, err := architecture("", f, 10)
	require.NoError(t, err)
	assert.NoError(t, checkCompatible(shape, f, 10))

	shape, err = architecture("lenet5", f, 10)
	require.NoError(t, err)
	assert.Error(t, checkCompatible(shape, f, 10), "lenet5 expects 32x32 input")

	path := filepath.Join(t.TempDir(), "net.txt")
	require.NoError(t, os.WriteFile(path, []byte(markup.Format(layer.Small(28, 1, 3))), 0644))
	shape, err = architecture(path, f, 3)
	require.NoError(t, err)
	assert.NoError(t, checkCompatible(shape, f, 3))
	assert.Error(t, checkCompatible(shape, f, 10))
}

func TestLoadRecordsRequiresSource(t *testing.T) {
	_, err := loadRecords("", false, dataset.CIFAR10, 10, 0, 0)
	assert.Error(t, err)
}

func newFlagSet(t *testing.T, args ...string) (*flag.FlagSet, *int, *float64, *string, *bool) {
	fs := flag.NewFlagSet("convnet", flag.ContinueOnError)
	epochs := fs.Int("epochs", 10, "")
	lr := fs.Float64("lr", 0.01, "")
	arch := fs.String("arch", "", "")
	synthetic := fs.Bool("synthetic", false, "")
	require.NoError(t, fs.Parse(args))
	return fs, epochs, lr, arch, synthetic
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "train.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestApplyConfig(t *testing.T) {
	fs, epochs, lr, arch, synthetic := newFlagSet(t, "-epochs", "3")
	path := writeConfig(t, "epochs: 50\nlr: 0.25\narch: lenet5\nsynthetic: true\n")
	require.NoError(t, applyConfig(fs, path))

	assert.Equal(t, 3, *epochs, "command line wins")
	assert.Equal(t, 0.25, *lr)
	assert.Equal(t, "lenet5", *arch)
	assert.True(t, *synthetic)
}

func TestApplyConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		content string
		wantErr bool
	}{
		{"unknown setting", nil, "bogus: 1\n", true},
		{"bad float", nil, "lr: fast\n", true},
		{"bad int", nil, "epochs: many\n", true},
		{"bad bool", nil, "synthetic: sometimes\n", true},
		{"not yaml", nil, "lr: [\n", true},
		{"bad value shadowed by command line", []string{"-lr", "0.5"}, "lr: fast\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, _, _, _, _ := newFlagSet(t, tt.args...)
			err := applyConfig(fs, writeConfig(t, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	fs, _, _, _, _ := newFlagSet(t)
	assert.Error(t, applyConfig(fs, filepath.Join(t.TempDir(), "missing.yaml")))
}
