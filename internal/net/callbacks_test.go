package net

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	logger := NewCSVLogger(path, false)
	n := newNetwork(t, denseNet())

	require.NoError(t, n.SGD(context.Background(), TrainConfig{
		Dataset:   andDataset(),
		Epochs:    3,
		Callbacks: []Callback{logger},
	}))
	require.NoError(t, logger.Err())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"epoch", "loss", "accuracy", "learning_rate", "time_seconds"}, records[0])
	assert.Equal(t, "2", records[3][0])

	appender := NewCSVLogger(path, true)
	require.NoError(t, n.SGD(context.Background(), TrainConfig{
		Dataset:   andDataset(),
		Epochs:    1,
		Callbacks: []Callback{appender},
	}))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, bytes.Count(b, []byte("\n")), "appending keeps a single header")
}

func TestCSVLoggerReportsOpenError(t *testing.T) {
	logger := NewCSVLogger(filepath.Join(t.TempDir(), "missing", "log.csv"), false)
	logger.OnTrainBegin(nil)
	assert.Error(t, logger.Err())
	logger.OnEpochEnd(Progress{}, nil)
	logger.OnTrainEnd(nil)
}

func TestModelCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best.json")
	var out bytes.Buffer
	ckpt := NewModelCheckpoint(path)
	ckpt.Writer = &out
	n := newNetwork(t, denseNet())

	require.NoError(t, n.SGD(context.Background(), TrainConfig{
		Dataset:      andDataset(),
		Epochs:       2,
		LearningRate: 0.5,
		Callbacks:    []Callback{ckpt},
	}))
	assert.Contains(t, out.String(), "Checkpoint saved")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, n.Shape(), loaded.Shape())
}

func TestLogger(t *testing.T) {
	var out bytes.Buffer
	Logger{Interval: 2, Writer: &out}.OnEpochEnd(Progress{Epoch: 4, Loss: 0.5, Accuracy: 0.25, LearningRate: 0.01}, nil)
	Logger{Interval: 2, Writer: &out}.OnEpochEnd(Progress{Epoch: 5}, nil)
	assert.Equal(t, "Epoch 4: loss = 0.500000, accuracy = 25.00%, lr = 0.01\n", out.String())
}
