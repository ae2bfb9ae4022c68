package net

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/GoConvNet/internal/opt"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

// andDataset labels the corners of the unit square with x AND y.
func andDataset() []Example {
	points := []struct {
		x, y  float64
		class int
	}{
		{0, 0, 0}, {0, 1, 0}, {1, 0, 0}, {1, 1, 1},
	}
	data := make([]Example, len(points))
	for i, p := range points {
		out := []float64{0, 0}
		out[p.class] = 1
		data[i] = Example{Input: tensor.Must(tensor.FromSlice([]float64{p.x, p.y}, 1, 1, 2)), Output: out}
	}
	return data
}

type recorder struct {
	BaseCallback
	events []string
	epochs []Progress
}

func (r *recorder) OnTrainBegin(n *Network)            { r.events = append(r.events, "train-begin") }
func (r *recorder) OnTrainEnd(n *Network)              { r.events = append(r.events, "train-end") }
func (r *recorder) OnEpochBegin(epoch int, n *Network) { r.events = append(r.events, "epoch-begin") }
func (r *recorder) OnEpochEnd(p Progress, n *Network) {
	r.events = append(r.events, "epoch-end")
	r.epochs = append(r.epochs, p)
}

func TestSGDLearnsAND(t *testing.T) {
	n := newNetwork(t, denseNet())
	var progress []Progress
	ended := 0

	err := n.SGD(context.Background(), TrainConfig{
		Dataset:      andDataset(),
		Epochs:       2000,
		LearningRate: 0.5,
		OnProgress:   func(p Progress) { progress = append(progress, p) },
		OnEnd:        func() { ended++ },
	})
	require.NoError(t, err)
	require.Len(t, progress, 2000)
	assert.Equal(t, 1, ended)

	first, last := progress[0], progress[len(progress)-1]
	assert.Less(t, last.Loss, first.Loss)
	assert.Equal(t, 1.0, last.Accuracy)

	cm, err := n.ConfusionMatrix(andDataset())
	require.NoError(t, err)
	assert.Equal(t, 1.0, ConfusionMatrixStats(cm).Avg.Accuracy)
}

func TestSGDDecaysLearningRate(t *testing.T) {
	n := newNetwork(t, denseNet())
	var rates []float64

	err := n.SGD(context.Background(), TrainConfig{
		Dataset:      andDataset(),
		Epochs:       4,
		LearningRate: 0.1,
		Decay:        0.5,
		OnProgress:   func(p Progress) { rates = append(rates, p.LearningRate) },
	})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.1, 0.1, 0.1 / 1.5, 0.1 / 2}, rates, 1e-15)
	assert.InDelta(t, 0.1/2.5, n.LearningRate(), 1e-15)
}

func TestSGDCustomScheduler(t *testing.T) {
	n := newNetwork(t, denseNet(), WithLearningRate(1))
	err := n.SGD(context.Background(), TrainConfig{
		Dataset:   andDataset(),
		Epochs:    3,
		Scheduler: opt.NewExponentialLR(n, 0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.125, n.LearningRate())
}

func TestSGDCallbackOrder(t *testing.T) {
	n := newNetwork(t, denseNet())
	rec := &recorder{}
	err := n.SGD(context.Background(), TrainConfig{
		Dataset:   andDataset(),
		Epochs:    2,
		Callbacks: []Callback{rec},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"train-begin",
		"epoch-begin", "epoch-end",
		"epoch-begin", "epoch-end",
		"train-end",
	}, rec.events)
	assert.Equal(t, 1, rec.epochs[1].Epoch)
}

func TestSGDStopsOnCancel(t *testing.T) {
	n := newNetwork(t, denseNet())
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	ended := false

	err := n.SGD(ctx, TrainConfig{
		Dataset:    andDataset(),
		Epochs:     100,
		Callbacks:  []Callback{rec},
		OnProgress: func(p Progress) { cancel() },
		OnEnd:      func() { ended = true },
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ended)
	assert.Len(t, rec.epochs, 1)
	assert.Equal(t, "train-end", rec.events[len(rec.events)-1], "callbacks are closed on cancel")
}

func TestSGDEarlyStopping(t *testing.T) {
	n := newNetwork(t, denseNet(), WithLearningRate(0))
	stop := NewEarlyStopping(1, 0)
	stop.Writer = io.Discard
	epochs := 0
	ended := false

	err := n.SGD(context.Background(), TrainConfig{
		Dataset:    andDataset(),
		Epochs:     10,
		Callbacks:  []Callback{stop},
		OnProgress: func(Progress) { epochs++ },
		OnEnd:      func() { ended = true },
	})
	require.NoError(t, err)
	assert.True(t, stop.ShouldStop())
	assert.Equal(t, 2, epochs)
	assert.True(t, ended)
}

func TestSGDReportsExampleErrors(t *testing.T) {
	n := newNetwork(t, denseNet())
	data := andDataset()
	data[2].Output = []float64{1}

	err := n.SGD(context.Background(), TrainConfig{Dataset: data, Epochs: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "example 2")
}
