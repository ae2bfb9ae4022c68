package worker

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/GoConvNet/internal/activations"
	"github.com/FlavioCFOliveira/GoConvNet/internal/layer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/net"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

func request(t *testing.T, epochs int) Request {
	n, err := net.New([]layer.Spec{
		layer.Input(2, 1, 1),
		layer.Flatten(2, 1, 1),
		layer.FC(3, activations.TanhKind),
		layer.FC(2, activations.SigmoidKind),
	}, net.WithSeed(3), net.WithLearningRate(0.5))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, n.Encode(&buf))

	var data []net.Example
	for _, x := range [][2]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
		label := []float64{1, 0}
		if x[0] == 1 && x[1] == 1 {
			label = []float64{0, 1}
		}
		data = append(data, net.Example{Input: tensor.Must(tensor.FromSlice(x[:], 1, 1, 2)), Output: label})
	}
	return Request{Network: buf.Bytes(), Config: Config{Dataset: data, Epochs: epochs, Decay: 0.01}}
}

func collect(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestRun(t *testing.T) {
	req := request(t, 3)
	req.ID = "job-1"
	events := collect(Run(context.Background(), req))
	require.Len(t, events, 4)
	for _, ev := range events {
		assert.Equal(t, "job-1", ev.ID)
	}

	for i, ev := range events[:3] {
		assert.Equal(t, EventProgress, ev.Type)
		assert.Equal(t, i, ev.Progress.Epoch)
		_, err := net.Decode(bytes.NewReader(ev.Network))
		assert.NoError(t, err)
	}

	end := events[3]
	assert.Equal(t, EventEnd, end.Type)
	assert.Equal(t, 2, end.Progress.Epoch)
	trained, err := net.Decode(bytes.NewReader(end.Network))
	require.NoError(t, err)
	assert.InDelta(t, 0.5/1.02, trained.LearningRate(), 1e-12)
}

func TestRunDoesNotTouchTheRequest(t *testing.T) {
	req := request(t, 2)
	before := append([]byte(nil), req.Network...)
	collect(Run(context.Background(), req))
	assert.Equal(t, before, req.Network)
}

func TestRunCopiesTheDataset(t *testing.T) {
	req := request(t, 3)
	events := Run(context.Background(), req)
	for _, ex := range req.Config.Dataset {
		ex.Input.Data()[0] = math.NaN()
		ex.Output[0] = math.NaN()
	}

	got := collect(events)
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, EventEnd, last.Type)
	assert.NoError(t, last.Err)
}

func TestRunReportsUnencodableNetwork(t *testing.T) {
	n, err := net.New([]layer.Spec{
		layer.Input(1, 1, 1),
		layer.Flatten(1, 1, 1),
		layer.FC(1, activations.None),
	}, net.WithSeed(5))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, n.Encode(&buf))

	// An infinite input leaves ±Inf in the network state, which JSON cannot hold.
	data := []net.Example{{Input: tensor.Must(tensor.FromSlice([]float64{math.Inf(1)}, 1, 1, 1)), Output: []float64{1}}}
	events := collect(Run(context.Background(), Request{
		Network: buf.Bytes(),
		Config:  Config{Dataset: data, Epochs: 3},
	}))

	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.NotEqual(t, EventEnd, ev.Type)
		if ev.Type == EventProgress {
			assert.NotEmpty(t, ev.Network)
		}
	}
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Error(t, last.Err)
}

func TestRunRejectsBadSnapshot(t *testing.T) {
	events := collect(Run(context.Background(), Request{Network: []byte("{")}))
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	_, err := uuid.Parse(events[0].ID)
	assert.NoError(t, err, "a missing ID is generated")
	assert.Error(t, events[0].Err)
}

func TestRunCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := Run(ctx, request(t, 1000))

	first := <-events
	assert.Equal(t, EventProgress, first.Type)
	cancel()

	var last Event
	for ev := range events {
		last = ev
	}
	if last.Type == EventError {
		assert.True(t, errors.Is(last.Err, context.Canceled))
	}
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "progress", EventProgress.String())
	assert.Equal(t, "end", EventEnd.String())
	assert.Equal(t, "error", EventError.String())
}
