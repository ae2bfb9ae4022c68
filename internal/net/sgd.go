package net

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/FlavioCFOliveira/GoConvNet/internal/opt"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

// Example is one labeled input. Output is the expected output layer, usually
// a one-hot class vector.
type Example struct {
	Input  *tensor.Tensor
	Output []float64
}

// Progress summarizes one training epoch.
type Progress struct {
	Epoch        int
	Accuracy     float64 // fraction of examples whose output argmax matched the label argmax
	Loss         float64 // mean of ½·Σ(actual−expected)² over the epoch
	LearningRate float64 // rate used during the epoch
}

// TrainConfig configures Network.SGD.
type TrainConfig struct {
	Dataset []Example
	Epochs  int

	// LearningRate replaces the network's rate when non-zero.
	LearningRate float64
	// Decay drives the default schedule, lr = base / (1 + Decay*epoch).
	Decay float64
	// Scheduler replaces the default inverse-time schedule.
	Scheduler opt.Scheduler

	Callbacks  []Callback
	OnProgress func(Progress)
	OnEnd      func()
}

// SGD trains the network one example at a time, in dataset order. After each
// epoch it reports progress and then adjusts the learning rate. ctx is checked
// between examples; a cancelled context stops training with ctx.Err().
func (n *Network) SGD(ctx context.Context, cfg TrainConfig) error {
	if cfg.LearningRate != 0 {
		n.learningRate = cfg.LearningRate
	}
	sched := cfg.Scheduler
	if sched == nil {
		sched = opt.NewInverseTimeDecay(n, cfg.Decay)
	}
	callbacks := append(append([]Callback(nil), cfg.Callbacks...), NewSchedulerCallback(sched))

	for _, cb := range callbacks {
		cb.OnTrainBegin(n)
	}
	defer func() {
		for _, cb := range callbacks {
			cb.OnTrainEnd(n)
		}
	}()

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, cb := range callbacks {
			cb.OnEpochBegin(epoch, n)
		}

		p, err := n.epoch(ctx, epoch, cfg.Dataset, callbacks)
		if err != nil {
			return err
		}
		if cfg.OnProgress != nil {
			cfg.OnProgress(p)
		}
		for _, cb := range callbacks {
			cb.OnEpochEnd(p, n)
		}
		if stopRequested(callbacks) {
			break
		}
	}

	if cfg.OnEnd != nil {
		cfg.OnEnd()
	}
	return nil
}

func (n *Network) epoch(ctx context.Context, epoch int, data []Example, callbacks []Callback) (Progress, error) {
	p := Progress{Epoch: epoch, LearningRate: n.learningRate}
	losses := make([]float64, 0, len(data))
	correct := 0

	for j, ex := range data {
		if err := ctx.Err(); err != nil {
			return p, err
		}
		for _, cb := range callbacks {
			cb.OnBatchBegin(j, n)
		}

		out, err := n.Forward(ex.Input)
		if err != nil {
			return p, fmt.Errorf("epoch %d, example %d: %w", epoch, j, err)
		}
		l, _, err := n.Error(ex.Output)
		if err != nil {
			return p, fmt.Errorf("epoch %d, example %d: %w", epoch, j, err)
		}
		if tensor.ArgMax(out.Data()) == tensor.ArgMax(ex.Output) {
			correct++
		}
		if err := n.Backward(ex.Output, true); err != nil {
			return p, fmt.Errorf("epoch %d, example %d: %w", epoch, j, err)
		}
		losses = append(losses, l)

		for _, cb := range callbacks {
			cb.OnBatchEnd(j, l, n)
		}
	}

	if len(losses) > 0 {
		p.Loss = stat.Mean(losses, nil)
		p.Accuracy = float64(correct) / float64(len(losses))
	}
	return p, nil
}

func stopRequested(callbacks []Callback) bool {
	for _, cb := range callbacks {
		if s, ok := cb.(Stopper); ok && s.ShouldStop() {
			return true
		}
	}
	return false
}
