package net

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/FlavioCFOliveira/GoConvNet/internal/opt"
)

// Callback defines the interface for training callbacks. Batches hold a single
// example, so batch is the example index within the epoch.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(p Progress, n *Network)
	OnBatchBegin(batch int, n *Network)
	OnBatchEnd(batch int, loss float64, n *Network)
}

// Stopper is implemented by callbacks that can end training early. It is
// consulted after every epoch.
type Stopper interface {
	ShouldStop() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(n *Network)                        {}
func (c BaseCallback) OnTrainEnd(n *Network)                          {}
func (c BaseCallback) OnEpochBegin(epoch int, n *Network)             {}
func (c BaseCallback) OnEpochEnd(p Progress, n *Network)              {}
func (c BaseCallback) OnBatchBegin(batch int, n *Network)             {}
func (c BaseCallback) OnBatchEnd(batch int, loss float64, n *Network) {}

// SchedulerCallback is a callback that wraps a learning rate scheduler.
type SchedulerCallback struct {
	BaseCallback
	scheduler opt.Scheduler
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{scheduler: scheduler}
}

func (c *SchedulerCallback) OnEpochEnd(p Progress, n *Network) {
	c.scheduler.StepWithLoss(p.Loss)
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

// EarlyStopping stops training when the epoch loss has stopped improving.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64
	Writer    io.Writer // defaults to os.Stdout

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.Inf(1),
	}
}

func (c *EarlyStopping) OnEpochEnd(p Progress, n *Network) {
	if p.Loss < c.bestLoss-c.Threshold {
		c.bestLoss = p.Loss
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}

	if c.numBadEpochs >= c.Patience {
		fmt.Fprintf(writerOr(c.Writer), "Early stopping at epoch %d: loss %.6f did not improve for %d epochs\n", p.Epoch, p.Loss, c.Patience)
		c.Stopped = true
	}
}

func (c *EarlyStopping) ShouldStop() bool { return c.Stopped }

// ModelCheckpoint saves the network after every epoch that improves the loss.
type ModelCheckpoint struct {
	BaseCallback
	Filename string
	Writer   io.Writer // defaults to os.Stdout

	bestLoss float64
}

func NewModelCheckpoint(filename string) *ModelCheckpoint {
	return &ModelCheckpoint{
		Filename: filename,
		bestLoss: math.Inf(1),
	}
}

func (c *ModelCheckpoint) OnEpochEnd(p Progress, n *Network) {
	if p.Loss < c.bestLoss {
		c.bestLoss = p.Loss
		if err := n.Save(c.Filename); err != nil {
			fmt.Fprintf(writerOr(c.Writer), "Error saving checkpoint: %v\n", err)
		} else {
			fmt.Fprintf(writerOr(c.Writer), "Checkpoint saved: loss %.6f is new best\n", p.Loss)
		}
	}
}

// Logger logs training progress to the console.
type Logger struct {
	BaseCallback
	Interval int
	Writer   io.Writer // defaults to os.Stdout
}

func (c Logger) OnEpochEnd(p Progress, n *Network) {
	if c.Interval > 0 && p.Epoch%c.Interval == 0 {
		fmt.Fprintf(writerOr(c.Writer), "Epoch %d: loss = %.6f, accuracy = %.2f%%, lr = %g\n",
			p.Epoch, p.Loss, 100*p.Accuracy, p.LearningRate)
	}
}
