package opt

import (
	"fmt"
	"math"
)

// Scheduler drives the learning rate of a RateSetter between epochs.
type Scheduler interface {
	Step()
	StepWithLoss(loss float64)
	GetLR() float64
}

// BaseScheduler provides default implementations for Scheduler.
type BaseScheduler struct{}

func (s BaseScheduler) Step()                     {}
func (s BaseScheduler) StepWithLoss(loss float64) {}

// InverseTimeDecay sets lr = base / (1 + decay*epoch) after each epoch,
// counting epochs from zero. A zero decay keeps the base rate.
type InverseTimeDecay struct {
	BaseScheduler
	target RateSetter
	base   float64
	decay  float64
	epoch  int
}

// NewInverseTimeDecay captures target's current rate as the base rate.
func NewInverseTimeDecay(target RateSetter, decay float64) *InverseTimeDecay {
	return &InverseTimeDecay{target: target, base: target.LearningRate(), decay: decay}
}

func (s *InverseTimeDecay) Step() {
	s.target.SetLearningRate(s.base / (1 + s.decay*float64(s.epoch)))
	s.epoch++
}

func (s *InverseTimeDecay) StepWithLoss(float64) { s.Step() }

func (s *InverseTimeDecay) GetLR() float64 { return s.target.LearningRate() }

// StepLR decays the learning rate by gamma every stepSize epochs.
type StepLR struct {
	target    RateSetter
	stepSize  int
	gamma     float64
	lastEpoch int
}

func NewStepLR(target RateSetter, stepSize int, gamma float64) *StepLR {
	if stepSize < 1 {
		stepSize = 1
	}
	return &StepLR{target: target, stepSize: stepSize, gamma: gamma}
}

func (s *StepLR) Step() {
	s.lastEpoch++
	if s.lastEpoch%s.stepSize == 0 {
		s.target.SetLearningRate(s.target.LearningRate() * s.gamma)
	}
}

func (s *StepLR) StepWithLoss(float64) { s.Step() }

func (s *StepLR) GetLR() float64 { return s.target.LearningRate() }

// ExponentialLR decays the learning rate by gamma every epoch.
type ExponentialLR struct {
	target RateSetter
	gamma  float64
}

func NewExponentialLR(target RateSetter, gamma float64) *ExponentialLR {
	return &ExponentialLR{target: target, gamma: gamma}
}

func (s *ExponentialLR) Step() {
	s.target.SetLearningRate(s.target.LearningRate() * s.gamma)
}

func (s *ExponentialLR) StepWithLoss(float64) { s.Step() }

func (s *ExponentialLR) GetLR() float64 { return s.target.LearningRate() }

// ReduceLROnPlateau reduces the learning rate when the loss has stopped improving.
type ReduceLROnPlateau struct {
	BaseScheduler
	target    RateSetter
	factor    float64
	patience  int
	threshold float64
	cooldown  int
	minLR     float64

	bestLoss        float64
	numBadEpochs    int
	cooldownCounter int
}

func NewReduceLROnPlateau(target RateSetter, factor float64, patience int, threshold, minLR float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		target:    target,
		factor:    factor,
		patience:  patience,
		threshold: threshold,
		minLR:     minLR,
		bestLoss:  math.Inf(1),
	}
}

func (s *ReduceLROnPlateau) StepWithLoss(currentLoss float64) {
	if s.cooldownCounter > 0 {
		s.cooldownCounter--
		return
	}

	if currentLoss < s.bestLoss-s.threshold {
		s.bestLoss = currentLoss
		s.numBadEpochs = 0
	} else {
		s.numBadEpochs++
	}

	if s.numBadEpochs >= s.patience {
		s.target.SetLearningRate(math.Max(s.target.LearningRate()*s.factor, s.minLR))
		s.numBadEpochs = 0
		s.cooldownCounter = s.cooldown
	}
}

func (s *ReduceLROnPlateau) GetLR() float64 { return s.target.LearningRate() }

// ParseSchedule builds a scheduler by name. decay parameterizes the schedule:
// the inverse-time decay rate, or gamma for "step" and "exp".
func ParseSchedule(name string, target RateSetter, decay float64) (Scheduler, error) {
	switch name {
	case "", "inverse":
		return NewInverseTimeDecay(target, decay), nil
	case "step":
		return NewStepLR(target, 10, decay), nil
	case "exp":
		return NewExponentialLR(target, decay), nil
	case "plateau":
		return NewReduceLROnPlateau(target, 0.5, 3, 1e-4, 1e-6), nil
	}
	return nil, fmt.Errorf("unknown schedule %q", name)
}
