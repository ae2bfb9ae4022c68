// Package convnet is the public entry point to the engine. It re-exports the
// types and constructors needed to describe, train, evaluate and persist a
// convolutional network.
package convnet

import (
	"github.com/FlavioCFOliveira/GoConvNet/internal/activations"
	"github.com/FlavioCFOliveira/GoConvNet/internal/backend"
	"github.com/FlavioCFOliveira/GoConvNet/internal/dataset"
	"github.com/FlavioCFOliveira/GoConvNet/internal/initializer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/layer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/markup"
	"github.com/FlavioCFOliveira/GoConvNet/internal/net"
	"github.com/FlavioCFOliveira/GoConvNet/internal/opt"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

// Re-export common types for easier access
type (
	Network     = net.Network
	Option      = net.Option
	Snapshot    = net.Snapshot
	Example     = net.Example
	Progress    = net.Progress
	TrainConfig = net.TrainConfig
	Callback    = net.Callback
	Spec        = layer.Spec
	Tensor      = tensor.Tensor
	Backend     = backend.Backend
	Activation  = activations.Kind
	Scheduler   = opt.Scheduler

	ConfusionMatrix = net.ConfusionMatrix
	Stats           = net.Stats
)

// Errors usable with errors.Is.
var (
	ErrShape     = layer.ErrShape
	ErrNaN       = net.ErrNaN
	ErrState     = net.ErrState
	ErrDimension = tensor.ErrDimension
)

// Activations
const (
	None    = activations.None
	ReLU    = activations.ReLUKind
	Sigmoid = activations.SigmoidKind
	Tanh    = activations.TanhKind
)

// Network creation
func New(shape []Spec, opts ...Option) (*Network, error) {
	return net.New(shape, opts...)
}

func FromSnapshot(s *Snapshot, opts ...Option) (*Network, error) {
	return net.FromSnapshot(s, opts...)
}

func WithBackend(b Backend) Option      { return net.WithBackend(b) }
func WithSeed(seed int64) Option        { return net.WithSeed(seed) }
func WithLearningRate(lr float64) Option { return net.WithLearningRate(lr) }

// WithInitializer selects "auto", "xavier" or "kaiming" weight initialization.
func WithInitializer(scheme string) (Option, error) {
	s, err := initializer.ParseScheme(scheme)
	if err != nil {
		return nil, err
	}
	return net.WithInitializer(s), nil
}

// Layers
func Input(w, h, d int) Spec { return layer.Input(w, h, d) }

func Conv(w, h, d, f, k, s, p int, act Activation) Spec {
	return layer.Conv(w, h, d, f, k, s, p, act)
}

func Pool(w, h, d, f, s int, act Activation) Spec { return layer.Pool(w, h, d, f, s, act) }
func FC(l int, act Activation) Spec               { return layer.FC(l, act) }
func Flatten(w, h, d int) Spec                    { return layer.Flatten(w, h, d) }
func LeNet5() []Spec                              { return layer.LeNet5() }

// Validate checks a topology without building it.
func Validate(shape []Spec) error { return layer.Validate(shape) }

// ParseMarkup reads a topology written one layer per line.
func ParseMarkup(contents string) ([]Spec, error) { return markup.Parse(contents) }

// FormatMarkup writes a topology in the syntax ParseMarkup reads.
func FormatMarkup(shape []Spec) string { return markup.Format(shape) }

// Backends
func CPU() Backend { return &backend.CPUDevice{} }

// Parallel returns a backend spreading kernels over workers goroutines, or
// GOMAXPROCS when workers is 0.
func Parallel(workers int) Backend {
	cfg := backend.DefaultConfig()
	if workers > 0 {
		cfg.NumWorkers = workers
		cfg.Enabled = workers > 1
	}
	return backend.NewParallel(cfg)
}

// Callbacks
func Logger(interval int) net.Logger {
	return net.Logger{Interval: interval}
}

func ModelCheckpoint(filename string) *net.ModelCheckpoint {
	return net.NewModelCheckpoint(filename)
}

func EarlyStopping(patience int, threshold float64) *net.EarlyStopping {
	return net.NewEarlyStopping(patience, threshold)
}

func CSVLogger(filename string, append bool) *net.CSVLogger {
	return net.NewCSVLogger(filename, append)
}

// Evaluation
func ConfusionMatrixStats(cm ConfusionMatrix) Stats { return net.ConfusionMatrixStats(cm) }

// Datasets
type Format = dataset.Format

// LoadDataset reads a binary dataset and converts it into examples.
func LoadDataset(filename string, f Format, classes int) ([]Example, error) {
	records, err := dataset.ReadFile(filename, f)
	if err != nil {
		return nil, err
	}
	return dataset.Examples(records, f, classes)
}

// Model Persistence
func Load(filename string, opts ...Option) (*Network, error) {
	return net.Load(filename, opts...)
}
