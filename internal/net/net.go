// Package net provides the convolutional network: construction from a layer
// topology, forward propagation, backpropagation and training.
package net

import (
	"fmt"

	"github.com/FlavioCFOliveira/GoConvNet/internal/activations"
	"github.com/FlavioCFOliveira/GoConvNet/internal/backend"
	"github.com/FlavioCFOliveira/GoConvNet/internal/initializer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/layer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/loss"
	"github.com/FlavioCFOliveira/GoConvNet/internal/opt"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

// DefaultLearningRate is used unless WithLearningRate is given.
const DefaultLearningRate = 0.01

// State tracks where a network is in the forward/backward/update cycle.
type State int

const (
	StateUninitialized State = iota
	StateForwarded
	StateBackpropagated
	StateUpdated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateForwarded:
		return "forwarded"
	case StateBackpropagated:
		return "backpropagated"
	case StateUpdated:
		return "updated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type options struct {
	backend backend.Backend
	seed    int64
	lr      float64
	scheme  initializer.Scheme
	loss    loss.Loss
}

func defaultOptions() options {
	return options{
		backend: &backend.CPUDevice{},
		lr:      DefaultLearningRate,
		scheme:  initializer.Auto,
		loss:    loss.HalfSquaredError{},
	}
}

// Option configures a Network.
type Option func(*options)

// WithBackend sets the kernel backend. The default is the sequential CPU backend.
func WithBackend(b backend.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithSeed makes weight initialization reproducible.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithLearningRate sets the initial learning rate.
func WithLearningRate(lr float64) Option {
	return func(o *options) { o.lr = lr }
}

// WithInitializer selects the weight distribution.
func WithInitializer(s initializer.Scheme) Option {
	return func(o *options) { o.scheme = s }
}

// WithLoss sets the loss whose gradient seeds backpropagation. The default,
// half squared error, seeds it with actual - expected.
func WithLoss(l loss.Loss) Option {
	return func(o *options) { o.loss = l }
}

// Network holds a validated topology with its activations, gradients and parameters.
// A Network is not safe for concurrent use.
type Network struct {
	shape []layer.Spec
	acts  []activations.Activation

	layers   []*tensor.Tensor
	dlayers  []*tensor.Tensor
	weights  []*tensor.Tensor
	biases   []*tensor.Tensor
	dweights []*tensor.Tensor
	dbiases  []*tensor.Tensor
	coords   []*tensor.CoordMap

	learningRate float64
	params       map[string]string

	backend backend.Backend
	loss    loss.Loss
	state   State
}

// New validates shape and builds a randomly initialized network. Nothing is
// allocated when validation fails.
func New(shape []layer.Spec, opts ...Option) (*Network, error) {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	n, err := build(shape, o)
	if err != nil {
		return nil, err
	}
	in := initializer.New(o.scheme, o.seed)
	for i := range n.shape {
		n.weights[i], n.biases[i] = in.Params(n.shape, i)
	}
	return n, nil
}

// build validates shape and allocates everything except parameters.
func build(shape []layer.Spec, o options) (*Network, error) {
	if err := layer.Validate(shape); err != nil {
		return nil, err
	}
	count := len(shape)
	n := &Network{
		shape:        append([]layer.Spec(nil), shape...),
		acts:         make([]activations.Activation, count),
		layers:       make([]*tensor.Tensor, count),
		dlayers:      make([]*tensor.Tensor, count),
		weights:      make([]*tensor.Tensor, count),
		biases:       make([]*tensor.Tensor, count),
		dweights:     make([]*tensor.Tensor, count),
		dbiases:      make([]*tensor.Tensor, count),
		coords:       make([]*tensor.CoordMap, count),
		learningRate: o.lr,
		params:       map[string]string{},
		backend:      o.backend,
		loss:         o.loss,
	}
	for i, s := range n.shape {
		if act, ok := activations.Lookup(s.Activation); ok {
			n.acts[i] = act
		}
		n.layers[i] = tensor.New(s.OutputShape()...)
		n.dlayers[i] = tensor.New(s.OutputShape()...)
	}
	return n, nil
}

// Forward propagates input through every layer and returns a copy of the
// output layer. input must have the shape of the input layer (D x H x W).
func (n *Network) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	want := tensor.Shape(n.shape[0].OutputShape())
	if !input.Shape().Equal(want) {
		return nil, &layer.ShapeError{
			Index:    0,
			Type:     layer.TypeInput,
			Field:    "input",
			Expected: want.NumElements(),
			Actual:   input.Len(),
			Reason:   fmt.Sprintf("got %s, want %s", input.Shape(), want),
		}
	}

	n.state = StateUninitialized
	n.layers[0] = input.Clone()
	for i := 1; i < len(n.shape); i++ {
		z, err := n.forwardLayer(i)
		if err != nil {
			return nil, fmt.Errorf("forward layer %d: %w", i, err)
		}
		if idx, ok := z.FirstNaN(); ok {
			return nil, &NumericError{Layer: i, Stage: StagePreActivation, Index: idx}
		}
		if act := n.acts[i]; act != nil {
			z = z.Map(act.Activate)
			if idx, ok := z.FirstNaN(); ok {
				return nil, &NumericError{Layer: i, Stage: StagePostActivation, Index: idx}
			}
		}
		n.layers[i] = z
	}
	n.state = StateForwarded
	return n.Output(), nil
}

func (n *Network) forwardLayer(i int) (*tensor.Tensor, error) {
	s, in := n.shape[i], n.layers[i-1]
	switch s.Type {
	case layer.TypeConv:
		return n.backend.Correlate(in, n.weights[i], s.S, s.P, n.biases[i])
	case layer.TypePool:
		out, coords, err := n.backend.MaxPool(in, s.F, s.S)
		if err != nil {
			return nil, err
		}
		n.coords[i] = coords
		return out, nil
	case layer.TypeFlatten:
		return tensor.FlattenDeep(in), nil
	case layer.TypeFC:
		row, err := in.Reshape(1, in.Len())
		if err != nil {
			return nil, err
		}
		product, err := n.backend.MatDot(row, n.weights[i])
		if err != nil {
			return nil, err
		}
		flat, err := product.Reshape(s.L)
		if err != nil {
			return nil, err
		}
		return tensor.Add(flat, n.biases[i])
	}
	return nil, fmt.Errorf("unsupported layer type %s", s.Type)
}

// Backward computes the gradient of every layer and parameter for the last
// forward pass, given the expected output. When applyUpdate is set the
// gradients are applied with Update once the traversal is complete.
//
// dlayers[i] holds the gradient with respect to layer i before its activation
// function, so dlayers[0] is the gradient with respect to the input.
func (n *Network) Backward(expected []float64, applyUpdate bool) error {
	if n.state != StateForwarded {
		return &StateError{Op: "backward", State: n.state}
	}
	last := len(n.shape) - 1
	out := n.layers[last]
	if len(expected) != out.Len() {
		return &layer.ShapeError{
			Index:    last,
			Type:     n.shape[last].Type,
			Field:    "expected",
			Expected: out.Len(),
			Actual:   len(expected),
		}
	}

	// Pooling coordinates are consumed below, so a failed pass needs a new Forward.
	n.state = StateUninitialized

	seed, err := tensor.FromSlice(n.lossGradient(out.Data(), expected), out.Shape()...)
	if err != nil {
		return err
	}
	if n.dlayers[last], err = n.throughActivation(last, seed); err != nil {
		return err
	}
	if idx, ok := n.dlayers[last].FirstNaN(); ok {
		return &NumericError{Layer: last, Stage: StageGradient, Index: idx}
	}

	for i := last; i > 0; i-- {
		g, err := n.backwardLayer(i)
		if err != nil {
			return fmt.Errorf("backward layer %d: %w", i, err)
		}
		if dw := n.dweights[i]; dw != nil {
			if idx, ok := dw.FirstNaN(); ok {
				return &NumericError{Layer: i, Stage: StageGradient, Index: idx}
			}
		}
		d, err := n.throughActivation(i-1, g)
		if err != nil {
			return err
		}
		if idx, ok := d.FirstNaN(); ok {
			return &NumericError{Layer: i - 1, Stage: StageGradient, Index: idx}
		}
		n.dlayers[i-1] = d
	}

	n.state = StateBackpropagated
	if applyUpdate {
		return n.Update()
	}
	return nil
}

func (n *Network) lossGradient(actual, expected []float64) []float64 {
	if l, ok := n.loss.(loss.BackwardInPlacer); ok {
		grad := make([]float64, len(actual))
		l.BackwardInPlace(actual, expected, grad)
		return grad
	}
	return n.loss.Backward(actual, expected)
}

// throughActivation multiplies g by the derivative of layer i's activation,
// evaluated from the activated values.
func (n *Network) throughActivation(i int, g *tensor.Tensor) (*tensor.Tensor, error) {
	act := n.acts[i]
	if act == nil {
		return g, nil
	}
	return tensor.Multiply(g, n.layers[i].Map(act.Derivative))
}

// backwardLayer records the parameter gradients of layer i and returns the
// gradient with respect to the output of layer i-1.
func (n *Network) backwardLayer(i int) (*tensor.Tensor, error) {
	s, in, d := n.shape[i], n.layers[i-1], n.dlayers[i]
	switch s.Type {
	case layer.TypeFC:
		dw, err := tensor.Outer(in, d)
		if err != nil {
			return nil, err
		}
		n.dweights[i], n.dbiases[i] = dw, d.Clone()
		col, err := d.Reshape(s.L, 1)
		if err != nil {
			return nil, err
		}
		g, err := n.backend.MatDot(n.weights[i], col)
		if err != nil {
			return nil, err
		}
		return g.Reshape(in.Shape()...)
	case layer.TypeConv:
		grads, err := n.backend.BackPropagateCorrelation(n.weights[i], d, in, s.S, s.P)
		if err != nil {
			return nil, err
		}
		n.dweights[i], n.dbiases[i] = grads.DFilters, grads.DBias
		return grads.DInput, nil
	case layer.TypePool:
		coords := n.coords[i]
		if coords == nil {
			return nil, &StateError{Op: "pool backward without cached coordinates", State: n.state}
		}
		n.coords[i] = nil
		return tensor.RouteMax(d, coords, in.Shape())
	case layer.TypeFlatten:
		return d.Clone().Reshape(in.Shape()...)
	}
	return nil, fmt.Errorf("unsupported layer type %s", s.Type)
}

// Update applies the gradients of the last Backward: w -= learningRate * dw,
// for weights and biases alike.
func (n *Network) Update() error {
	if n.state != StateBackpropagated {
		return &StateError{Op: "update", State: n.state}
	}
	sgd := opt.SGD{LearningRate: n.learningRate}
	for i := range n.shape {
		if n.weights[i] == nil || n.dweights[i] == nil {
			continue
		}
		sgd.StepInPlace(n.weights[i].Data(), n.dweights[i].Data())
		sgd.StepInPlace(n.biases[i].Data(), n.dbiases[i].Data())
	}
	n.state = StateUpdated
	return nil
}

// Error returns ½·Σ(actual−expected)² of the current output and its per-unit terms.
func (n *Network) Error(expected []float64) (float64, []float64, error) {
	last := len(n.shape) - 1
	out := n.layers[last].Data()
	if len(expected) != len(out) {
		return 0, nil, &layer.ShapeError{
			Index:    last,
			Type:     n.shape[last].Type,
			Field:    "expected",
			Expected: len(out),
			Actual:   len(expected),
		}
	}
	units := make([]float64, len(out))
	for j := range out {
		units[j] = loss.HalfSquaredError{}.Forward(out[j:j+1], expected[j:j+1])
	}
	return loss.HalfSquaredError{}.Forward(out, expected), units, nil
}

// Predict runs a forward pass and returns the index of the largest output.
func (n *Network) Predict(input *tensor.Tensor) (int, error) {
	out, err := n.Forward(input)
	if err != nil {
		return -1, err
	}
	return tensor.ArgMax(out.Data()), nil
}

// Len returns the number of layers, input included.
func (n *Network) Len() int { return len(n.shape) }

// Shape returns a copy of the topology.
func (n *Network) Shape() []layer.Spec { return append([]layer.Spec(nil), n.shape...) }

// Output returns a copy of the output layer.
func (n *Network) Output() *tensor.Tensor { return n.layers[len(n.layers)-1].Clone() }

// Layer returns the activated values of layer i. The tensor is owned by the network.
func (n *Network) Layer(i int) *tensor.Tensor { return n.layers[i] }

// DLayer returns the pre-activation gradient of layer i. The tensor is owned by the network.
func (n *Network) DLayer(i int) *tensor.Tensor { return n.dlayers[i] }

// Weights returns the weights of layer i, nil for layers without parameters.
func (n *Network) Weights(i int) *tensor.Tensor { return n.weights[i] }

// Biases returns the biases of layer i, nil for layers without parameters.
func (n *Network) Biases(i int) *tensor.Tensor { return n.biases[i] }

// Gradients returns the weight and bias gradients of layer i from the last Backward.
func (n *Network) Gradients(i int) (dw, db *tensor.Tensor) { return n.dweights[i], n.dbiases[i] }

// LearningRate returns the current learning rate.
func (n *Network) LearningRate() float64 { return n.learningRate }

// SetLearningRate changes the learning rate used by Update.
func (n *Network) SetLearningRate(lr float64) { n.learningRate = lr }

// State returns the current lifecycle state.
func (n *Network) State() State { return n.state }

// Backend returns the kernel backend in use.
func (n *Network) Backend() backend.Backend { return n.backend }

// SetParam stores a named value that travels with snapshots.
func (n *Network) SetParam(key, value string) { n.params[key] = value }

// Param returns a value stored with SetParam.
func (n *Network) Param(key string) (string, bool) {
	v, ok := n.params[key]
	return v, ok
}
