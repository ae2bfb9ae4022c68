package net

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/FlavioCFOliveira/GoConvNet/internal/layer"
	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

// Snapshot is the complete serializable state of a Network. Activations are
// stored as tags, so a snapshot is plain JSON.
type Snapshot struct {
	Shape        []layer.Spec      `json:"shape"`
	LearningRate float64           `json:"learningRate"`
	Layers       []*tensor.Tensor  `json:"layers"`
	DLayers      []*tensor.Tensor  `json:"dlayers"`
	Weights      []*tensor.Tensor  `json:"weights"`
	Biases       []*tensor.Tensor  `json:"biases"`
	Params       map[string]string `json:"serializeParams,omitempty"`
}

func cloneAll(ts []*tensor.Tensor) []*tensor.Tensor {
	out := make([]*tensor.Tensor, len(ts))
	for i, t := range ts {
		if t != nil {
			out[i] = t.Clone()
		}
	}
	return out
}

// Snapshot returns a deep copy of the network state.
func (n *Network) Snapshot() *Snapshot {
	s := &Snapshot{
		Shape:        n.Shape(),
		LearningRate: n.learningRate,
		Layers:       cloneAll(n.layers),
		DLayers:      cloneAll(n.dlayers),
		Weights:      cloneAll(n.weights),
		Biases:       cloneAll(n.biases),
	}
	if len(n.params) > 0 {
		s.Params = make(map[string]string, len(n.params))
		for k, v := range n.params {
			s.Params[k] = v
		}
	}
	return s
}

// FromSnapshot rebuilds a network from a snapshot. The topology is validated
// and every tensor must match it. Options other than WithBackend and WithLoss
// are overridden by the snapshot.
func FromSnapshot(s *Snapshot, opts ...Option) (*Network, error) {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	o.lr = s.LearningRate
	n, err := build(s.Shape, o)
	if err != nil {
		return nil, err
	}

	for i := range n.shape {
		ws, bs := layer.ParamShapes(n.shape, i)
		if n.weights[i], err = restore(n.shape, i, "weights", s.Weights, ws); err != nil {
			return nil, err
		}
		if n.biases[i], err = restore(n.shape, i, "biases", s.Biases, bs); err != nil {
			return nil, err
		}
		// Activations and gradients are optional; a missing entry stays zero.
		want := n.shape[i].OutputShape()
		if t, err := restore(n.shape, i, "layers", s.Layers, want); err != nil {
			return nil, err
		} else if t != nil {
			n.layers[i] = t
		}
		if t, err := restore(n.shape, i, "dlayers", s.DLayers, want); err != nil {
			return nil, err
		} else if t != nil {
			n.dlayers[i] = t
		}
	}
	for k, v := range s.Params {
		n.params[k] = v
	}
	return n, nil
}

// restore returns a copy of ts[i] after checking it has shape want. A nil want
// requires the entry to be absent.
func restore(shape []layer.Spec, i int, field string, ts []*tensor.Tensor, want []int) (*tensor.Tensor, error) {
	var t *tensor.Tensor
	if i < len(ts) {
		t = ts[i]
	}
	switch {
	case t == nil && want == nil:
		return nil, nil
	case t == nil && (field == "layers" || field == "dlayers"):
		return nil, nil
	case t == nil:
		return nil, &layer.ShapeError{Index: i, Type: shape[i].Type, Field: field, Reason: "missing"}
	case want == nil:
		return nil, &layer.ShapeError{Index: i, Type: shape[i].Type, Field: field, Reason: "layer has no parameters"}
	case !t.Shape().Equal(want):
		return nil, &layer.ShapeError{
			Index:    i,
			Type:     shape[i].Type,
			Field:    field,
			Expected: tensor.Shape(want).NumElements(),
			Actual:   t.Len(),
			Reason:   fmt.Sprintf("got %s, want %s", t.Shape(), tensor.Shape(want)),
		}
	}
	return t.Clone(), nil
}

// Encode writes the network snapshot as JSON.
func (n *Network) Encode(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(n.Snapshot()); err != nil {
		return fmt.Errorf("failed to encode network: %w", err)
	}
	return nil
}

// Decode reads a JSON snapshot and rebuilds the network.
func Decode(r io.Reader, opts ...Option) (*Network, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode network: %w", err)
	}
	return FromSnapshot(&s, opts...)
}

// MarshalJSON encodes the network as its snapshot.
func (n *Network) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Snapshot())
}

// Save writes the network snapshot to a file.
func (n *Network) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := n.Encode(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Load reads a network saved with Save.
func Load(filename string, opts ...Option) (*Network, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file, opts...)
}
