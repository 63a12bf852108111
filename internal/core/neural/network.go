package neural

import (
	"fmt"
	"math/rand/v2"
)

// Option is a function that configures network construction.
type Option func(*options)

type options struct {
	rng *rand.Rand // nil falls back to the global source
}

// WithRand draws initial weights and biases from rng.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Network is an ordered stack of layers; layer i maps counts[i] to counts[i+1].
// Layout is fixed at construction. Only Load changes the numeric state.
type Network struct {
	layers []*Layer
}

// New builds a randomly initialised network from neuron counts [n0, n1, ..., nk].
func New(counts []int, opts ...Option) (*Network, error) {
	if len(counts) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 neuron counts, got %d", ErrLayout, len(counts))
	}
	layers := make([]*Layer, 0, len(counts)-1)
	for i := 0; i < len(counts)-1; i++ {
		l, err := NewLayer(counts[i], counts[i+1], opts...)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers = append(layers, l)
	}
	return &Network{layers: layers}, nil
}

// Infer runs one feed-forward pass. len(inputs) must equal the input width.
func (n *Network) Infer(inputs []float64) ([]float64, error) {
	out := inputs
	for i, l := range n.layers {
		var err error
		if out, err = l.Infer(out); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return out, nil
}

// Layout returns the neuron counts the network was built with.
func (n *Network) Layout() []int {
	counts := make([]int, 0, len(n.layers)+1)
	counts = append(counts, n.layers[0].InputCount())
	for _, l := range n.layers {
		counts = append(counts, l.OutputCount())
	}
	return counts
}

// InputCount is the width of the first layer.
func (n *Network) InputCount() int { return n.layers[0].InputCount() }

// OutputCount is the width of the last layer.
func (n *Network) OutputCount() int { return n.layers[len(n.layers)-1].OutputCount() }

// Layers exposes the layers for inspection. Callers must not mutate them.
func (n *Network) Layers() []*Layer { return n.layers }

// Clone returns an independent network with the same parameters.
func (n *Network) Clone() *Network {
	layers := make([]*Layer, len(n.layers))
	for i, l := range n.layers {
		layers[i] = l.clone()
	}
	return &Network{layers: layers}
}
