package neural

import (
	"fmt"
	"math/rand/v2"
)

// Layer is one affine-threshold transform between two neuron counts.
//
// weights[i][j] connects input neuron i to output neuron j. An output neuron fires
// (1) when its weighted input sum is strictly greater than its bias, otherwise it
// stays at 0.
type Layer struct {
	weights [][]float64
	biases  []float64

	// last inference, kept for the visualizer
	inputs  []float64
	outputs []float64
}

// NewLayer allocates a layer with weights and biases drawn uniformly from [-1, 1].
func NewLayer(inputCount, outputCount int, opts ...Option) (*Layer, error) {
	if inputCount <= 0 || outputCount <= 0 {
		return nil, fmt.Errorf("%w: layer %dx%d", ErrLayout, inputCount, outputCount)
	}
	o := applyOptions(opts)

	l := &Layer{
		weights: make([][]float64, inputCount),
		biases:  make([]float64, outputCount),
		inputs:  make([]float64, inputCount),
		outputs: make([]float64, outputCount),
	}
	for i := range l.weights {
		l.weights[i] = make([]float64, outputCount)
	}
	l.randomize(o.rng)
	return l, nil
}

func (l *Layer) randomize(rng *rand.Rand) {
	uniform := rand.Float64
	if rng != nil {
		uniform = rng.Float64
	}
	for i := range l.weights {
		for j := range l.weights[i] {
			l.weights[i][j] = uniform()*2 - 1
		}
	}
	for j := range l.biases {
		l.biases[j] = uniform()*2 - 1
	}
}

// InputCount returns the number of input neurons.
func (l *Layer) InputCount() int { return len(l.inputs) }

// OutputCount returns the number of output neurons.
func (l *Layer) OutputCount() int { return len(l.outputs) }

// Infer feeds inputs through the layer and returns a fresh copy of the binary
// outputs. len(inputs) must equal InputCount.
func (l *Layer) Infer(inputs []float64) ([]float64, error) {
	if len(inputs) != len(l.inputs) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputSize, len(inputs), len(l.inputs))
	}
	copy(l.inputs, inputs)

	for j := range l.outputs {
		sum := 0.0
		for i, in := range l.inputs {
			sum += in * l.weights[i][j]
		}
		if sum > l.biases[j] {
			l.outputs[j] = 1
		} else {
			l.outputs[j] = 0
		}
	}
	return l.Outputs(), nil
}

// Inputs returns the inputs of the last Infer call.
func (l *Layer) Inputs() []float64 { return append([]float64(nil), l.inputs...) }

// Outputs returns the outputs of the last Infer call.
func (l *Layer) Outputs() []float64 { return append([]float64(nil), l.outputs...) }

// Biases returns a copy of the per-output thresholds.
func (l *Layer) Biases() []float64 { return append([]float64(nil), l.biases...) }

// Weights returns a deep copy of the weight matrix.
func (l *Layer) Weights() [][]float64 {
	cp := make([][]float64, len(l.weights))
	for i, row := range l.weights {
		cp[i] = append([]float64(nil), row...)
	}
	return cp
}

// SetParameters replaces weights and biases after checking their shape. The layer is
// left untouched when the shape does not match.
func (l *Layer) SetParameters(weights [][]float64, biases []float64) error {
	if err := l.checkShape(weights, biases); err != nil {
		return err
	}
	for i, row := range weights {
		copy(l.weights[i], row)
	}
	copy(l.biases, biases)
	return nil
}

func (l *Layer) checkShape(weights [][]float64, biases []float64) error {
	if len(weights) != len(l.weights) {
		return fmt.Errorf("%w: %d weight rows, want %d", ErrShape, len(weights), len(l.weights))
	}
	for i, row := range weights {
		if len(row) != len(l.outputs) {
			return fmt.Errorf("%w: weight row %d has %d columns, want %d", ErrShape, i, len(row), len(l.outputs))
		}
	}
	if len(biases) != len(l.biases) {
		return fmt.Errorf("%w: %d biases, want %d", ErrShape, len(biases), len(l.biases))
	}
	return nil
}

func (l *Layer) clone() *Layer {
	return &Layer{
		weights: l.Weights(),
		biases:  l.Biases(),
		inputs:  make([]float64, len(l.inputs)),
		outputs: make([]float64, len(l.outputs)),
	}
}
