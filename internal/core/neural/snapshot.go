package neural

import (
	"encoding/json"
	"fmt"

	"github.com/zeusync/drivesim/pkg/encoding"
)

var _ encoding.Serializable = (*Network)(nil)

// Snapshot is the persisted form of a network: {"levels":[{"weights":..,"biases":..}]}.
type Snapshot struct {
	Levels []LevelSnapshot `json:"levels" yaml:"levels"`
}

// LevelSnapshot holds one layer's parameters.
type LevelSnapshot struct {
	Weights [][]float64 `json:"weights" yaml:"weights"`
	Biases  []float64   `json:"biases" yaml:"biases"`
}

// Layout derives neuron counts from the snapshot. It returns nil when the snapshot
// is empty or ragged: a weight row not matching its level's bias count, or a level
// whose input count differs from the previous level's output count.
func (s Snapshot) Layout() []int {
	if len(s.Levels) == 0 {
		return nil
	}
	counts := []int{len(s.Levels[0].Weights)}
	for _, lvl := range s.Levels {
		if len(lvl.Weights) != counts[len(counts)-1] {
			return nil
		}
		for _, row := range lvl.Weights {
			if len(row) != len(lvl.Biases) {
				return nil
			}
		}
		counts = append(counts, len(lvl.Biases))
	}
	return counts
}

// Snapshot copies the current weights and biases.
func (n *Network) Snapshot() Snapshot {
	s := Snapshot{Levels: make([]LevelSnapshot, len(n.layers))}
	for i, l := range n.layers {
		s.Levels[i] = LevelSnapshot{Weights: l.Weights(), Biases: l.Biases()}
	}
	return s
}

// Load replaces every layer's parameters with the snapshot. The whole snapshot is
// shape-checked first, so a mismatch leaves the network unchanged.
func (n *Network) Load(s Snapshot) error {
	if len(s.Levels) != len(n.layers) {
		return fmt.Errorf("%w: %d levels, want %d", ErrShape, len(s.Levels), len(n.layers))
	}
	for i, l := range n.layers {
		if err := l.checkShape(s.Levels[i].Weights, s.Levels[i].Biases); err != nil {
			return fmt.Errorf("level %d: %w", i, err)
		}
	}
	for i, l := range n.layers {
		if err := l.SetParameters(s.Levels[i].Weights, s.Levels[i].Biases); err != nil {
			return fmt.Errorf("level %d: %w", i, err)
		}
	}
	return nil
}

// FromSnapshot builds a network whose layout and parameters come from s.
func FromSnapshot(s Snapshot) (*Network, error) {
	n, err := New(s.Layout())
	if err != nil {
		return nil, err
	}
	if err = n.Load(s); err != nil {
		return nil, err
	}
	return n, nil
}

// Serialize encodes the network snapshot as JSON.
func (n *Network) Serialize() ([]byte, error) {
	return json.Marshal(n.Snapshot())
}

// Deserialize decodes a JSON snapshot and loads it.
func (n *Network) Deserialize(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return n.Load(s)
}

// Fingerprint identifies the current parameters.
func (n *Network) Fingerprint() uint64 {
	// Serialize only fails on NaN/Inf parameters, which Load and NewLayer never produce.
	fp, _ := encoding.Fingerprint(n)
	return fp
}
