package neural

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

func TestLayer_Infer(t *testing.T) {
	l, err := NewLayer(2, 1)
	require.NoError(t, err)
	require.NoError(t, l.SetParameters([][]float64{{1}, {1}}, []float64{0.5}))

	out, err := l.Infer([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, out)

	out, err = l.Infer([]float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, out)

	t.Run("sum equal to bias stays off", func(t *testing.T) {
		out, err := l.Infer([]float64{0.25, 0.25})
		require.NoError(t, err)
		assert.Equal(t, []float64{0}, out)
	})

	t.Run("input size mismatch", func(t *testing.T) {
		_, err := l.Infer([]float64{1})
		assert.ErrorIs(t, err, ErrInputSize)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		out, err := l.Infer([]float64{1, 1})
		require.NoError(t, err)
		out[0] = 42
		assert.Equal(t, []float64{1}, l.Outputs())
		assert.Equal(t, []float64{1, 1}, l.Inputs())
	})
}

func TestNewLayer_RandomRange(t *testing.T) {
	l, err := NewLayer(5, 4, seeded(1))
	require.NoError(t, err)

	for _, row := range l.Weights() {
		require.Len(t, row, 4)
		for _, w := range row {
			assert.GreaterOrEqual(t, w, -1.0)
			assert.LessOrEqual(t, w, 1.0)
		}
	}
	for _, b := range l.Biases() {
		assert.GreaterOrEqual(t, b, -1.0)
		assert.LessOrEqual(t, b, 1.0)
	}

	_, err = NewLayer(0, 3)
	assert.ErrorIs(t, err, ErrLayout)
}

func TestNew(t *testing.T) {
	n, err := New([]int{5, 6, 4}, seeded(7))
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 4}, n.Layout())
	assert.Equal(t, 5, n.InputCount())
	assert.Equal(t, 4, n.OutputCount())
	require.Len(t, n.Layers(), 2)

	out, err := n.Infer([]float64{0, 0.2, 0.4, 0.6, 1})
	require.NoError(t, err)
	require.Len(t, out, 4)
	for _, v := range out {
		assert.Contains(t, []float64{0, 1}, v)
	}

	_, err = n.Infer([]float64{1, 2})
	assert.ErrorIs(t, err, ErrInputSize)

	_, err = New([]int{3})
	assert.ErrorIs(t, err, ErrLayout)
	_, err = New([]int{3, 0, 2})
	assert.ErrorIs(t, err, ErrLayout)
}

func TestNew_SeededIsDeterministic(t *testing.T) {
	a, err := New([]int{3, 4, 2}, seeded(99))
	require.NoError(t, err)
	b, err := New([]int{3, 4, 2}, seeded(99))
	require.NoError(t, err)

	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestNetwork_SnapshotLoad(t *testing.T) {
	src, err := New([]int{3, 4, 2}, seeded(1))
	require.NoError(t, err)
	dst, err := New([]int{3, 4, 2}, seeded(2))
	require.NoError(t, err)
	require.NotEqual(t, src.Fingerprint(), dst.Fingerprint())

	require.NoError(t, dst.Load(src.Snapshot()))
	assert.Equal(t, src.Snapshot(), dst.Snapshot())
	assert.Equal(t, src.Fingerprint(), dst.Fingerprint())

	in := []float64{0.1, 0.9, 0.5}
	want, err := src.Infer(in)
	require.NoError(t, err)
	got, err := dst.Infer(in)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNetwork_LoadShapeMismatch(t *testing.T) {
	n, err := New([]int{3, 4, 2}, seeded(3))
	require.NoError(t, err)
	before := n.Snapshot()

	other, err := New([]int{3, 5, 2}, seeded(4))
	require.NoError(t, err)
	assert.ErrorIs(t, n.Load(other.Snapshot()), ErrShape)

	// first level matches, second does not: nothing may be applied
	partial := n.Snapshot()
	partial.Levels[0].Biases[0] = 123
	partial.Levels[1].Biases = partial.Levels[1].Biases[:1]
	assert.ErrorIs(t, n.Load(partial), ErrShape)

	assert.ErrorIs(t, n.Load(Snapshot{}), ErrShape)
	assert.Equal(t, before, n.Snapshot())
}

func TestNetwork_SerializeRoundTrip(t *testing.T) {
	n, err := New([]int{2, 3, 1}, seeded(5))
	require.NoError(t, err)

	data, err := n.Serialize()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"levels"`)
	assert.Contains(t, string(data), `"weights"`)
	assert.Contains(t, string(data), `"biases"`)

	m, err := New([]int{2, 3, 1}, seeded(6))
	require.NoError(t, err)
	require.NoError(t, m.Deserialize(data))
	assert.Equal(t, n.Fingerprint(), m.Fingerprint())

	assert.Error(t, m.Deserialize([]byte("{")))
}

func TestFromSnapshot(t *testing.T) {
	n, err := New([]int{4, 6, 4}, seeded(8))
	require.NoError(t, err)

	m, err := FromSnapshot(n.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, []int{4, 6, 4}, m.Layout())
	assert.Equal(t, n.Fingerprint(), m.Fingerprint())

	_, err = FromSnapshot(Snapshot{})
	assert.ErrorIs(t, err, ErrLayout)
}

func TestSnapshot_Layout(t *testing.T) {
	n, err := New([]int{3, 2, 4}, seeded(10))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 4}, n.Snapshot().Layout())
	assert.Nil(t, Snapshot{}.Layout())

	tests := map[string]func(s *Snapshot){
		"short weight row": func(s *Snapshot) { s.Levels[0].Weights[1] = s.Levels[0].Weights[1][:1] },
		"extra bias":       func(s *Snapshot) { s.Levels[1].Biases = append(s.Levels[1].Biases, 0) },
		"level mismatch":   func(s *Snapshot) { s.Levels[1].Weights = s.Levels[1].Weights[:1] },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			s := n.Snapshot()
			mutate(&s)
			assert.Nil(t, s.Layout())
			_, err := FromSnapshot(s)
			assert.ErrorIs(t, err, ErrLayout)
		})
	}
}

func TestNetwork_Clone(t *testing.T) {
	n, err := New([]int{2, 2}, seeded(9))
	require.NoError(t, err)
	c := n.Clone()
	require.NoError(t, c.Layers()[0].SetParameters([][]float64{{0, 0}, {0, 0}}, []float64{0, 0}))
	assert.NotEqual(t, n.Snapshot(), c.Snapshot())
}
