package sensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/drivesim/internal/core/geometry"
	"github.com/zeusync/drivesim/internal/core/render"
)

type fixedMount struct{ pose geometry.Pose }

func (m *fixedMount) Pose() geometry.Pose { return m.pose }

type box geometry.Polygon

func (b box) Polygon() geometry.Polygon { return geometry.Polygon(b) }

func square(cx, cy, half float64) box {
	return box{
		{X: cx - half, Y: cy - half},
		{X: cx + half, Y: cy - half},
		{X: cx + half, Y: cy + half},
		{X: cx - half, Y: cy + half},
	}
}

func horizontal(y float64) geometry.Segment {
	return geometry.Segment{A: geometry.Point{X: -1000, Y: y}, B: geometry.Point{X: 1000, Y: y}}
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(&fixedMount{})
	require.NoError(t, err)
	assert.Equal(t, DefaultRayCount, s.RayCount())
	assert.Equal(t, DefaultRayLength, s.Reach())
	assert.Len(t, s.Readings(), DefaultRayCount)
	assert.Len(t, s.Rays(), DefaultRayCount)

	_, err = New(&fixedMount{}, WithRayCount(0))
	assert.ErrorIs(t, err, ErrConfig)
	_, err = New(&fixedMount{}, WithRayLength(-1))
	assert.ErrorIs(t, err, ErrConfig)
	_, err = New(nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestNew_RejectsNonFinite(t *testing.T) {
	for name, opt := range map[string]Option{
		"NaN length":      WithRayLength(math.NaN()),
		"infinite length": WithRayLength(math.Inf(1)),
		"NaN spread":      WithRaySpread(math.NaN()),
		"infinite spread": WithRaySpread(math.Inf(-1)),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(&fixedMount{}, opt)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestUpdate_RayFan(t *testing.T) {
	s, err := New(&fixedMount{}, WithRayCount(3), WithRayLength(100), WithRaySpread(math.Pi/2))
	require.NoError(t, err)
	s.Update(nil, nil)

	rays := s.Rays()
	// first ray leans left (negative x), last leans right, middle points up
	assert.InDelta(t, -100*math.Sin(math.Pi/4), rays[0].B.X, 1e-9)
	assert.InDelta(t, 0, rays[1].B.X, 1e-9)
	assert.InDelta(t, -100, rays[1].B.Y, 1e-9)
	assert.InDelta(t, 100*math.Sin(math.Pi/4), rays[2].B.X, 1e-9)

	for _, r := range s.Readings() {
		assert.False(t, r.Hit)
		assert.Zero(t, r.Stimulus())
	}
}

func TestUpdate_SingleRayFollowsHeading(t *testing.T) {
	s, err := New(&fixedMount{pose: geometry.Pose{Angle: math.Pi / 2}}, WithRayCount(1), WithRayLength(10))
	require.NoError(t, err)
	s.Update(nil, nil)

	ray := s.Rays()[0]
	assert.InDelta(t, -10, ray.B.X, 1e-9)
	assert.InDelta(t, 0, ray.B.Y, 1e-9)
}

func TestUpdate_NearestHit(t *testing.T) {
	m := &fixedMount{pose: geometry.Pose{X: 0, Y: 0}}
	s, err := New(m)
	require.NoError(t, err)

	s.Update([]geometry.Segment{horizontal(-75)}, nil)
	readings := s.Readings()
	require.True(t, readings[2].Hit)
	assert.InDelta(t, 0.5, readings[2].Offset, 1e-9)
	assert.InDelta(t, -75, readings[2].Y, 1e-9)
	assert.InDelta(t, 0.5, s.Stimuli()[2], 1e-9)

	// outer rays travel farther to reach the same line
	assert.InDelta(t, 0.5/math.Cos(math.Pi/8), readings[0].Offset, 1e-9)
	assert.Greater(t, readings[0].Offset, readings[2].Offset)

	t.Run("obstacle in front of the border wins", func(t *testing.T) {
		s.Update([]geometry.Segment{horizontal(-75)}, []Obstacle{square(0, -40, 10)})
		r := s.Readings()[2]
		require.True(t, r.Hit)
		assert.InDelta(t, 30.0/150.0, r.Offset, 1e-9)
	})

	t.Run("out of range", func(t *testing.T) {
		s.Update([]geometry.Segment{horizontal(-200)}, nil)
		for _, r := range s.Readings() {
			assert.False(t, r.Hit)
		}
	})

	t.Run("follows the mount", func(t *testing.T) {
		m.pose.Y = -50
		s.Update([]geometry.Segment{horizontal(-75)}, nil)
		assert.InDelta(t, 25.0/150.0, s.Readings()[2].Offset, 1e-9)
		assert.InDelta(t, -50, s.Rays()[2].A.Y, 1e-9)
	})
}

func TestUpdate_ZeroLengthRays(t *testing.T) {
	s, err := New(&fixedMount{}, WithRayLength(0))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		s.Update([]geometry.Segment{horizontal(-1)}, []Obstacle{square(0, 0, 5)})
	})
	for _, r := range s.Readings() {
		assert.False(t, r.Hit)
	}
}

func TestDraw(t *testing.T) {
	s, err := New(&fixedMount{}, WithRayCount(2))
	require.NoError(t, err)
	s.Update([]geometry.Segment{horizontal(-75)}, nil)

	rec := render.NewRecorder()
	s.Draw(rec)
	ops := rec.Ops()
	require.Len(t, ops, 4)
	assert.Equal(t, "yellow", ops[0].Style.Stroke)
	assert.Equal(t, "black", ops[1].Style.Stroke)
	// the yellow part stops at the hit point
	assert.InDelta(t, -75, ops[0].Points[1].Y, 1e-9)
	assert.Equal(t, ops[0].Points[1], ops[1].Points[1])
}
