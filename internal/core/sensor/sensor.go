package sensor

import (
	"fmt"
	"math"

	"github.com/zeusync/drivesim/internal/core/geometry"
	"github.com/zeusync/drivesim/internal/core/render"
)

const (
	DefaultRayCount  = 5
	DefaultRayLength = 150.0
	DefaultRaySpread = math.Pi / 4
)

// Mount is whatever the sensor is attached to.
type Mount interface {
	Pose() geometry.Pose
}

// Obstacle is anything with a footprint a ray can hit.
type Obstacle interface {
	Polygon() geometry.Polygon
}

// Reading is the nearest hit along one ray. Hit is false when the ray touched nothing.
type Reading struct {
	Hit bool `json:"hit"`
	geometry.Intersection
}

// Stimulus maps a reading to a network input: 1-offset for a hit, 0 otherwise.
func (r Reading) Stimulus() float64 {
	if !r.Hit {
		return 0
	}
	return 1 - r.Offset
}

// Option tunes the ray fan of a RangeSensor built by New.
type Option func(*RangeSensor)

// WithRayCount sets the number of rays in the fan.
func WithRayCount(n int) Option {
	return func(s *RangeSensor) { s.rayCount = n }
}

// WithRayLength sets the length of every ray.
func WithRayLength(length float64) Option {
	return func(s *RangeSensor) { s.rayLength = length }
}

// WithRaySpread sets the total angle covered by the fan, centred on the heading.
func WithRaySpread(spread float64) Option {
	return func(s *RangeSensor) { s.raySpread = spread }
}

// RangeSensor casts a fixed fan of rays from its mount and keeps the nearest hit per
// ray. Ray count, length and spread never change after construction.
type RangeSensor struct {
	mount     Mount
	rayCount  int
	rayLength float64
	raySpread float64

	rays     []geometry.Segment
	readings []Reading
}

// New builds a sensor on mount with DefaultRayCount rays of DefaultRayLength
// spread over DefaultRaySpread, unless opts say otherwise. The rays are cast once
// from the mount's current pose; every reading is a miss until Update.
func New(mount Mount, opts ...Option) (*RangeSensor, error) {
	s := &RangeSensor{
		mount:     mount,
		rayCount:  DefaultRayCount,
		rayLength: DefaultRayLength,
		raySpread: DefaultRaySpread,
	}
	for _, opt := range opts {
		opt(s)
	}
	if mount == nil {
		return nil, fmt.Errorf("%w: nil mount", ErrConfig)
	}
	if s.rayCount < 1 {
		return nil, fmt.Errorf("%w: ray count %d", ErrConfig, s.rayCount)
	}
	if !(s.rayLength >= 0) || math.IsInf(s.rayLength, 0) {
		return nil, fmt.Errorf("%w: ray length %v", ErrConfig, s.rayLength)
	}
	if math.IsNaN(s.raySpread) || math.IsInf(s.raySpread, 0) {
		return nil, fmt.Errorf("%w: ray spread %v", ErrConfig, s.raySpread)
	}
	s.rays = make([]geometry.Segment, s.rayCount)
	s.readings = make([]Reading, s.rayCount)
	s.castRays()
	return s, nil
}

// Update recasts the rays from the mount's current pose and records, per ray, the
// nearest intersection with the borders and the obstacle outlines.
func (s *RangeSensor) Update(borders []geometry.Segment, obstacles []Obstacle) {
	s.castRays()
	for i, ray := range s.rays {
		s.readings[i] = nearest(ray, borders, obstacles)
	}
}

func (s *RangeSensor) castRays() {
	pose := s.mount.Pose()
	start := pose.Position()
	for i := range s.rays {
		t := 0.5
		if s.rayCount > 1 {
			t = float64(i) / float64(s.rayCount-1)
		}
		angle := geometry.Lerp(s.raySpread/2, -s.raySpread/2, t) + pose.Angle
		s.rays[i] = geometry.Segment{A: start, B: geometry.Advance(start, angle, s.rayLength)}
	}
}

func nearest(ray geometry.Segment, borders []geometry.Segment, obstacles []Obstacle) Reading {
	var best Reading
	consider := func(hit geometry.Intersection, ok bool) {
		if ok && (!best.Hit || hit.Offset < best.Offset) {
			best = Reading{Hit: true, Intersection: hit}
		}
	}
	for _, b := range borders {
		consider(ray.Intersect(b))
	}
	for _, o := range obstacles {
		for _, edge := range o.Polygon().Edges() {
			consider(ray.Intersect(edge))
		}
	}
	return best
}

// Readings returns one reading per ray, in ray order.
func (s *RangeSensor) Readings() []Reading {
	return append([]Reading(nil), s.readings...)
}

// Rays returns the segments cast by the last Update.
func (s *RangeSensor) Rays() []geometry.Segment {
	return append([]geometry.Segment(nil), s.rays...)
}

// Stimuli converts the readings into network inputs.
func (s *RangeSensor) Stimuli() []float64 {
	out := make([]float64, len(s.readings))
	for i, r := range s.readings {
		out[i] = r.Stimulus()
	}
	return out
}

// RayCount is the number of rays, and so the length of Readings and Stimuli.
func (s *RangeSensor) RayCount() int { return s.rayCount }

// Reach is the farthest distance from the mount a ray can touch.
func (s *RangeSensor) Reach() float64 { return s.rayLength }

// Draw paints each ray yellow up to its hit point and black beyond it.
func (s *RangeSensor) Draw(surface render.Surface) {
	for i, ray := range s.rays {
		end := ray.B
		if s.readings[i].Hit {
			end = s.readings[i].Point
		}
		surface.Line(ray.A, end, render.Style{Stroke: "yellow", LineWidth: 2})
		surface.Line(ray.B, end, render.Style{Stroke: "black", LineWidth: 2})
	}
}
