package road

import (
	"fmt"
	"math"

	"github.com/zeusync/drivesim/internal/core/geometry"
	"github.com/zeusync/drivesim/internal/core/render"
)

// Extent is how far the road runs above and below y=0.
const Extent = 1e6

// Road is a straight vertical road split into equal lanes. It never changes after New.
type Road struct {
	x, width  float64
	lanes     int
	left      float64
	right     float64
	top       float64
	bottom    float64
	borders   []geometry.Segment
	laneWidth float64
}

// New builds a road centred on x.
func New(x, width float64, lanes int) (*Road, error) {
	if !(width > 0) || math.IsInf(width, 0) {
		return nil, fmt.Errorf("road width must be positive and finite, got %v", width)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, fmt.Errorf("road centre must be finite, got %v", x)
	}
	if lanes < 1 {
		return nil, fmt.Errorf("road needs at least one lane, got %d", lanes)
	}
	r := &Road{
		x:         x,
		width:     width,
		lanes:     lanes,
		left:      x - width/2,
		right:     x + width/2,
		top:       -Extent,
		bottom:    Extent,
		laneWidth: width / float64(lanes),
	}
	r.borders = []geometry.Segment{
		{A: geometry.Point{X: r.left, Y: r.top}, B: geometry.Point{X: r.left, Y: r.bottom}},
		{A: geometry.Point{X: r.right, Y: r.top}, B: geometry.Point{X: r.right, Y: r.bottom}},
	}
	return r, nil
}

func (r *Road) X() float64     { return r.x }
func (r *Road) Width() float64 { return r.width }
func (r *Road) Left() float64  { return r.left }
func (r *Road) Right() float64 { return r.right }
func (r *Road) LaneCount() int { return r.lanes }

// Borders returns the left and right edge segments.
func (r *Road) Borders() []geometry.Segment {
	return append([]geometry.Segment(nil), r.borders...)
}

// LaneCenter returns the x of lane i's centre. i is clamped to the existing lanes.
func (r *Road) LaneCenter(i int) float64 {
	i = min(max(i, 0), r.lanes-1)
	return r.left + r.laneWidth/2 + float64(i)*r.laneWidth
}

// Draw paints the asphalt, dashed lane dividers and solid borders.
func (r *Road) Draw(s render.Surface) {
	s.Rect(geometry.Box{
		Min: geometry.Point{X: r.left, Y: r.top},
		Max: geometry.Point{X: r.right, Y: r.bottom},
	}, render.Style{Fill: "#2c2c2c"})

	divider := render.Style{Stroke: "white", LineWidth: 5, Dash: []float64{20, 20}}
	for i := 1; i < r.lanes; i++ {
		x := geometry.Lerp(r.left, r.right, float64(i)/float64(r.lanes))
		s.Line(geometry.Point{X: x, Y: r.top}, geometry.Point{X: x, Y: r.bottom}, divider)
	}

	border := render.Style{Stroke: "white", LineWidth: 5}
	for _, b := range r.borders {
		s.Line(b.A, b.B, border)
	}
}
