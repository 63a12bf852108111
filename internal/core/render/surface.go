package render

import "github.com/zeusync/drivesim/internal/core/geometry"

// Style carries the canvas state for a single drawing call. Colours are CSS strings.
type Style struct {
	Fill      string    `json:"fill,omitempty"`
	Stroke    string    `json:"stroke,omitempty"`
	LineWidth float64   `json:"lineWidth,omitempty"`
	Dash      []float64 `json:"dash,omitempty"`
	Font      string    `json:"font,omitempty"`
}

// Surface is a minimal 2D canvas. Drawing never fails; a surface that cannot show
// something simply drops it.
type Surface interface {
	Polygon(points geometry.Polygon, style Style)
	Line(from, to geometry.Point, style Style)
	Circle(center geometry.Point, radius float64, style Style)
	Text(at geometry.Point, text string, style Style)
	Rect(box geometry.Box, style Style)
}

// Translate returns a surface that shifts every coordinate by (dx, dy) before
// forwarding to s.
func Translate(s Surface, dx, dy float64) Surface {
	if dx == 0 && dy == 0 {
		return s
	}
	return &translated{inner: s, dx: dx, dy: dy}
}

type translated struct {
	inner  Surface
	dx, dy float64
}

func (t *translated) shift(p geometry.Point) geometry.Point {
	return geometry.Point{X: p.X + t.dx, Y: p.Y + t.dy}
}

func (t *translated) Polygon(points geometry.Polygon, style Style) {
	shifted := make(geometry.Polygon, len(points))
	for i, p := range points {
		shifted[i] = t.shift(p)
	}
	t.inner.Polygon(shifted, style)
}

func (t *translated) Line(from, to geometry.Point, style Style) {
	t.inner.Line(t.shift(from), t.shift(to), style)
}

func (t *translated) Circle(center geometry.Point, radius float64, style Style) {
	t.inner.Circle(t.shift(center), radius, style)
}

func (t *translated) Text(at geometry.Point, text string, style Style) {
	t.inner.Text(t.shift(at), text, style)
}

func (t *translated) Rect(box geometry.Box, style Style) {
	t.inner.Rect(geometry.Box{Min: t.shift(box.Min), Max: t.shift(box.Max)}, style)
}
