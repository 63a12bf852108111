package geometry

import "math"

// Plane geometry for the driving world. Screen convention: y grows downward and a
// heading of 0 points "up" (toward decreasing y).

// Point is an immutable 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is an ordered pair of points.
type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Polygon is a closed loop: edge i joins point i to point (i+1) mod n.
type Polygon []Point

// Pose is a position plus a heading in radians.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// Position returns the pose origin.
func (p Pose) Position() Point { return Point{X: p.X, Y: p.Y} }

// Intersection is a crossing point together with its fractional offset along the
// first segment.
type Intersection struct {
	Point
	Offset float64 `json:"offset"`
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Lerp returns a + (b-a)*t. t is not clamped.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Advance moves p by dist along angle using the screen heading convention.
func Advance(p Point, angle, dist float64) Point {
	return Point{
		X: p.X - math.Sin(angle)*dist,
		Y: p.Y - math.Cos(angle)*dist,
	}
}

// Distance computes Euclidean distance between two points.
func Distance(a, b Point) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }

// SegmentIntersection intersects AB with CD. It reports false for parallel or
// collinear segments and when the crossing lies outside either segment.
func SegmentIntersection(a, b, c, d Point) (Intersection, bool) {
	abx, aby := b.X-a.X, b.Y-a.Y
	cdx, cdy := d.X-c.X, d.Y-c.Y

	den := abx*cdy - aby*cdx
	if den == 0 {
		return Intersection{}, false
	}

	acx, acy := c.X-a.X, c.Y-a.Y
	t := (acx*cdy - acy*cdx) / den
	u := (acx*aby - acy*abx) / den

	// NaN fails every comparison, so degenerate input falls through to false.
	if t >= 0 && t <= 1 && u >= 0 && u <= 1 {
		return Intersection{
			Point:  Point{X: a.X + abx*t, Y: a.Y + aby*t},
			Offset: t,
		}, true
	}
	return Intersection{}, false
}

// Intersect is SegmentIntersection applied to two segments.
func (s Segment) Intersect(o Segment) (Intersection, bool) {
	return SegmentIntersection(s.A, s.B, o.A, o.B)
}

// Polygon returns the segment as a two point polygon so it can take part in
// PolygonsIntersect.
func (s Segment) Polygon() Polygon { return Polygon{s.A, s.B} }

// Edges returns the closed loop edges of the polygon.
func (p Polygon) Edges() []Segment {
	if len(p) == 0 {
		return nil
	}
	edges := make([]Segment, len(p))
	for i := range p {
		edges[i] = Segment{A: p[i], B: p[(i+1)%len(p)]}
	}
	return edges
}

// Clone returns a copy of the polygon.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	cp := make(Polygon, len(p))
	copy(cp, p)
	return cp
}

// Bounds returns the axis-aligned box around the polygon. An empty polygon has a
// zero box.
func (p Polygon) Bounds() Box {
	if len(p) == 0 {
		return Box{}
	}
	box := Box{Min: p[0], Max: p[0]}
	for _, pt := range p[1:] {
		box.Min.X = math.Min(box.Min.X, pt.X)
		box.Min.Y = math.Min(box.Min.Y, pt.Y)
		box.Max.X = math.Max(box.Max.X, pt.X)
		box.Max.Y = math.Max(box.Max.Y, pt.Y)
	}
	return box
}

// PolygonsIntersect reports whether any edge of p crosses any edge of q. Only edge
// crossings count: a polygon fully inside another one is not reported.
func PolygonsIntersect(p, q Polygon) bool {
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		for j := range q {
			if _, ok := SegmentIntersection(a, b, q[j], q[(j+1)%len(q)]); ok {
				return true
			}
		}
	}
	return false
}
