package render

import "github.com/zeusync/drivesim/internal/core/geometry"

type OpKind string

const (
	OpPolygon OpKind = "polygon"
	OpLine    OpKind = "line"
	OpCircle  OpKind = "circle"
	OpText    OpKind = "text"
	OpRect    OpKind = "rect"
)

// Op is one recorded drawing call, shaped for JSON frames.
type Op struct {
	Kind   OpKind           `json:"op"`
	Points []geometry.Point `json:"points,omitempty"`
	Radius float64          `json:"radius,omitempty"`
	Text   string           `json:"text,omitempty"`
	Style  Style            `json:"style"`
}

var _ Surface = (*Recorder)(nil)

// Recorder is a Surface that keeps every call in order. It is not safe for
// concurrent use.
type Recorder struct {
	ops []Op
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Polygon(points geometry.Polygon, style Style) {
	r.ops = append(r.ops, Op{Kind: OpPolygon, Points: points.Clone(), Style: style})
}

func (r *Recorder) Line(from, to geometry.Point, style Style) {
	r.ops = append(r.ops, Op{Kind: OpLine, Points: []geometry.Point{from, to}, Style: style})
}

func (r *Recorder) Circle(center geometry.Point, radius float64, style Style) {
	r.ops = append(r.ops, Op{Kind: OpCircle, Points: []geometry.Point{center}, Radius: radius, Style: style})
}

func (r *Recorder) Text(at geometry.Point, text string, style Style) {
	r.ops = append(r.ops, Op{Kind: OpText, Points: []geometry.Point{at}, Text: text, Style: style})
}

func (r *Recorder) Rect(box geometry.Box, style Style) {
	r.ops = append(r.ops, Op{Kind: OpRect, Points: []geometry.Point{box.Min, box.Max}, Style: style})
}

// Ops returns the recorded calls since the last Reset.
func (r *Recorder) Ops() []Op {
	return append([]Op(nil), r.ops...)
}

// Count returns how many ops of kind were recorded.
func (r *Recorder) Count(kind OpKind) int {
	n := 0
	for _, op := range r.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.ops = r.ops[:0]
}
