package render

import (
	"github.com/zeusync/drivesim/internal/core/geometry"
	"github.com/zeusync/drivesim/internal/core/neural"
)

const (
	networkMargin = 50.0
	nodeRadius    = 18.0
)

// OutputLabels annotate the final layer in control order: forward, left, right, reverse.
var OutputLabels = []string{"↑", "←", "→", "↓"}

// DrawNetwork paints net inside bounds, first layer at the bottom. Connections are
// coloured by weight, nodes by their last activation and output rings by bias.
func DrawNetwork(s Surface, net *neural.Network, bounds geometry.Box) {
	if net == nil {
		return
	}
	left := bounds.Min.X + networkMargin
	top := bounds.Min.Y + networkMargin
	width := bounds.Max.X - bounds.Min.X - networkMargin*2
	height := bounds.Max.Y - bounds.Min.Y - networkMargin*2

	layers := net.Layers()
	levelHeight := height / float64(len(layers))

	for i := len(layers) - 1; i >= 0; i-- {
		t := 0.5
		if len(layers) > 1 {
			t = float64(i) / float64(len(layers)-1)
		}
		levelTop := top + geometry.Lerp(height-levelHeight, 0, t)

		var labels []string
		if i == len(layers)-1 {
			labels = OutputLabels
		}
		drawLayer(s, layers[i], left, levelTop, width, levelHeight, labels)
	}
}

func drawLayer(s Surface, l *neural.Layer, left, top, width, height float64, labels []string) {
	right := left + width
	bottom := top + height

	inputs, outputs := l.Inputs(), l.Outputs()
	weights, biases := l.Weights(), l.Biases()

	for i := range inputs {
		for j := range outputs {
			s.Line(
				geometry.Point{X: nodeX(len(inputs), i, left, right), Y: bottom},
				geometry.Point{X: nodeX(len(outputs), j, left, right), Y: top},
				Style{Stroke: geometry.ScalarToColor(weights[i][j]).String(), LineWidth: 2},
			)
		}
	}

	for i, v := range inputs {
		c := geometry.Point{X: nodeX(len(inputs), i, left, right), Y: bottom}
		s.Circle(c, nodeRadius, Style{Fill: "black"})
		s.Circle(c, nodeRadius*0.6, Style{Fill: geometry.ScalarToColor(v).String()})
	}

	for i, v := range outputs {
		c := geometry.Point{X: nodeX(len(outputs), i, left, right), Y: top}
		s.Circle(c, nodeRadius, Style{Fill: "black"})
		s.Circle(c, nodeRadius*0.6, Style{Fill: geometry.ScalarToColor(v).String()})
		s.Circle(c, nodeRadius*0.8, Style{
			Stroke:    geometry.ScalarToColor(biases[i]).String(),
			LineWidth: 2,
			Dash:      []float64{3, 3},
		})
		if i < len(labels) {
			s.Text(geometry.Point{X: c.X, Y: c.Y + nodeRadius*0.1}, labels[i], Style{
				Fill:      "black",
				Stroke:    "white",
				LineWidth: 0.5,
				Font:      "27px Arial",
			})
		}
	}
}

func nodeX(count, index int, left, right float64) float64 {
	if count == 1 {
		return geometry.Lerp(left, right, 0.5)
	}
	return geometry.Lerp(left, right, float64(index)/float64(count-1))
}
