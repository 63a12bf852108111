package geometry

import (
	"math"
	"strconv"
)

// RGBA is an 8-bit colour with a [0,1] alpha.
type RGBA struct {
	R, G, B uint8
	A       float64
}

// ScalarToColor maps v in [-1,1] onto a diverging palette: positive values are
// yellow, negative values blue, and the magnitude sets the alpha.
func ScalarToColor(v float64) RGBA {
	c := RGBA{A: math.Abs(v)}
	if v >= 0 {
		c.R = 255
	} else {
		c.B = 255
	}
	c.G = c.R
	return c
}

// String renders the colour as a CSS rgba() value.
func (c RGBA) String() string {
	b := make([]byte, 0, 32)
	b = append(b, "rgba("...)
	b = strconv.AppendUint(b, uint64(c.R), 10)
	b = append(b, ',')
	b = strconv.AppendUint(b, uint64(c.G), 10)
	b = append(b, ',')
	b = strconv.AppendUint(b, uint64(c.B), 10)
	b = append(b, ',')
	b = strconv.AppendFloat(b, c.A, 'f', -1, 64)
	return string(append(b, ')'))
}

// MarshalText lets colours travel as CSS strings in JSON frames.
func (c RGBA) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
