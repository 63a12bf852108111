package world

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/zeusync/drivesim/internal/core/geometry"
	"github.com/zeusync/drivesim/internal/core/sensor"
	"github.com/zeusync/drivesim/internal/core/vehicle"
)

const (
	// rtreego treats touching boxes as disjoint, so every box is padded.
	indexMargin = 1.0

	indexMinChildren = 25
	indexMaxChildren = 50
)

type indexed struct {
	order int
	v     *vehicle.Vehicle
	rect  rtreego.Rect
}

func (i *indexed) Bounds() rtreego.Rect { return i.rect }

// trafficIndex answers "which traffic could this vehicle touch this tick". It is
// rebuilt after traffic moves and before the fleet moves.
type trafficIndex struct {
	tree *rtreego.Rtree
}

func boxRect(b geometry.Box, pad float64) rtreego.Rect {
	r, _ := rtreego.NewRectFromPoints(
		rtreego.Point{b.Min.X - pad, b.Min.Y - pad},
		rtreego.Point{b.Max.X + pad, b.Max.Y + pad},
	)
	return r
}

func (ix *trafficIndex) rebuild(traffic []*vehicle.Vehicle) {
	items := make([]rtreego.Spatial, len(traffic))
	for i, v := range traffic {
		items[i] = &indexed{order: i, v: v, rect: boxRect(v.Polygon().Bounds(), indexMargin)}
	}
	ix.tree = rtreego.NewTree(2, indexMinChildren, indexMaxChildren, items...)
}

// near returns, in traffic order, the vehicles whose footprint may meet v's
// footprint or sensor rays during v's next update.
func (ix *trafficIndex) near(v *vehicle.Vehicle) []sensor.Obstacle {
	if ix.tree == nil || ix.tree.Size() == 0 {
		return nil
	}
	width, height := v.Size()
	reach := math.Hypot(width, height)/2 + v.MaxSpeed()
	if s := v.Sensor(); s != nil {
		reach += s.Reach()
	}
	p := v.Pose().Position()
	query := geometry.Box{Min: p, Max: p}

	hits := ix.tree.SearchIntersect(boxRect(query, reach+indexMargin))
	sort.Slice(hits, func(a, b int) bool {
		return hits[a].(*indexed).order < hits[b].(*indexed).order
	})

	out := make([]sensor.Obstacle, len(hits))
	for i, h := range hits {
		out[i] = h.(*indexed).v
	}
	return out
}
