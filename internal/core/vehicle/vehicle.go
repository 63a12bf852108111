package vehicle

import (
	"fmt"
	"math"

	"github.com/zeusync/drivesim/internal/core/geometry"
	"github.com/zeusync/drivesim/internal/core/neural"
	"github.com/zeusync/drivesim/internal/core/render"
	"github.com/zeusync/drivesim/internal/core/sensor"
)

const (
	colorAI      = "blue"
	colorDummy   = "red"
	colorDamaged = "gray"
)

var (
	_ sensor.Mount    = (*Vehicle)(nil)
	_ sensor.Obstacle = (*Vehicle)(nil)
)

// Vehicle is one car on the road. It is either active or damaged; damage is
// permanent and freezes pose, speed and footprint. A vehicle is not safe for
// concurrent use.
type Vehicle struct {
	id     string
	pose   geometry.Pose
	width  float64
	height float64

	speed        float64
	acceleration float64
	maxSpeed     float64
	friction     float64
	steering     float64

	controls Controls
	driver   Driver
	sensor   *sensor.RangeSensor // nil for dummies

	polygon geometry.Polygon
	damaged bool
	color   string
}

// New places a vehicle centred at (x, y) facing up.
func New(x, y, width, height float64, driver Driver, opts ...Option) (*Vehicle, error) {
	switch d := driver.(type) {
	case nil:
		return nil, ErrNoDriver
	case *KeyboardDriver:
		if d == nil {
			return nil, ErrNoDriver
		}
	case *NeuralDriver:
		if d == nil || d.net == nil {
			return nil, ErrNoDriver
		}
	}
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return nil, fmt.Errorf("%w: %vx%v", ErrDimensions, width, height)
	}
	if !finite(x) || !finite(y) {
		return nil, fmt.Errorf("%w: position (%v, %v)", ErrSettings, x, y)
	}
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	for _, v := range []float64{s.MaxSpeed, s.Acceleration, s.Friction, s.Steering} {
		if !finite(v) || v < 0 {
			return nil, fmt.Errorf("%w: got %v", ErrSettings, v)
		}
	}

	v := &Vehicle{
		id:           s.ID,
		pose:         geometry.Pose{X: x, Y: y},
		width:        width,
		height:       height,
		acceleration: s.Acceleration,
		maxSpeed:     s.MaxSpeed,
		friction:     s.Friction,
		steering:     s.Steering,
		driver:       driver,
		color:        s.Color,
	}
	if v.color == "" {
		v.color = colorAI
		if driver.Kind() == KindDummy {
			v.color = colorDummy
		}
	}

	if driver.Kind() != KindDummy {
		rs, err := sensor.New(v, s.SensorOptions...)
		if err != nil {
			return nil, err
		}
		v.sensor = rs
	}

	if nd, ok := driver.(*NeuralDriver); ok {
		if v.sensor.RayCount() != nd.net.InputCount() {
			return nil, fmt.Errorf("%w: %d rays, %d inputs", ErrSensorMismatch, v.sensor.RayCount(), nd.net.InputCount())
		}
		if nd.net.OutputCount() != 4 {
			return nil, fmt.Errorf("%w: got %d", ErrControlWidth, nd.net.OutputCount())
		}
	}

	v.polygon = v.buildPolygon()
	return v, nil
}

// NewManual builds a keyboard-driven vehicle.
func NewManual(x, y, width, height float64, keys *KeyboardDriver, opts ...Option) (*Vehicle, error) {
	return New(x, y, width, height, keys, opts...)
}

// NewDummy builds a sensorless vehicle that always drives forward.
func NewDummy(x, y, width, height float64, opts ...Option) (*Vehicle, error) {
	return New(x, y, width, height, DummyDriver{}, opts...)
}

// NewAutonomous builds a vehicle driven by net. The network's input width must
// match the sensor ray count and it must have four outputs.
func NewAutonomous(x, y, width, height float64, net *neural.Network, opts ...Option) (*Vehicle, error) {
	return New(x, y, width, height, NewNeuralDriver(net), opts...)
}

// Update advances the vehicle by one tick against the road borders and the
// footprints of other vehicles. Obstacle polygons are read as they are, so other
// vehicles are seen as of their own last update.
func (v *Vehicle) Update(borders []geometry.Segment, obstacles []sensor.Obstacle) error {
	ai := v.driver.Kind() == KindAI
	if !ai {
		if err := v.driver.Drive(&v.controls, nil); err != nil {
			return fmt.Errorf("vehicle %s: drive: %w", v.id, err)
		}
	}

	if !v.damaged {
		v.move()
		v.polygon = v.buildPolygon()
		v.damaged = v.assessDamage(borders, obstacles)
	}

	if v.sensor != nil {
		v.sensor.Update(borders, obstacles)
		if ai {
			if err := v.driver.Drive(&v.controls, v.sensor.Readings()); err != nil {
				return fmt.Errorf("vehicle %s: drive: %w", v.id, err)
			}
		}
	}
	return nil
}

func (v *Vehicle) move() {
	if v.controls.Forward {
		v.speed += v.acceleration
	}
	if v.controls.Reverse {
		v.speed -= v.acceleration
	}

	if v.speed != 0 {
		flip := 1.0
		if v.speed < 0 {
			flip = -1
		}
		if v.controls.Left {
			v.pose.Angle += v.steering * flip
		}
		if v.controls.Right {
			v.pose.Angle -= v.steering * flip
		}
	}

	v.speed = math.Min(v.speed, v.maxSpeed)
	v.speed = math.Max(v.speed, -v.maxSpeed/2)

	if v.speed > 0 {
		v.speed -= v.friction
	}
	if v.speed < 0 {
		v.speed += v.friction
	}
	if math.Abs(v.speed) < v.friction {
		v.speed = 0
	}

	v.pose.X -= math.Sin(v.pose.Angle) * v.speed
	v.pose.Y -= math.Cos(v.pose.Angle) * v.speed
}

func (v *Vehicle) buildPolygon() geometry.Polygon {
	rad := math.Hypot(v.width, v.height) / 2
	alpha := math.Atan2(v.width, v.height)
	center := v.pose.Position()
	a := v.pose.Angle
	return geometry.Polygon{
		geometry.Advance(center, a-alpha, rad),
		geometry.Advance(center, a+alpha, rad),
		geometry.Advance(center, math.Pi+a-alpha, rad),
		geometry.Advance(center, math.Pi+a+alpha, rad),
	}
}

func (v *Vehicle) assessDamage(borders []geometry.Segment, obstacles []sensor.Obstacle) bool {
	for _, b := range borders {
		if geometry.PolygonsIntersect(v.polygon, b.Polygon()) {
			return true
		}
	}
	for _, o := range obstacles {
		if geometry.PolygonsIntersect(v.polygon, o.Polygon()) {
			return true
		}
	}
	return false
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (v *Vehicle) ID() string { return v.id }

func (v *Vehicle) Kind() Kind { return v.driver.Kind() }

func (v *Vehicle) Pose() geometry.Pose { return v.pose }

func (v *Vehicle) Speed() float64 { return v.speed }

func (v *Vehicle) MaxSpeed() float64 { return v.maxSpeed }

func (v *Vehicle) Controls() Controls { return v.controls }

func (v *Vehicle) Damaged() bool { return v.damaged }

func (v *Vehicle) Size() (width, height float64) { return v.width, v.height }

// Polygon returns a copy of the current footprint.
func (v *Vehicle) Polygon() geometry.Polygon { return v.polygon.Clone() }

// Sensor returns nil for dummy vehicles.
func (v *Vehicle) Sensor() *sensor.RangeSensor { return v.sensor }

// Network returns the controlling network, or nil unless the vehicle is AI driven.
func (v *Vehicle) Network() *neural.Network {
	if nd, ok := v.driver.(*NeuralDriver); ok {
		return nd.net
	}
	return nil
}

// Draw paints the footprint and, when drawSensor is set, the sensor rays.
func (v *Vehicle) Draw(s render.Surface, drawSensor bool) {
	fill := v.color
	if v.damaged {
		fill = colorDamaged
	}
	s.Polygon(v.polygon, render.Style{Fill: fill})
	if drawSensor && v.sensor != nil {
		v.sensor.Draw(s)
	}
}
