package vehicle

import (
	"github.com/google/uuid"

	"github.com/zeusync/drivesim/internal/core/sensor"
)

const (
	DefaultAcceleration = 0.2
	DefaultMaxSpeed     = 3.0
	DefaultFriction     = 0.05
	DefaultSteering     = 0.03
)

// Settings collects the tunables applied by Option.
type Settings struct {
	ID            string
	Acceleration  float64
	MaxSpeed      float64
	Friction      float64
	Steering      float64
	Color         string
	SensorOptions []sensor.Option
}

type Option func(*Settings)

func defaultSettings() Settings {
	return Settings{
		ID:           uuid.NewString(),
		Acceleration: DefaultAcceleration,
		MaxSpeed:     DefaultMaxSpeed,
		Friction:     DefaultFriction,
		Steering:     DefaultSteering,
	}
}

// WithID sets the vehicle identifier. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(s *Settings) { s.ID = id }
}

// WithMaxSpeed sets the forward speed cap. Reverse is capped at half of it.
func WithMaxSpeed(v float64) Option {
	return func(s *Settings) { s.MaxSpeed = v }
}

// WithAcceleration sets the per-tick speed change while forward or reverse is held.
func WithAcceleration(v float64) Option {
	return func(s *Settings) { s.Acceleration = v }
}

// WithFriction sets the per-tick speed decay.
func WithFriction(v float64) Option {
	return func(s *Settings) { s.Friction = v }
}

// WithSteering sets the heading change in radians per tick.
func WithSteering(v float64) Option {
	return func(s *Settings) { s.Steering = v }
}

// WithColor overrides the body fill colour.
func WithColor(color string) Option {
	return func(s *Settings) { s.Color = color }
}

// WithSensor configures the range sensor of manual and AI vehicles. Dummy vehicles
// never carry one.
func WithSensor(opts ...sensor.Option) Option {
	return func(s *Settings) { s.SensorOptions = append(s.SensorOptions, opts...) }
}
