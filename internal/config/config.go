package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/drivesim/internal/core/observability/log"
	"github.com/zeusync/drivesim/internal/core/vehicle"
)

var ErrInvalid = errors.New("invalid configuration")

// MaxTickRate keeps the tick interval at one millisecond or more.
const MaxTickRate = 1000

// Config describes a whole simulation: the road, the vehicles on it and the
// processes that drive and show it.
type Config struct {
	Log        log.Config       `json:"log" yaml:"log"`
	Road       RoadConfig       `json:"road" yaml:"road"`
	Vehicle    VehicleConfig    `json:"vehicle" yaml:"vehicle"`
	Sensor     SensorConfig     `json:"sensor" yaml:"sensor"`
	Network    NetworkConfig    `json:"network" yaml:"network"`
	Fleet      FleetConfig      `json:"fleet" yaml:"fleet"`
	Traffic    []TrafficConfig  `json:"traffic" yaml:"traffic"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
}

type RoadConfig struct {
	X     float64 `json:"x" yaml:"x"`
	Width float64 `json:"width" yaml:"width"`
	Lanes int     `json:"lanes" yaml:"lanes"`
}

// VehicleConfig holds the body and kinematics shared by every vehicle.
type VehicleConfig struct {
	Width        float64 `json:"width" yaml:"width"`
	Height       float64 `json:"height" yaml:"height"`
	Acceleration float64 `json:"acceleration" yaml:"acceleration"`
	Friction     float64 `json:"friction" yaml:"friction"`
	Steering     float64 `json:"steering" yaml:"steering"`
}

type SensorConfig struct {
	Rays   int     `json:"rays" yaml:"rays"`
	Length float64 `json:"length" yaml:"length"`
	Spread float64 `json:"spread" yaml:"spread"`
}

// NetworkConfig lists the hidden layer widths. Input width is the ray count and
// output width is always 4.
type NetworkConfig struct {
	Hidden []int `json:"hidden" yaml:"hidden"`
}

// FleetConfig describes the controlled vehicles.
type FleetConfig struct {
	Count    int     `json:"count" yaml:"count"`
	Control  string  `json:"control" yaml:"control"` // ai | keys
	Lane     int     `json:"lane" yaml:"lane"`
	Y        float64 `json:"y" yaml:"y"`
	MaxSpeed float64 `json:"max_speed" yaml:"max_speed"`
}

// TrafficConfig places one dummy vehicle.
type TrafficConfig struct {
	Lane     int     `json:"lane" yaml:"lane"`
	Y        float64 `json:"y" yaml:"y"`
	MaxSpeed float64 `json:"max_speed" yaml:"max_speed"`
	Color    string  `json:"color,omitempty" yaml:"color,omitempty"`
}

type SimulationConfig struct {
	TickRate int    `json:"tick_rate" yaml:"tick_rate"`
	Seed     uint64 `json:"seed" yaml:"seed"` // 0 draws fresh weights every run
	// Workers bounds the goroutines updating the fleet each tick. 0 or 1 is sequential.
	Workers int `json:"workers" yaml:"workers"`
}

type ServerConfig struct {
	Addr        string  `json:"addr" yaml:"addr"`
	InputRate   float64 `json:"input_rate" yaml:"input_rate"`
	InputBurst  int     `json:"input_burst" yaml:"input_burst"`
	DrawSensors bool    `json:"draw_sensors" yaml:"draw_sensors"`
	// ViewWidth and ViewHeight size the scene canvas; NetworkWidth sizes the
	// network panel drawn beside it.
	ViewWidth    float64 `json:"view_width" yaml:"view_width"`
	ViewHeight   float64 `json:"view_height" yaml:"view_height"`
	NetworkWidth float64 `json:"network_width" yaml:"network_width"`
}

type StorageConfig struct {
	Dir   string `json:"dir" yaml:"dir"`
	Brain string `json:"brain" yaml:"brain"`
}

// Default is the classic demo scene: a 200px canvas holding a 3 lane road,
// one AI car and one slower dummy car ahead of it.
func Default() *Config {
	return &Config{
		Log: log.Config{Level: "info", Encoding: "json"},
		Road: RoadConfig{
			X:     100,
			Width: 180,
			Lanes: 3,
		},
		Vehicle: VehicleConfig{
			Width:        30,
			Height:       50,
			Acceleration: vehicle.DefaultAcceleration,
			Friction:     vehicle.DefaultFriction,
			Steering:     vehicle.DefaultSteering,
		},
		Sensor: SensorConfig{
			Rays:   5,
			Length: 150,
			Spread: math.Pi / 4,
		},
		Network: NetworkConfig{Hidden: []int{6}},
		Fleet: FleetConfig{
			Count:    1,
			Control:  string(vehicle.KindAI),
			Lane:     1,
			Y:        100,
			MaxSpeed: vehicle.DefaultMaxSpeed,
		},
		Traffic: []TrafficConfig{
			{Lane: 1, Y: -100, MaxSpeed: 2},
		},
		Simulation: SimulationConfig{TickRate: 60},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			InputRate:   30,
			InputBurst:  10,
			DrawSensors: true,
			ViewWidth:    200,
			ViewHeight:   700,
			NetworkWidth: 300,
		},
		Storage: StorageConfig{
			Dir:   ".",
			Brain: "brain",
		},
	}
}

// Layout returns the neuron counts of the fleet's networks.
func (c *Config) Layout() []int {
	layout := make([]int, 0, len(c.Network.Hidden)+2)
	layout = append(layout, c.Sensor.Rays)
	layout = append(layout, c.Network.Hidden...)
	return append(layout, 4)
}

// Load reads a YAML (or JSON) file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// LoadYAML decodes r on top of Default. Fields missing from r keep their default.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every section and reports the first problem.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: log.encoding %q", ErrInvalid, c.Log.Encoding)
	}

	if !finite(c.Road.X) || !positive(c.Road.Width) {
		return fmt.Errorf("%w: road.x must be finite and road.width positive", ErrInvalid)
	}
	if c.Road.Lanes < 1 {
		return fmt.Errorf("%w: road.lanes must be at least 1", ErrInvalid)
	}

	if !positive(c.Vehicle.Width) || !positive(c.Vehicle.Height) {
		return fmt.Errorf("%w: vehicle width and height must be positive", ErrInvalid)
	}
	if !nonNegative(c.Vehicle.Acceleration) || !nonNegative(c.Vehicle.Friction) || !nonNegative(c.Vehicle.Steering) {
		return fmt.Errorf("%w: vehicle acceleration, friction and steering must not be negative", ErrInvalid)
	}

	if c.Sensor.Rays < 1 {
		return fmt.Errorf("%w: sensor.rays must be at least 1", ErrInvalid)
	}
	if !nonNegative(c.Sensor.Length) || !finite(c.Sensor.Spread) {
		return fmt.Errorf("%w: sensor.length must not be negative and sensor.spread must be finite", ErrInvalid)
	}
	for i, n := range c.Network.Hidden {
		if n < 1 {
			return fmt.Errorf("%w: network.hidden[%d] must be at least 1", ErrInvalid, i)
		}
	}

	if c.Fleet.Count < 0 {
		return fmt.Errorf("%w: fleet.count must not be negative", ErrInvalid)
	}
	kind, err := vehicle.ParseKind(c.Fleet.Control)
	if err != nil || kind == vehicle.KindDummy {
		return fmt.Errorf("%w: fleet.control must be ai or keys, got %q", ErrInvalid, c.Fleet.Control)
	}
	if kind == vehicle.KindManual && c.Fleet.Count > 1 {
		return fmt.Errorf("%w: only one keyboard driven vehicle is supported", ErrInvalid)
	}
	if !nonNegative(c.Fleet.MaxSpeed) || !finite(c.Fleet.Y) {
		return fmt.Errorf("%w: fleet.max_speed must not be negative and fleet.y must be finite", ErrInvalid)
	}
	for i, t := range c.Traffic {
		if !nonNegative(t.MaxSpeed) || !finite(t.Y) {
			return fmt.Errorf("%w: traffic[%d].max_speed must not be negative and y must be finite", ErrInvalid, i)
		}
	}

	if c.Simulation.TickRate < 1 || c.Simulation.TickRate > MaxTickRate {
		return fmt.Errorf("%w: simulation.tick_rate must be between 1 and %d", ErrInvalid, MaxTickRate)
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("%w: simulation.workers must not be negative", ErrInvalid)
	}
	if !positive(c.Server.InputRate) || c.Server.InputBurst < 1 {
		return fmt.Errorf("%w: server input rate and burst must be positive", ErrInvalid)
	}
	if !positive(c.Server.ViewWidth) || !positive(c.Server.ViewHeight) || !positive(c.Server.NetworkWidth) {
		return fmt.Errorf("%w: server view width and height must be positive", ErrInvalid)
	}
	if c.Storage.Brain == "" {
		return fmt.Errorf("%w: storage.brain is required", ErrInvalid)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func positive(v float64) bool { return finite(v) && v > 0 }

func nonNegative(v float64) bool { return finite(v) && v >= 0 }
