package world

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/zeusync/drivesim/internal/config"
	"github.com/zeusync/drivesim/internal/core/events/bus"
	"github.com/zeusync/drivesim/internal/core/geometry"
	"github.com/zeusync/drivesim/internal/core/neural"
	"github.com/zeusync/drivesim/internal/core/observability/log"
	"github.com/zeusync/drivesim/internal/core/render"
	"github.com/zeusync/drivesim/internal/core/road"
	"github.com/zeusync/drivesim/internal/core/sensor"
	"github.com/zeusync/drivesim/internal/core/vehicle"
	"github.com/zeusync/drivesim/pkg/concurrent"
)

const eventSource = "world"

// focusRatio places the followed vehicle at 70% of the view height.
const focusRatio = 0.7

var ErrUnknownVehicle = errors.New("unknown vehicle")

type Option func(*World)

// WithRand draws every network's initial weights from rng.
func WithRand(rng *rand.Rand) Option {
	return func(w *World) { w.rng = rng }
}

// WithoutIndex makes every fleet vehicle consider all traffic.
func WithoutIndex() Option {
	return func(w *World) { w.bruteForce = true }
}

// WithWorkers overrides simulation.workers.
func WithWorkers(n int) Option {
	return func(w *World) { w.workers = n }
}

// VehicleState is the externally visible state of one vehicle.
type VehicleState struct {
	ID      string        `json:"id"`
	Kind    vehicle.Kind  `json:"kind"`
	Pose    geometry.Pose `json:"pose"`
	Speed   float64       `json:"speed"`
	Damaged bool          `json:"damaged"`
	Traffic bool          `json:"traffic,omitempty"`
}

type Stats struct {
	Tick    uint64 `json:"tick"`
	Fleet   int    `json:"fleet"`
	Traffic int    `json:"traffic"`
	Damaged int    `json:"damaged"`
}

// World owns the road and every vehicle on it and advances them one tick at a
// time. It is not safe for concurrent use.
type World struct {
	cfg    *config.Config
	logger log.Log
	events bus.EventBus

	rng        *rand.Rand
	bruteForce bool
	workers    int

	road     *road.Road
	fleet    []*vehicle.Vehicle
	traffic  []*vehicle.Vehicle
	byID     map[string]*vehicle.Vehicle
	keyboard *vehicle.KeyboardDriver
	index    trafficIndex
	tick     uint64
}

// New builds the road, fleet and traffic described by cfg.
func New(cfg *config.Config, logger log.Log, events bus.EventBus, opts ...Option) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if events == nil {
		events = bus.New()
	}
	w := &World{
		cfg:     cfg,
		logger:  logger.With(log.String("component", "world")),
		events:  events,
		workers: cfg.Simulation.Workers,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.rng == nil && cfg.Simulation.Seed != 0 {
		w.rng = rand.New(rand.NewPCG(cfg.Simulation.Seed, cfg.Simulation.Seed))
	}

	r, err := road.New(cfg.Road.X, cfg.Road.Width, cfg.Road.Lanes)
	if err != nil {
		return nil, err
	}
	w.road = r

	if err = w.populate(); err != nil {
		return nil, err
	}
	w.logger.Info("World created",
		log.Int("fleet", len(w.fleet)),
		log.Int("traffic", len(w.traffic)),
		log.String("control", w.cfg.Fleet.Control))
	return w, nil
}

func (w *World) vehicleOptions(id string, maxSpeed float64) []vehicle.Option {
	vc := w.cfg.Vehicle
	sc := w.cfg.Sensor
	return []vehicle.Option{
		vehicle.WithID(id),
		vehicle.WithMaxSpeed(maxSpeed),
		vehicle.WithAcceleration(vc.Acceleration),
		vehicle.WithFriction(vc.Friction),
		vehicle.WithSteering(vc.Steering),
		vehicle.WithSensor(
			sensor.WithRayCount(sc.Rays),
			sensor.WithRayLength(sc.Length),
			sensor.WithRaySpread(sc.Spread),
		),
	}
}

func (w *World) populate() error {
	kind, err := vehicle.ParseKind(w.cfg.Fleet.Control)
	if err != nil {
		return err
	}

	fc := w.cfg.Fleet
	x := w.road.LaneCenter(fc.Lane)
	width, height := w.cfg.Vehicle.Width, w.cfg.Vehicle.Height

	var netOpts []neural.Option
	if w.rng != nil {
		netOpts = append(netOpts, neural.WithRand(w.rng))
	}

	fleet := make([]*vehicle.Vehicle, 0, fc.Count)
	for i := 0; i < fc.Count; i++ {
		opts := w.vehicleOptions(fmt.Sprintf("car-%d", i), fc.MaxSpeed)

		var v *vehicle.Vehicle
		switch kind {
		case vehicle.KindManual:
			if w.keyboard == nil {
				w.keyboard = vehicle.NewKeyboardDriver()
			}
			w.keyboard.Release()
			v, err = vehicle.NewManual(x, fc.Y, width, height, w.keyboard, opts...)
		default:
			var net *neural.Network
			if net, err = neural.New(w.cfg.Layout(), netOpts...); err != nil {
				return err
			}
			v, err = vehicle.NewAutonomous(x, fc.Y, width, height, net, opts...)
		}
		if err != nil {
			return fmt.Errorf("fleet vehicle %d: %w", i, err)
		}
		fleet = append(fleet, v)
	}

	traffic := make([]*vehicle.Vehicle, 0, len(w.cfg.Traffic))
	for i, tc := range w.cfg.Traffic {
		opts := w.vehicleOptions(fmt.Sprintf("traffic-%d", i), tc.MaxSpeed)
		if tc.Color != "" {
			opts = append(opts, vehicle.WithColor(tc.Color))
		}
		v, err := vehicle.NewDummy(w.road.LaneCenter(tc.Lane), tc.Y, width, height, opts...)
		if err != nil {
			return fmt.Errorf("traffic vehicle %d: %w", i, err)
		}
		traffic = append(traffic, v)
	}

	w.fleet, w.traffic = fleet, traffic
	w.byID = make(map[string]*vehicle.Vehicle, len(fleet)+len(traffic))
	for _, v := range slices.Concat(fleet, traffic) {
		w.byID[v.ID()] = v
	}
	w.index.rebuild(w.traffic)
	return nil
}

// Step advances the world by one tick. Traffic moves first against the borders
// only; the fleet then moves against the borders and the traffic. Fleet vehicles
// never see each other, so they may be updated in parallel. Every vehicle is
// updated even if an earlier one fails; failures are joined into the result.
func (w *World) Step() error {
	borders := w.road.Borders()

	trafficDamaged := make([]bool, len(w.traffic))
	errs := concurrent.ForEach(w.traffic, 1, func(i int, v *vehicle.Vehicle) error {
		var err error
		trafficDamaged[i], err = advance(v, borders, nil)
		return err
	})

	w.index.rebuild(w.traffic)
	var all []sensor.Obstacle
	if w.bruteForce {
		all = make([]sensor.Obstacle, len(w.traffic))
		for i, v := range w.traffic {
			all[i] = v
		}
	}

	fleetDamaged := make([]bool, len(w.fleet))
	errs = errors.Join(errs, concurrent.ForEach(w.fleet, w.workers, func(i int, v *vehicle.Vehicle) error {
		obstacles := all
		if !w.bruteForce {
			obstacles = w.index.near(v)
		}
		var err error
		fleetDamaged[i], err = advance(v, borders, obstacles)
		return err
	}))

	w.tick++
	var damaged []bus.Event
	for i, v := range w.traffic {
		if trafficDamaged[i] {
			damaged = append(damaged, w.damageEvent(v))
		}
	}
	for i, v := range w.fleet {
		if fleetDamaged[i] {
			damaged = append(damaged, w.damageEvent(v))
		}
	}
	if len(damaged) > 0 {
		if err := w.events.PublishBatch(damaged...); err != nil {
			w.logger.Warn("Damage handler failed", log.Int("events", len(damaged)), log.Error(err))
		}
	}
	w.logger.Debug("Tick", log.Uint64("tick", w.tick))
	return errs
}

// advance updates v and reports whether it was damaged by this update.
func advance(v *vehicle.Vehicle, borders []geometry.Segment, obstacles []sensor.Obstacle) (bool, error) {
	wasDamaged := v.Damaged()
	err := v.Update(borders, obstacles)
	return !wasDamaged && v.Damaged(), err
}

func (w *World) damageEvent(v *vehicle.Vehicle) bus.Event {
	w.logger.Info("Vehicle damaged",
		log.String("vehicle", v.ID()),
		log.Uint64("tick", w.tick),
		log.Float64("y", v.Pose().Y))
	return bus.NewEvent(bus.VehicleDamaged, eventSource, bus.DamageData{
		VehicleID: v.ID(),
		Tick:      w.tick,
		Pose:      v.Pose(),
	})
}

func (w *World) Tick() uint64 { return w.tick }

func (w *World) Road() *road.Road { return w.road }

// Fleet returns the controlled vehicles in creation order.
func (w *World) Fleet() []*vehicle.Vehicle { return slices.Clone(w.fleet) }

// Traffic returns the dummy vehicles in creation order.
func (w *World) Traffic() []*vehicle.Vehicle { return slices.Clone(w.traffic) }

func (w *World) Vehicle(id string) (*vehicle.Vehicle, error) {
	v, ok := w.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVehicle, id)
	}
	return v, nil
}

// Keyboard returns the driver shared by manual vehicles, or nil for an AI fleet.
func (w *World) Keyboard() *vehicle.KeyboardDriver { return w.keyboard }

// LoadBrain copies s into every AI vehicle's network. Nothing is changed unless
// every network accepts the snapshot. It returns the number of networks updated.
func (w *World) LoadBrain(s neural.Snapshot) (int, error) {
	probe, err := neural.FromSnapshot(s)
	if err != nil {
		return 0, err
	}
	var nets []*neural.Network
	for _, v := range w.fleet {
		net := v.Network()
		if net == nil {
			continue
		}
		if !slices.Equal(net.Layout(), probe.Layout()) {
			return 0, fmt.Errorf("%w: snapshot layout %v, vehicle %s has %v", neural.ErrShape, probe.Layout(), v.ID(), net.Layout())
		}
		nets = append(nets, net)
	}
	for _, net := range nets {
		if err = net.Load(s); err != nil {
			return 0, err
		}
	}
	return len(nets), nil
}

// Reset rebuilds every vehicle from the configuration and rewinds the tick counter.
// AI vehicles get fresh random networks.
func (w *World) Reset() error {
	if err := w.populate(); err != nil {
		return err
	}
	w.tick = 0
	w.logger.Info("World reset")
	if err := w.events.Publish(bus.NewEvent(bus.WorldReset, eventSource, bus.ResetData{Tick: w.tick})); err != nil {
		w.logger.Warn("Reset handler failed", log.Error(err))
	}
	return nil
}

// States lists fleet then traffic.
func (w *World) States() []VehicleState {
	out := make([]VehicleState, 0, len(w.fleet)+len(w.traffic))
	for _, v := range w.fleet {
		out = append(out, state(v, false))
	}
	for _, v := range w.traffic {
		out = append(out, state(v, true))
	}
	return out
}

func state(v *vehicle.Vehicle, traffic bool) VehicleState {
	return VehicleState{
		ID:      v.ID(),
		Kind:    v.Kind(),
		Pose:    v.Pose(),
		Speed:   v.Speed(),
		Damaged: v.Damaged(),
		Traffic: traffic,
	}
}

func (w *World) Stats() Stats {
	st := Stats{Tick: w.tick, Fleet: len(w.fleet), Traffic: len(w.traffic)}
	for _, v := range w.fleet {
		if v.Damaged() {
			st.Damaged++
		}
	}
	return st
}

// Followed resolves the vehicle the camera follows: focus if it names a vehicle,
// the first fleet vehicle otherwise. It is nil for an empty world.
func (w *World) Followed(focus string) *vehicle.Vehicle {
	if v := w.byID[focus]; v != nil {
		return v
	}
	if len(w.fleet) > 0 {
		return w.fleet[0]
	}
	return nil
}

// Render paints the scene with the camera following focus. An empty or unknown
// focus follows the first fleet vehicle. The followed vehicle is drawn last and is
// the only one whose sensor is shown.
func (w *World) Render(s render.Surface, focus string) {
	followed := w.Followed(focus)

	dy := 0.0
	if followed != nil {
		dy = -followed.Pose().Y + w.cfg.Server.ViewHeight*focusRatio
	}
	view := render.Translate(s, 0, dy)

	w.road.Draw(view)
	for _, v := range w.traffic {
		v.Draw(view, false)
	}
	for _, v := range w.fleet {
		if v != followed {
			v.Draw(view, false)
		}
	}
	if followed != nil {
		followed.Draw(view, w.cfg.Server.DrawSensors)
	}
}
