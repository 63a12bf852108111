package world

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/drivesim/internal/config"
	"github.com/zeusync/drivesim/internal/core/events/bus"
	"github.com/zeusync/drivesim/internal/core/neural"
	"github.com/zeusync/drivesim/internal/core/observability/log"
	"github.com/zeusync/drivesim/internal/core/render"
	"github.com/zeusync/drivesim/internal/core/vehicle"
)

func seededConfig(seed uint64) *config.Config {
	cfg := config.Default()
	cfg.Simulation.Seed = seed
	return cfg
}

func manualConfig() *config.Config {
	cfg := config.Default()
	cfg.Fleet.Control = string(vehicle.KindManual)
	cfg.Traffic = []config.TrafficConfig{{Lane: 1, Y: -100, MaxSpeed: 0}}
	return cfg
}

func TestNew(t *testing.T) {
	w, err := New(seededConfig(1), log.Nop(), nil)
	require.NoError(t, err)

	assert.Len(t, w.Fleet(), 1)
	assert.Len(t, w.Traffic(), 1)
	assert.Nil(t, w.Keyboard())
	assert.Equal(t, Stats{Fleet: 1, Traffic: 1}, w.Stats())

	car, err := w.Vehicle("car-0")
	require.NoError(t, err)
	assert.Equal(t, vehicle.KindAI, car.Kind())
	assert.Equal(t, w.Road().LaneCenter(1), car.Pose().X)
	assert.Equal(t, []int{5, 6, 4}, car.Network().Layout())

	_, err = w.Vehicle("nobody")
	assert.ErrorIs(t, err, ErrUnknownVehicle)

	bad := config.Default()
	bad.Road.Lanes = 0
	_, err = New(bad, log.Nop(), nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNew_SeedIsDeterministic(t *testing.T) {
	a, err := New(seededConfig(42), log.Nop(), nil)
	require.NoError(t, err)
	b, err := New(seededConfig(42), log.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, a.Fleet()[0].Network().Fingerprint(), b.Fleet()[0].Network().Fingerprint())

	c, err := New(seededConfig(1), log.Nop(), nil, WithRand(rand.New(rand.NewPCG(42, 42))))
	require.NoError(t, err)
	assert.Equal(t, a.Fleet()[0].Network().Fingerprint(), c.Fleet()[0].Network().Fingerprint())
}

func TestStep_IndexMatchesBruteForce(t *testing.T) {
	cfg := seededConfig(7)
	cfg.Fleet.Count = 20
	cfg.Traffic = []config.TrafficConfig{
		{Lane: 0, Y: -100, MaxSpeed: 2},
		{Lane: 1, Y: -300, MaxSpeed: 1},
		{Lane: 2, Y: -250, MaxSpeed: 2},
		{Lane: 1, Y: -2000, MaxSpeed: 2},
		{Lane: 0, Y: 400, MaxSpeed: 2.5},
	}

	indexed, err := New(cfg, log.Nop(), nil)
	require.NoError(t, err)
	brute, err := New(cfg, log.Nop(), nil, WithoutIndex())
	require.NoError(t, err)

	for i := 0; i < 400; i++ {
		require.NoError(t, indexed.Step())
		require.NoError(t, brute.Step())
	}
	assert.Equal(t, brute.States(), indexed.States())
	for i, v := range indexed.Fleet() {
		assert.Equal(t, brute.Fleet()[i].Sensor().Readings(), v.Sensor().Readings())
	}
}

func TestStep_ParallelMatchesSequential(t *testing.T) {
	cfg := seededConfig(11)
	cfg.Fleet.Count = 16
	cfg.Traffic = append(cfg.Traffic, config.TrafficConfig{Lane: 0, Y: -150, MaxSpeed: 1})

	seq, err := New(cfg, log.Nop(), nil)
	require.NoError(t, err)
	par, err := New(cfg, log.Nop(), nil, WithWorkers(4))
	require.NoError(t, err)

	for i := 0; i < 300; i++ {
		require.NoError(t, seq.Step())
		require.NoError(t, par.Step())
	}
	assert.Equal(t, seq.States(), par.States())
	assert.Equal(t, seq.Stats(), par.Stats())
}

func TestStep_DamageEvent(t *testing.T) {
	events := bus.New()
	var damaged []bus.DamageData
	_, err := events.Subscribe(bus.VehicleDamaged, func(e bus.Event) error {
		damaged = append(damaged, e.Data().(bus.DamageData))
		return nil
	})
	require.NoError(t, err)

	w, err := New(manualConfig(), log.Nop(), events)
	require.NoError(t, err)
	require.NotNil(t, w.Keyboard())
	w.Keyboard().HandleKey(vehicle.KeyEvent{Key: vehicle.KeyUp, Down: true})

	for i := 0; i < 200 && w.Stats().Damaged == 0; i++ {
		require.NoError(t, w.Step())
	}
	require.Equal(t, 1, w.Stats().Damaged)
	require.Len(t, damaged, 1)
	assert.Equal(t, "car-0", damaged[0].VehicleID)
	assert.Equal(t, w.Tick(), damaged[0].Tick)

	for i := 0; i < 20; i++ {
		require.NoError(t, w.Step())
	}
	assert.Len(t, damaged, 1, "damage is reported once")
}

func TestStep_DamageEventsBatchedInOrder(t *testing.T) {
	events := bus.New()
	var ids []string
	_, err := events.Subscribe(bus.VehicleDamaged, func(e bus.Event) error {
		d := e.Data().(bus.DamageData)
		assert.Equal(t, uint64(1), d.Tick)
		ids = append(ids, d.VehicleID)
		return errors.New("handler failed")
	})
	require.NoError(t, err)

	cfg := seededConfig(2)
	cfg.Fleet.Count = 3
	cfg.Traffic = []config.TrafficConfig{{Lane: cfg.Fleet.Lane, Y: cfg.Fleet.Y, MaxSpeed: 0}}
	w, err := New(cfg, log.Nop(), events, WithWorkers(3))
	require.NoError(t, err)

	require.NoError(t, w.Step(), "handler errors are logged, not returned")
	assert.Equal(t, []string{"car-0", "car-1", "car-2"}, ids)
	assert.Equal(t, 3, w.Stats().Damaged)
}

func TestLoadBrain(t *testing.T) {
	cfg := seededConfig(3)
	cfg.Fleet.Count = 3
	w, err := New(cfg, log.Nop(), nil)
	require.NoError(t, err)

	fleet := w.Fleet()
	require.NotEqual(t, fleet[0].Network().Fingerprint(), fleet[1].Network().Fingerprint())

	n, err := w.LoadBrain(fleet[0].Network().Snapshot())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, v := range fleet {
		assert.Equal(t, fleet[0].Network().Fingerprint(), v.Network().Fingerprint())
	}

	other, err := neural.New([]int{5, 8, 4})
	require.NoError(t, err)
	before := fleet[1].Network().Fingerprint()
	_, err = w.LoadBrain(other.Snapshot())
	assert.ErrorIs(t, err, neural.ErrShape)
	assert.Equal(t, before, fleet[1].Network().Fingerprint())

	_, err = w.LoadBrain(neural.Snapshot{})
	assert.Error(t, err)
}

func TestLoadBrain_ManualFleet(t *testing.T) {
	w, err := New(manualConfig(), log.Nop(), nil)
	require.NoError(t, err)
	net, err := neural.New([]int{5, 6, 4})
	require.NoError(t, err)

	n, err := w.LoadBrain(net.Snapshot())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReset(t *testing.T) {
	events := bus.New()
	resets := 0
	_, err := events.Subscribe(bus.WorldReset, func(bus.Event) error { resets++; return nil })
	require.NoError(t, err)

	w, err := New(manualConfig(), log.Nop(), events)
	require.NoError(t, err)
	keys := w.Keyboard()
	keys.HandleKey(vehicle.KeyEvent{Key: vehicle.KeyUp, Down: true})
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Step())
	}
	before := w.Fleet()[0]

	require.NoError(t, w.Reset())
	assert.Zero(t, w.Tick())
	assert.Equal(t, 1, resets)
	assert.NotSame(t, before, w.Fleet()[0])
	assert.Same(t, keys, w.Keyboard())
	assert.Equal(t, vehicle.Controls{}, keys.State())
	assert.Equal(t, 100.0, w.Fleet()[0].Pose().Y)
}

func TestRender(t *testing.T) {
	cfg := seededConfig(5)
	cfg.Fleet.Count = 2
	w, err := New(cfg, log.Nop(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Step())

	rec := render.NewRecorder()
	w.Render(rec, "")

	// road: asphalt, 2 dividers, 2 borders; 3 bodies; 5 rays for the followed car
	assert.Equal(t, 1, rec.Count(render.OpRect))
	assert.Equal(t, 3, rec.Count(render.OpPolygon))
	assert.Equal(t, 4+2*cfg.Sensor.Rays, rec.Count(render.OpLine))

	// the followed car is drawn last, at 70% of the view height
	ops := rec.Ops()
	var last render.Op
	for _, op := range ops {
		if op.Kind == render.OpPolygon {
			last = op
		}
	}
	var cy float64
	for _, p := range last.Points {
		cy += p.Y / float64(len(last.Points))
	}
	assert.InDelta(t, cfg.Server.ViewHeight*focusRatio, cy, 1e-9)
}
