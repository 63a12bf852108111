package vehicle

import (
	"fmt"
	"strings"
	"sync"

	"github.com/zeusync/drivesim/internal/core/neural"
	"github.com/zeusync/drivesim/internal/core/sensor"
)

// Controls are the four directional signals a driver asserts for the next move.
type Controls struct {
	Forward bool `json:"forward"`
	Left    bool `json:"left"`
	Right   bool `json:"right"`
	Reverse bool `json:"reverse"`
}

// Kind names who is driving.
type Kind string

const (
	KindManual Kind = "keys"
	KindDummy  Kind = "dummy"
	KindAI     Kind = "ai"
)

// ParseKind accepts the kind names used in configuration files.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindManual, KindDummy, KindAI:
		return k, nil
	case "manual":
		return KindManual, nil
	default:
		return "", fmt.Errorf("unknown control kind %q", s)
	}
}

// Driver sets the controls of one vehicle. Manual and dummy drivers are sampled
// before the vehicle moves; the neural driver decides after the sensor update, for
// the following tick.
type Driver interface {
	Kind() Kind
	Drive(c *Controls, readings []sensor.Reading) error
}

// Key is a directional key.
type Key uint8

const (
	KeyUp Key = iota + 1
	KeyDown
	KeyLeft
	KeyRight
)

var keyNames = map[string]Key{
	"ArrowUp":    KeyUp,
	"ArrowDown":  KeyDown,
	"ArrowLeft":  KeyLeft,
	"ArrowRight": KeyRight,
}

// ParseKey maps a DOM key name such as "ArrowUp" to a Key.
func ParseKey(name string) (Key, bool) {
	k, ok := keyNames[name]
	return k, ok
}

// KeyEvent is a key going down or up.
type KeyEvent struct {
	Key  Key
	Down bool
}

// KeyboardDriver holds the pressed state of the arrow keys. HandleKey may be called
// from any goroutine.
type KeyboardDriver struct {
	mu    sync.Mutex
	state Controls
}

func NewKeyboardDriver() *KeyboardDriver {
	return &KeyboardDriver{}
}

func (d *KeyboardDriver) Kind() Kind { return KindManual }

// HandleKey toggles the control bound to ev.Key. Unknown keys are ignored.
func (d *KeyboardDriver) HandleKey(ev KeyEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch ev.Key {
	case KeyUp:
		d.state.Forward = ev.Down
	case KeyDown:
		d.state.Reverse = ev.Down
	case KeyLeft:
		d.state.Left = ev.Down
	case KeyRight:
		d.state.Right = ev.Down
	}
}

// Release lifts every key.
func (d *KeyboardDriver) Release() {
	d.mu.Lock()
	d.state = Controls{}
	d.mu.Unlock()
}

func (d *KeyboardDriver) State() Controls {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *KeyboardDriver) Drive(c *Controls, _ []sensor.Reading) error {
	*c = d.State()
	return nil
}

// DummyDriver holds forward forever.
type DummyDriver struct{}

func (DummyDriver) Kind() Kind { return KindDummy }

func (DummyDriver) Drive(c *Controls, _ []sensor.Reading) error {
	*c = Controls{Forward: true}
	return nil
}

// NeuralDriver feeds sensor stimuli through a network and reads the outputs as
// forward, left, right, reverse.
type NeuralDriver struct {
	net *neural.Network
}

func NewNeuralDriver(net *neural.Network) *NeuralDriver {
	return &NeuralDriver{net: net}
}

func (d *NeuralDriver) Kind() Kind { return KindAI }

func (d *NeuralDriver) Network() *neural.Network { return d.net }

func (d *NeuralDriver) Drive(c *Controls, readings []sensor.Reading) error {
	inputs := make([]float64, len(readings))
	for i, r := range readings {
		inputs[i] = r.Stimulus()
	}
	out, err := d.net.Infer(inputs)
	if err != nil {
		return err
	}
	// raw activations are used as-is: anything nonzero asserts the control
	c.Forward = out[0] != 0
	c.Left = out[1] != 0
	c.Right = out[2] != 0
	c.Reverse = out[3] != 0
	return nil
}
