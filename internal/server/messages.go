package server

import (
	"github.com/zeusync/drivesim/internal/core/render"
	"github.com/zeusync/drivesim/internal/core/world"
)

// Message types carried in the "type" field.
const (
	MessageKey     = "key"
	MessageSave    = "save"
	MessageDiscard = "discard"
	MessageRestart = "restart"
	MessageFocus   = "focus"

	MessageFrame = "frame"
	MessageAck   = "ack"
	MessageError = "error"
)

// ClientMessage is anything a viewer sends.
type ClientMessage struct {
	Type    string `json:"type"`
	Key     string `json:"key,omitempty"`
	Down    bool   `json:"down,omitempty"`
	Vehicle string `json:"vehicle,omitempty"`
}

// Reply answers a command. Key messages are not answered unless they fail.
type Reply struct {
	Type    string `json:"type"`
	Request string `json:"request,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EventFrame is a bus event as seen by viewers.
type EventFrame struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Data   any    `json:"data,omitempty"`
}

// Frame is pushed to every viewer after each tick.
type Frame struct {
	Type     string               `json:"type"`
	Tick     uint64               `json:"tick"`
	Focus    string               `json:"focus,omitempty"`
	Stats    world.Stats          `json:"stats"`
	Vehicles []world.VehicleState `json:"vehicles"`
	View     View                 `json:"view"`
	Ops      []render.Op          `json:"ops"`
	Network  []render.Op          `json:"network,omitempty"`
	Events   []EventFrame         `json:"events,omitempty"`
}

// View carries the canvas sizes the scene and network ops are laid out for.
type View struct {
	SceneWidth   float64 `json:"scene_width"`
	NetworkWidth float64 `json:"network_width"`
	Height       float64 `json:"height"`
}
