package bus

import "github.com/zeusync/drivesim/internal/core/geometry"

// Simulation event types.
const (
	VehicleDamaged = "vehicle.damaged"
	BrainSaved     = "brain.saved"
	BrainLoaded    = "brain.loaded"
	BrainDiscarded = "brain.discarded"
	WorldReset     = "world.reset"
)

// DamageData is the payload of VehicleDamaged.
type DamageData struct {
	VehicleID string        `json:"vehicle"`
	Tick      uint64        `json:"tick"`
	Pose      geometry.Pose `json:"pose"`
}

// BrainData is the payload of the brain.* events.
type BrainData struct {
	Name        string `json:"name"`
	VehicleID   string `json:"vehicle,omitempty"`
	Fingerprint uint64 `json:"fingerprint,omitempty"`
	Vehicles    int    `json:"vehicles,omitempty"`
}

// ResetData is the payload of WorldReset.
type ResetData struct {
	Tick uint64 `json:"tick"`
}
