package storage

import (
	"context"
	"errors"

	"github.com/zeusync/drivesim/internal/core/neural"
)

var (
	ErrNotFound    = errors.New("brain not found")
	ErrCorrupt     = errors.New("brain document is corrupt")
	ErrInvalidName = errors.New("invalid brain name")
)

// BrainStore persists network snapshots under a name.
type BrainStore interface {
	Save(ctx context.Context, name string, s neural.Snapshot) error
	Load(ctx context.Context, name string) (neural.Snapshot, error)
	// Discard removes a stored brain. Discarding a missing brain is not an error.
	Discard(ctx context.Context, name string) error
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for _, r := range name {
		if r == '/' || r == '\\' || r == 0 {
			return false
		}
	}
	return true
}
