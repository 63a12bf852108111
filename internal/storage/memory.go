package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/zeusync/drivesim/internal/core/neural"
)

var _ BrainStore = (*MemoryStore)(nil)

// MemoryStore keeps encoded snapshots in a map.
type MemoryStore struct {
	mu     sync.RWMutex
	brains map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{brains: make(map[string][]byte)}
}

func (m *MemoryStore) Save(ctx context.Context, name string, s neural.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode brain: %w", err)
	}
	m.mu.Lock()
	m.brains[name] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, name string) (neural.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return neural.Snapshot{}, err
	}
	m.mu.RLock()
	data, ok := m.brains[name]
	m.mu.RUnlock()
	if !ok {
		return neural.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var s neural.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return neural.Snapshot{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return s, nil
}

func (m *MemoryStore) Discard(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.brains, name)
	m.mu.Unlock()
	return nil
}

// Len reports how many brains are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.brains)
}
