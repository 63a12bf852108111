package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeusync/drivesim/internal/core/neural"
	"github.com/zeusync/drivesim/internal/core/observability/log"
	"github.com/zeusync/drivesim/pkg/encoding"
)

var _ BrainStore = (*FileStore)(nil)

// fileDocument is the on-disk envelope. Documents holding only {"levels": ...}
// are accepted too.
type fileDocument struct {
	Checksum string          `json:"checksum"`
	Network  json.RawMessage `json:"network"`
}

// FileStore keeps one JSON document per brain in a directory.
type FileStore struct {
	dir    string
	logger log.Log
	mu     sync.Mutex
}

func NewFileStore(dir string, logger log.Log) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create brain directory: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With(log.String("component", "storage"), log.String("dir", dir)),
	}, nil
}

// Path returns the file a brain is stored in.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Save writes the snapshot next to its final path and renames it into place, so a
// reader never sees a half written brain.
func (s *FileStore) Save(ctx context.Context, name string, snap neural.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	network, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode brain: %w", err)
	}
	data, err := json.MarshalIndent(fileDocument{
		Checksum: encoding.Checksum(network),
		Network:  network,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode brain: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("save brain: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save brain: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save brain: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("save brain: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.Path(name)); err != nil {
		return fmt.Errorf("save brain: %w", err)
	}

	s.logger.Debug("Brain saved", log.String("name", name), log.Int("bytes", len(data)))
	return nil
}

func (s *FileStore) Load(ctx context.Context, name string) (neural.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return neural.Snapshot{}, err
	}
	if !validName(name) {
		return neural.Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.Path(name))
	s.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return neural.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return neural.Snapshot{}, fmt.Errorf("load brain: %w", err)
	}

	snap, err := decodeDocument(data)
	if err != nil {
		return neural.Snapshot{}, fmt.Errorf("%s: %w", name, err)
	}
	return snap, nil
}

func decodeDocument(data []byte) (neural.Snapshot, error) {
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return neural.Snapshot{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	raw := []byte(doc.Network)
	if len(doc.Network) > 0 {
		var compact bytes.Buffer
		if err := json.Compact(&compact, doc.Network); err != nil {
			return neural.Snapshot{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if sum := encoding.Checksum(compact.Bytes()); sum != doc.Checksum {
			return neural.Snapshot{}, fmt.Errorf("%w: checksum %s, want %s", ErrCorrupt, sum, doc.Checksum)
		}
	} else {
		// bare {"levels": [...]} as written by the browser demo
		raw = data
	}

	var snap neural.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return neural.Snapshot{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if len(snap.Levels) == 0 {
		return neural.Snapshot{}, fmt.Errorf("%w: no levels", ErrCorrupt)
	}
	return snap, nil
}

func (s *FileStore) Discard(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("discard brain: %w", err)
	}
	s.logger.Debug("Brain discarded", log.String("name", name))
	return nil
}
