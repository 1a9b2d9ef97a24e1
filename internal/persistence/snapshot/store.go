package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoSnapshot reports that there is no usable saved state. Corrupt snapshots wrap it too,
// so callers must decide explicitly whether to start a fresh world.
var ErrNoSnapshot = errors.New("snapshot: no saved state")

const fileName = "world.snap.zst"

// Store keeps the single current snapshot of a run under dir.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Path() string { return filepath.Join(s.dir, fileName) }

func (s *Store) Save(snap SnapshotV1) error {
	if err := WriteSnapshot(s.Path(), snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Store) Load() (SnapshotV1, error) {
	snap, err := ReadSnapshot(s.Path())
	if err == nil {
		return snap, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return SnapshotV1{}, ErrNoSnapshot
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		// Unreadable store, not a missing or corrupt document.
		return SnapshotV1{}, fmt.Errorf("load snapshot: %w", err)
	}
	return SnapshotV1{}, fmt.Errorf("%w: %v", ErrNoSnapshot, err)
}
