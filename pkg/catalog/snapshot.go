package catalog

import (
	"encoding/gob"
	"fmt"
	"os"
)

const snapshotVersion = 1

type snapshot struct {
	Version int
	Rows    []Row
	Skipped int
}

// WriteSnapshot gob-encodes the catalog rows to path. Loading a snapshot skips
// header resolution and numeric parsing.
func WriteSnapshot(c *Catalog, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	s := snapshot{Version: snapshotVersion, Rows: c.Rows, Skipped: c.Stats.Skipped}
	if err := gob.NewEncoder(f).Encode(&s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return f.Close()
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot and rebuilds the
// index.
func ReadSnapshot(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var s snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", s.Version, snapshotVersion)
	}
	c := New(s.Rows)
	c.Stats.Skipped += s.Skipped
	c.Path = path
	return c, nil
}
