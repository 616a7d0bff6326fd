// Package checkpoint persists resumable generation snapshots as CBOR files.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"time"

	"chunkgen/internal/common/fsutil"
	"chunkgen/internal/orchestrator"
	"chunkgen/internal/wire"
)

// formatVersion is bumped whenever File changes incompatibly.
const formatVersion = 1

// ErrVersion is returned by Load for files written by an incompatible version.
var ErrVersion = errors.New("checkpoint: unsupported file version")

// File is the on-disk envelope of a checkpoint.
type File struct {
	Version int       `cbor:"version"`
	SavedAt time.Time `cbor:"saved_at"`
	// BaseURL of the service the session was started against. Sessions are
	// only meaningful to the service that tokenized them.
	BaseURL    string                  `cbor:"base_url,omitempty"`
	Checkpoint orchestrator.Checkpoint `cbor:"checkpoint"`
}

// Save writes cp to path atomically. A leading '~' in path is expanded.
func Save(path, baseURL string, cp orchestrator.Checkpoint) error {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return err
	}
	b, err := wire.CBOR.Marshal(File{
		Version:    formatVersion,
		SavedAt:    time.Now().UTC(),
		BaseURL:    baseURL,
		Checkpoint: cp,
	})
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}
	return fsutil.WriteFileAtomic(p, b, 0o600)
}

// Load reads and validates the checkpoint stored at path.
func Load(path string) (File, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return File{}, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return File{}, err
	}
	var f File
	if err := wire.CBOR.Unmarshal(b, &f); err != nil {
		return File{}, fmt.Errorf("checkpoint: decode %s: %w", p, err)
	}
	if f.Version != formatVersion {
		return File{}, fmt.Errorf("%w: %d", ErrVersion, f.Version)
	}
	if err := f.Checkpoint.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}
