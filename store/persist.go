package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"vogue-studio-backend/models"
)

// StorageNamespace is the fixed key the studio snapshot is stored
// under, mirrored into the snapshot filename.
const StorageNamespace = "vogue-ai-studio-storage"

// Persister is the durability boundary for the store. Load returns
// (nil, nil) when no snapshot exists yet.
type Persister interface {
	Load() (*models.PersistedState, error)
	Save(state *models.PersistedState) error
}

// FilePersister stores the snapshot as a single JSON document on the
// local filesystem.
type FilePersister struct {
	path string
}

// NewFilePersister creates the base directory if needed and returns a
// persister writing to <basePath>/<namespace>.json.
func NewFilePersister(basePath string) (*FilePersister, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &FilePersister{
		path: filepath.Join(basePath, StorageNamespace+".json"),
	}, nil
}

// Load reads and decodes the snapshot. A missing file is not an error;
// a corrupt one is, so the store can log it and fall back to defaults.
func (p *FilePersister) Load() (*models.PersistedState, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state snapshot: %w", err)
	}

	var state models.PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state snapshot: %w", err)
	}

	return &state, nil
}

// Save encodes the snapshot and replaces the file. The write goes to a
// temp file first so a crash mid-write cannot corrupt the snapshot.
func (p *FilePersister) Save(state *models.PersistedState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state snapshot: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state snapshot: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace state snapshot: %w", err)
	}

	return nil
}
