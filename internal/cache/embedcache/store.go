package embedcache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/chadd28/hackrice-15-sub000/pkg/errs"
)

// Snapshot is the full on-disk representation of the cache.
type Snapshot struct {
	Metadata Metadata         `json:"metadata"`
	Entries  map[string]Entry `json:"entries"`
}

// Store persists whole snapshots. The cache never depends on it for
// correctness, only to avoid recomputing embeddings across restarts.
type Store interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// FileStore keeps the snapshot as a single JSON file, written atomically
// via a temp file and rename.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Cachef("failed to read cache file %s: %v", s.path, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errs.Cachef("failed to parse cache file %s: %v", s.path, err)
	}

	return &snapshot, nil
}

func (s *FileStore) Save(snapshot *Snapshot) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Cachef("failed to create cache directory %s: %v", dir, err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errs.Cachef("failed to encode cache snapshot: %v", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errs.Cachef("failed to write cache file: %v", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return errs.Cachef("failed to replace cache file: %v", err)
	}

	return nil
}
