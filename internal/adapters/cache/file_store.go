package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/internal/domain/providers"
)

// FileStore persists the query cache as a JSON map on disk, mirroring
// the prediction_cache.json format the engine's data originated from.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed cache store
func NewFileStore(path string) providers.CacheStore {
	return &FileStore{path: path}
}

// Load reads all persisted entries. A missing file yields an empty map;
// a corrupt file yields an error so the caller can warn and continue.
func (s *FileStore) Load(_ context.Context) (map[string]entities.CacheEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]entities.CacheEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entries map[string]entities.CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if entries == nil {
		entries = map[string]entities.CacheEntry{}
	}
	return entries, nil
}

// Save writes the full entry map atomically (temp file + rename) so a
// crash mid-write never leaves a corrupt store behind.
func (s *FileStore) Save(_ context.Context, entries map[string]entities.CacheEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entries: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
