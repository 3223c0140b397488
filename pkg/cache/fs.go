package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore caches responses as one JSON file per request identity under a
// root directory. It is the default store: repeated runs with overlapping
// ranges reuse the same files, which is what makes growing-window extraction
// cheaper over time.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed and returns the store.
// An unwritable cache root is fatal for the run, so the error is surfaced
// instead of degrading to uncached operation.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("cache root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Get retrieves an entry from disk. Returns ErrMiss when no file exists.
func (s *FSStore) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			CacheMisses.Inc()
			return nil, ErrMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues("fs").Inc()
	return &entry, nil
}

// Put writes the entry via a temp file and rename so a crashed run never
// leaves a truncated entry behind.
func (s *FSStore) Put(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	path := s.path(key)
	tmp, err := os.CreateTemp(s.root, key.Filename()+".tmp")
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("create temp cache file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("close cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("rename cache file: %w", err)
	}

	CacheSize.WithLabelValues("fs").Add(float64(len(data)))
	return nil
}

func (s *FSStore) path(key Key) string {
	return filepath.Join(s.root, key.Filename())
}
