package cache

import (
	"context"
	"errors"
)

var (
	// ErrMiss indicates the requested key was not found in the cache.
	ErrMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the response cache contract. Entries have no expiry; a Put makes
// the identity permanently replayable without a network call.
type Store interface {
	// Get retrieves an entry by key. Returns ErrMiss when absent.
	Get(ctx context.Context, key Key) (*Entry, error)

	// Put stores an entry under the key, overwriting any previous value.
	Put(ctx context.Context, key Key, entry *Entry) error
}
