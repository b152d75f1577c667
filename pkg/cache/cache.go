// Package cache stores parse results keyed by the content of their source.
//
// Parsing is a pure function of a source's bytes, so the rules parsed from
// a dependency file can be reused whenever the same bytes are seen again.
// The pipeline stores the encoded rules under a key derived from the SHA-256
// of the source data; the source name is not part of the key.
//
// # Backends
//
//   - [NullCache]: never stores anything (the default)
//   - [FileCache]: one file per entry under a directory, for the CLI
//   - [MemoryCache]: bounded in-process LRU, for the HTTP service
//   - [RedisCache]: shared cache for several service instances
//
// # Keys
//
// Keys are produced by a [Keyer]. [DefaultKeyer] embeds a parser format
// version so that entries written by an older parser are never read back.
// [ScopedKeyer] adds a namespace prefix.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long parse results are kept when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with optional expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
