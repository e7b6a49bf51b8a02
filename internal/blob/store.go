// Package blob abstracts the backing store for attachment bytes. The
// core only ever handles opaque refs; retrieval goes through signed,
// expiring URLs.
package blob

import (
	"context"
	"time"
)

// Store is the consumed blob storage interface.
type Store interface {
	// Put persists the bytes under the given path and returns an
	// opaque ref for later operations.
	Put(ctx context.Context, path string, data []byte) (string, error)
	// Delete removes the blob. It reports true when the blob is gone,
	// including the case where it never existed.
	Delete(ctx context.Context, ref string) (bool, error)
	// SignedURL returns a time-limited retrieval URL for the ref. The
	// URL is recomputed fresh per call and must not be cached.
	SignedURL(ref string, ttl time.Duration) (string, error)
}
