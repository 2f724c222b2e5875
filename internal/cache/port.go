package cache

import (
	"context"
	"time"
)

// Cache is the port consumed by the board service. Values are opaque bytes;
// callers own serialization.
//
// There is no transaction across Get and Set: two concurrent misses may
// both populate the same key and the last writer wins.
type Cache interface {
	// Get returns the value and true on a hit, or nil and false on a miss.
	// An error means the backend could not answer.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl. A non-positive ttl stores the
	// value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
