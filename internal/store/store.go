// Package store holds the durable key/value memory behind the abuse-prevention
// core. Values are opaque bytes; the schema package owns key names and codecs.
package store

import (
	"context"
	"errors"
)

// Backend names accepted by configuration.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// ErrClosed is returned by operations on a store after Close.
var ErrClosed = errors.New("store: closed")

// Store abstracts the persisted state shared by the rate limiter, the
// progressive blocker, the security-event log and the draft profile.
// Implementations must be safe for concurrent use within one process. No
// implementation coordinates across processes: concurrent writers from two
// processes race and the last write wins.
type Store interface {
	// Get retrieves the stored value for a key.
	// Returns nil, nil if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value for a key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources. It is idempotent.
	Close() error
}
