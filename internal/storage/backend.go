// Package storage provides the tier backends and the reliability machinery
// that sits on top of them.
package storage

import (
	"context"
	"errors"
)

// DefaultCapacity is the nominal per-tier capacity in bytes.
const DefaultCapacity int64 = 5 << 20

// Common errors
var (
	ErrKeyNotFound      = errors.New("key not found")
	ErrCapacityExceeded = errors.New("storage capacity exceeded")
	ErrClosed           = errors.New("backend closed")

	// ErrValueCorrupt is returned by Get when the stored bytes cannot be
	// turned back into the value that was written (e.g. failed unsealing).
	ErrValueCorrupt = errors.New("stored value corrupt")
)

// Backend is a key/value store with a capacity limit.
//
// Implementations must be safe for concurrent use. Values are opaque bytes;
// the envelope format is owned by internal/core/codec.
type Backend interface {
	// Name returns a short label for logs and metrics.
	Name() string

	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	// Returns ErrCapacityExceeded if the write does not fit.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys returns every key currently held.
	Keys(ctx context.Context) ([]string, error)

	// Size returns the approximate bytes used: the sum of len(key)+len(value).
	Size(ctx context.Context) (int64, error)

	// Capacity returns the configured capacity in bytes.
	Capacity() int64

	// Clear removes every key.
	Clear(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}

// IsCapacityError reports whether err signals an exhausted backend.
func IsCapacityError(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}
