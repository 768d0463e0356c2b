// Package kv is the local persistence store: a durable, synchronous,
// key-indexed store of serialized documents on the client device. It is the
// leaf the local storage backing is built on.
package kv

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the key holds no document.
	ErrNotFound = errors.New("key not found")

	// ErrQuotaExceeded is returned by Set when a document is larger than the
	// store's quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store holds one opaque document per key.
type Store interface {
	// Get returns the document stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the document stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases the store's resources.
	Close() error
}

// CheckQuota returns ErrQuotaExceeded when quota is positive and value is
// larger than it.
func CheckQuota(quota int64, key string, value []byte) error {
	if quota > 0 && int64(len(value)) > quota {
		return fmt.Errorf("%w: %s is %d bytes, quota is %d", ErrQuotaExceeded, key, len(value), quota)
	}
	return nil
}
