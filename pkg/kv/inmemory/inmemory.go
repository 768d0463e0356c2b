// Package inmemory provides a map-backed kv.Store for tests and ephemeral runs.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/yearbook/pkg/kv"
)

// Store implements kv.Store using an in-memory map.
type Store struct {
	// mu guards docs
	mu sync.RWMutex

	// docs maps keys to a private copy of their document
	docs map[string][]byte

	quota int64
}

// Option configures a Store.
type Option func(*Store)

// WithQuota limits the size of a single document.
func WithQuota(bytes int64) Option {
	return func(s *Store) {
		s.quota = bytes
	}
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		docs: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the document under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, kv.ErrNotFound
	}

	return append([]byte(nil), doc...), nil
}

// Set stores a copy of value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if err := kv.CheckQuota(s.quota, key, value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, key)
	return nil
}

// Len returns the number of keys held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
