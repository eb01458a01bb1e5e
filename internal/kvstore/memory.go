package kvstore

import (
	"context"
	"sync"
)

// MemoryBackend is an in-memory implementation of Backend.
// This is intended for testing and local development.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: make(map[string]string),
	}
}

// Set stores value under key.
func (b *MemoryBackend) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[key] = value
	return nil
}

// Get returns the value stored under key.
func (b *MemoryBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.values[key]
	if !ok {
		return "", ErrNil
	}
	return v, nil
}

// Keys returns the keys matching pattern in map iteration order.
func (b *MemoryBackend) Keys(_ context.Context, pattern string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0)
	for k := range b.values {
		if MatchGlob(pattern, k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Ping always succeeds.
func (b *MemoryBackend) Ping(_ context.Context) error {
	return nil
}

// Ensure MemoryBackend implements Backend interface.
var _ Backend = (*MemoryBackend)(nil)
