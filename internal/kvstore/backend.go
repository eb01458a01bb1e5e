// Package kvstore provides the key-value backends that hold acquisition requests.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// Backend errors.
var (
	// ErrNil is returned by Get when the key does not exist.
	ErrNil = errors.New("kvstore: key does not exist")

	// ErrUnavailable marks failures to reach the backend (network, timeout, open circuit).
	ErrUnavailable = errors.New("kvstore: backend unavailable")
)

// Backend is the minimal key-value contract used by the acquisition store.
//
// Keys uses Redis glob semantics: '*' matches any sequence, '?' a single
// character, '[...]' a character class and '\' escapes the next character.
// The order of the returned keys is backend-defined.
type Backend interface {
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Get returns the value stored under key or ErrNil.
	Get(ctx context.Context, key string) (string, error)

	// Keys returns every key matching the glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// unavailable wraps a transport-level failure with ErrUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
