package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/dataacquisition/das/internal/resilience"
)

// BreakerBackend fails fast with ErrUnavailable while the wrapped backend keeps failing.
// It never retries; only ErrUnavailable counts as a failure.
type BreakerBackend struct {
	next Backend
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerBackend wraps next with a circuit breaker.
func NewBreakerBackend(next Backend, cfg resilience.CircuitBreakerConfig) *BreakerBackend {
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || !errors.Is(err, ErrUnavailable)
	}
	return &BreakerBackend{
		next: next,
		cb:   resilience.NewCircuitBreaker[any](cfg),
	}
}

func (b *BreakerBackend) execute(op string, fn func() (any, error)) (any, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	return v, err
}

// Set stores value under key.
func (b *BreakerBackend) Set(ctx context.Context, key, value string) error {
	_, err := b.execute("set", func() (any, error) {
		return nil, b.next.Set(ctx, key, value)
	})
	return err
}

// Get returns the value stored under key.
func (b *BreakerBackend) Get(ctx context.Context, key string) (string, error) {
	v, err := b.execute("get", func() (any, error) {
		return b.next.Get(ctx, key)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Keys returns the keys matching pattern.
func (b *BreakerBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	v, err := b.execute("keys", func() (any, error) {
		return b.next.Keys(ctx, pattern)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Ping checks the wrapped backend; it is not guarded so readiness reflects the real state.
func (b *BreakerBackend) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

// Unwrap returns the guarded backend.
func (b *BreakerBackend) Unwrap() Backend { return b.next }

// CircuitBreakerState returns the current circuit state.
func (b *BreakerBackend) CircuitBreakerState() gobreaker.State {
	return b.cb.State()
}

// CircuitBreakerCounts returns the circuit breaker statistics.
func (b *BreakerBackend) CircuitBreakerCounts() gobreaker.Counts {
	return b.cb.Counts()
}

// Ensure BreakerBackend implements Backend interface.
var (
	_ Backend            = (*BreakerBackend)(nil)
	_ resilience.Breaker = (*BreakerBackend)(nil)
)
