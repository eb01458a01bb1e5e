package kvstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores values in Redis.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend wraps an existing Redis client. The caller owns the client.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

// Set stores value under key without expiry.
func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := b.client.Set(ctx, key, value, 0).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

// Get returns the value stored under key.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	v, err := b.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNil
		}
		return "", unavailable("get", err)
	}
	return v, nil
}

// Keys returns the keys matching pattern using KEYS, as the order Redis returns them.
func (b *RedisBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := b.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, unavailable("keys", err)
	}
	return keys, nil
}

// Ping checks the connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Ensure RedisBackend implements Backend interface.
var _ Backend = (*RedisBackend)(nil)
