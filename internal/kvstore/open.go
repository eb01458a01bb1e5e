package kvstore

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dataacquisition/das/internal/database"
	"github.com/dataacquisition/das/internal/resilience"
)

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects and configures a backend.
type Config struct {
	// Driver is one of memory, redis, postgres or sqlite.
	Driver string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// DialTimeout bounds connection attempts and individual commands for Redis.
	DialTimeout time.Duration

	SQLitePath string

	Postgres database.Config

	// CircuitBreaker wraps the backend in a BreakerBackend when true.
	CircuitBreaker bool

	// Registry, when set, tracks the breaker as "kv-<driver>".
	Registry *resilience.Registry
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	redisDB, _ := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	timeout, _ := time.ParseDuration(getEnvOrDefault("KV_TIMEOUT", "5s"))

	return Config{
		Driver:         getEnvOrDefault("KV_DRIVER", DriverRedis),
		RedisAddr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
		DialTimeout:    timeout,
		SQLitePath:     getEnvOrDefault("SQLITE_PATH", "data/acquisition.db"),
		Postgres:       database.ConfigFromEnv(),
		CircuitBreaker: os.Getenv("KV_CIRCUIT_BREAKER") != "false",
	}
}

// Open connects the configured backend. The returned close function releases
// the underlying connection and is never nil.
func Open(ctx context.Context, cfg Config) (Backend, func() error, error) {
	var (
		backend Backend
		closeFn = func() error { return nil }
	)

	switch cfg.Driver {
	case DriverMemory:
		backend = NewMemoryBackend()

	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.DialTimeout,
			WriteTimeout: cfg.DialTimeout,
		})
		rb := NewRedisBackend(client)
		if err := rb.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		backend = rb
		closeFn = client.Close

	case DriverPostgres:
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		pb := NewPostgresBackend(pool)
		if err := pb.EnsureTable(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		backend = pb
		closeFn = func() error {
			pool.Close()
			return nil
		}

	case DriverSQLite:
		sb, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		backend = sb
		closeFn = sb.Close

	default:
		return nil, nil, fmt.Errorf("unknown kv driver %q", cfg.Driver)
	}

	if cfg.CircuitBreaker {
		name := "kv-" + cfg.Driver
		breaker := NewBreakerBackend(backend, resilience.DefaultCircuitBreakerConfig(name))
		if cfg.Registry != nil {
			cfg.Registry.Register(name, breaker)
		}
		backend = breaker
	}

	instrumented, err := NewInstrumentedBackend(backend, cfg.Driver)
	if err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("instrumenting kv backend: %w", err)
	}
	return instrumented, closeFn, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
