package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Store keeps one value per session id. Values handed to Update callbacks and
// returned from Get are snapshots; slices inside them must be replaced, not
// mutated in place.
type Store[T any] interface {
	Create(ctx context.Context, id string, value T) error
	Get(ctx context.Context, id string) (T, error)
	// Update applies fn atomically. An error from fn aborts without writing.
	Update(ctx context.Context, id string, fn func(*T) error) (T, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

const defaultTTL = 2 * time.Hour

type Config struct {
	Driver string
	TTL    time.Duration
	Memory *MemoryConfig
	Redis  *RedisConfig
}

type MemoryConfig struct {
	GCInterval time.Duration
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// New builds a store for the configured driver, memory when unset.
func New[T any](cfg Config) (Store[T], error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory[T](cfg), nil
	case DriverRedis:
		return NewRedis[T](cfg)
	default:
		return nil, fmt.Errorf("unsupported session driver: %s", cfg.Driver)
	}
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultTTL
	}
	return ttl
}
