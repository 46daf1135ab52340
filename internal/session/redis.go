package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 8

type redisStore[T any] struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis builds a store that keeps JSON encoded sessions in redis and
// relies on key expiry for the idle TTL.
func NewRedis[T any](cfg Config) (Store[T], error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "visionary:session:"
	}
	return &redisStore[T]{client: client, ttl: ttlOrDefault(cfg.TTL), prefix: prefix}, nil
}

func (s *redisStore[T]) key(id string) string {
	return s.prefix + id
}

func (s *redisStore[T]) Create(ctx context.Context, id string, value T) error {
	if id == "" {
		return fmt.Errorf("session id required")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, s.key(id), data, s.ttl).Err()
}

func (s *redisStore[T]) Get(ctx context.Context, id string) (T, error) {
	var value T
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return value, ErrNotFound
		}
		return value, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("decode session: %w", err)
	}
	return value, nil
}

// Update uses optimistic locking: the key is watched and the write is retried
// when another writer got in between.
func (s *redisStore[T]) Update(ctx context.Context, id string, fn func(*T) error) (T, error) {
	key := s.key(id)
	var result T

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}

		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if err := fn(&value); err != nil {
			return err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			result = value
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			var zero T
			return zero, err
		}
		return result, nil
	}
	var zero T
	return zero, fmt.Errorf("update session %s: too much contention", id)
}

func (s *redisStore[T]) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *redisStore[T]) Stats(ctx context.Context) (map[string]any, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		total += len(keys)
		if next == 0 {
			break
		}
		cursor = next
	}
	return map[string]any{
		"type":        DriverRedis,
		"total":       total,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *redisStore[T]) Close(context.Context) error {
	return s.client.Close()
}
