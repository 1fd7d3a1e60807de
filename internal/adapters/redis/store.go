package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"review_proxy/internal/adapters/observability"
)

// Store is a domain.DocumentStore on plain Redis strings, no expiry.
type Store struct {
	c      *redis.Client
	prefix string
}

func NewStore(c *redis.Client, prefix string) *Store {
	return &Store{c: c, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := s.c.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveStore("redis", "get", "absent")
		return false, nil
	}
	if err != nil {
		observability.ObserveStore("redis", "get", "error")
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	observability.ObserveStore("redis", "get", "ok")
	return true, nil
}

func (s *Store) Put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.c.Set(ctx, s.prefix+key, b, 0).Err(); err != nil {
		observability.ObserveStore("redis", "put", "error")
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	observability.ObserveStore("redis", "put", "ok")
	return nil
}
