package kv

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore wraps github.com/redis/go-redis/v9, grounded on the teacher's
// CacheService (internal/services/cache_service.go) Set/Get/Delete
// marshal-through-bytes pattern, generalized from expiring cache entries to
// durable KVStore entries (no TTL — retention is the persistence adapter's
// job, not Redis's).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(key string) ([]byte, error) {
	ctx := context.Background()
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: redis get: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Set(key string, value []byte) error {
	ctx := context.Background()
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("kv: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(key string) error {
	ctx := context.Background()
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv: redis delete: %w", err)
	}
	return nil
}

func (s *RedisStore) List(prefix string) ([]string, error) {
	ctx := context.Background()
	keys, err := s.client.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("kv: redis keys: %w", err)
	}
	return keys, nil
}
