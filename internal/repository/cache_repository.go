package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
)

// CacheRepository wraps Redis access for short-lived lookup caches, primarily
// the per-user accessible warehouse sets.
type CacheRepository struct {
	client *redis.Client
}

// NewCacheRepository creates a new instance of CacheRepository.
func NewCacheRepository(client *redis.Client) *CacheRepository {
	return &CacheRepository{client: client}
}

// Get returns the raw value stored under key. Returns ErrCacheMiss when the
// key does not exist.
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return val, nil
}

// Set stores a value under key with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes keys from the cache.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// DeleteByPattern removes all keys matching a glob pattern using SCAN to
// avoid blocking the server on large keyspaces.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete by pattern: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (r *CacheRepository) Close() error {
	return r.client.Close()
}
