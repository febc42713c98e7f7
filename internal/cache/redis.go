package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGetSetter abstracts the minimal surface we need from a Redis client.
// redis.Cmdable (and so *redis.Client) satisfies it, and tests can substitute
// a fake without a server.
type RedisGetSetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Redis is a Store backed by a Redis instance, for deployments that share a
// result cache across service replicas.
type Redis struct {
	client RedisGetSetter
}

// NewRedis returns a Store backed by the given client.
//
// Precondition: client must be non-nil.
func NewRedis(client RedisGetSetter) *Redis {
	return &Redis{client: client}
}

// Get returns the cached value for key. A missing key is a miss, not an
// error.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key for ttl.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}
