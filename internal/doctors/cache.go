package doctors

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "doctor-id:"

// RedisCache stores userID → doctorID mappings.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns ok=false on a miss.
func (c *RedisCache) Get(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+userID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

// Set stores the mapping with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, userID, doctorID uuid.UUID) error {
	return c.client.Set(ctx, cacheKeyPrefix+userID.String(), doctorID.String(), c.ttl).Err()
}
