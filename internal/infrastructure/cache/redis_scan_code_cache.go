package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const scanCodeKeyPrefix = "keg:scan:"

// RedisScanCodeCache caches scan-code to keg-id lookups in Redis so every
// instance resolves scanner traffic without hitting the database.
type RedisScanCodeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisScanCodeCache connects to Redis and returns the cache
func NewRedisScanCodeCache(cfg RedisConfig) (*RedisScanCodeCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisScanCodeCacheWithClient(client, cfg.TTL), nil
}

// NewRedisScanCodeCacheWithClient wraps an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisScanCodeCacheWithClient(client *redis.Client, ttl time.Duration) *RedisScanCodeCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisScanCodeCache{client: client, ttl: ttl}
}

// Get returns the keg id for a scan code. Cache misses and Redis failures
// both report a miss; the caller falls back to the database.
func (c *RedisScanCodeCache) Get(ctx context.Context, code string) (uuid.UUID, bool) {
	val, err := c.client.Get(ctx, scanCodeKeyPrefix+code).Result()
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Set stores the scan code mapping with the configured TTL, best effort
func (c *RedisScanCodeCache) Set(ctx context.Context, code string, id uuid.UUID) {
	c.client.Set(ctx, scanCodeKeyPrefix+code, id.String(), c.ttl)
}

// Close releases the underlying Redis connection
func (c *RedisScanCodeCache) Close() error {
	return c.client.Close()
}
