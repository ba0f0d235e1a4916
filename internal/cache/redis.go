// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/morahq/mora/internal/metrics"
	"github.com/morahq/mora/internal/session"
)

// RedisCache is a Redis-backed SnapshotCache, for sharing session state
// across client processes.
type RedisCache struct {
	client *redis.Client
	logger zerolog.Logger
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to Redis and verifies the connection before returning.
func NewRedis(config RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to redis snapshot cache")

	return &RedisCache{client: client, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, sessionID string) (session.Snapshot, bool) {
	key := Key(sessionID)
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.IncCacheRequest(false)
		return session.Snapshot{}, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		metrics.IncCacheRequest(false)
		return session.Snapshot{}, false
	}

	var snap session.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cached snapshot is not valid JSON")
		metrics.IncCacheRequest(false)
		return session.Snapshot{}, false
	}

	metrics.IncCacheRequest(true)
	return snap, true
}

func (c *RedisCache) Put(ctx context.Context, snap session.Snapshot, ttl time.Duration) {
	key := Key(snap.ID)
	data, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("snapshot marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

func (c *RedisCache) Delete(ctx context.Context, sessionID string) {
	key := Key(sessionID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis delete failed")
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// HealthCheck reports whether Redis answers pings.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
