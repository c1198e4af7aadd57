// Package cache holds the availability listing cache. Listing free slots is
// the read-heavy operation; generate/book/cancel invalidate the affected
// date so readers never see a stale booking state past one mutation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"slotdesk/internal/models"
)

// AvailabilityCache caches free-slot listings per date.
type AvailabilityCache interface {
	Get(ctx context.Context, date string) ([]models.TimeSlot, bool)
	Set(ctx context.Context, date string, slots []models.TimeSlot)
	Invalidate(ctx context.Context, date string)
}

// Noop disables caching; every read goes to the database.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]models.TimeSlot, bool) { return nil, false }
func (Noop) Set(context.Context, string, []models.TimeSlot)        {}
func (Noop) Invalidate(context.Context, string)                    {}

// RedisCache stores listings as JSON values with a TTL. Redis failures are
// logged and treated as cache misses; the database stays authoritative.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func availabilityKey(date string) string {
	return fmt.Sprintf("availability:%s", date)
}

func (c *RedisCache) Get(ctx context.Context, date string) ([]models.TimeSlot, bool) {
	data, err := c.client.Get(ctx, availabilityKey(date)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Str("date", date).Msg("availability cache read failed")
		}
		return nil, false
	}

	var slots []models.TimeSlot
	if err := json.Unmarshal(data, &slots); err != nil {
		c.logger.Debug().Err(err).Str("date", date).Msg("availability cache decode failed")
		return nil, false
	}
	return slots, true
}

func (c *RedisCache) Set(ctx context.Context, date string, slots []models.TimeSlot) {
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, availabilityKey(date), data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Str("date", date).Msg("availability cache write failed")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, date string) {
	if err := c.client.Del(ctx, availabilityKey(date)).Err(); err != nil {
		c.logger.Debug().Err(err).Str("date", date).Msg("availability cache invalidation failed")
	}
}
