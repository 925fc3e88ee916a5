package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStatsCache stores admin aggregates as JSON strings.
type RedisStatsCache struct {
	client redis.Cmdable
}

func NewRedisStatsCache(client redis.Cmdable) *RedisStatsCache {
	return &RedisStatsCache{client: client}
}

func (c *RedisStatsCache) Get(ctx context.Context, key string) (*domain.AdminStats, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}

	var stats domain.AdminStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		// A corrupt entry is treated as a miss and overwritten by the next Set.
		return nil, false, nil
	}
	return &stats, true, nil
}

func (c *RedisStatsCache) Set(ctx context.Context, key string, stats *domain.AdminStats, ttl time.Duration) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
