package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rosterd/pkg/platform/sentinel"
)

const redisCacheKey = "directory:cache"

// RedisCache shares the directory slot across instances when Redis is
// configured; the key TTL does the staleness bookkeeping.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Load(ctx context.Context) ([]Member, error) {
	payload, err := c.client.Get(ctx, redisCacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("directory cache empty: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load directory cache: %w", err)
	}

	var members []Member
	if err := json.Unmarshal([]byte(payload), &members); err != nil {
		return nil, fmt.Errorf("decode directory cache: %w", err)
	}
	return members, nil
}

func (c *RedisCache) Store(ctx context.Context, members []Member) error {
	payload, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("marshal directory cache: %w", err)
	}
	if err := c.client.Set(ctx, redisCacheKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("store directory cache: %w", err)
	}
	return nil
}
