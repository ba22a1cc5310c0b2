package refreshtoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rosterd/internal/auth/models"
	"rosterd/pkg/platform/sentinel"
)

// Redis key prefix for refresh token records.
const redisKeyPrefix = "rt:"

// RedisStore persists refresh token records in Redis with a key TTL equal to
// the record's remaining lifetime, so expired records evict themselves. The
// service still checks absolute expiry on lookup for parity with the other
// backends.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore constructs a Redis-backed refresh token store. The client
// lifecycle is managed externally.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, record *models.RefreshTokenRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal refresh token record: %w", err)
	}

	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		// Already expired on arrival; keep it just long enough for the
		// lazy-expiry path to observe and report it.
		ttl = time.Second
	}
	if err := s.client.Set(ctx, redisKeyPrefix+record.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*models.RefreshTokenRecord, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}

	var record models.RefreshTokenRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("decode refresh token record: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// DeleteExpiredAt is a no-op for Redis: key TTLs already evict expired
// records.
func (s *RedisStore) DeleteExpiredAt(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
