package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rosterd/pkg/platform/sentinel"
	"rosterd/pkg/requestcontext"
)

// MemoryCache is the in-process single-slot cache. Time comes from the
// request context so tests can pin the clock.
type MemoryCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	members   []Member
	expiresAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl}
}

func (c *MemoryCache) Load(ctx context.Context) ([]Member, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.members == nil || requestcontext.Now(ctx).After(c.expiresAt) {
		return nil, fmt.Errorf("directory cache empty or stale: %w", sentinel.ErrNotFound)
	}
	return c.members, nil
}

func (c *MemoryCache) Store(ctx context.Context, members []Member) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members = members
	c.expiresAt = requestcontext.Now(ctx).Add(c.ttl)
	return nil
}
