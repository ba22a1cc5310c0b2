package directory

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"rosterd/internal/platform/metrics"
	dErrors "rosterd/pkg/domain-errors"
	"rosterd/pkg/requestcontext"
)

// Service serves the cached directory, refreshing it from the upstream on
// cache misses. Concurrent misses collapse into one upstream call.
type Service struct {
	fetcher Fetcher
	cache   Cache
	group   singleflight.Group
	logger  *slog.Logger
}

func NewService(fetcher Fetcher, cache Cache, logger *slog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
	}
}

// Members returns the directory, from cache when fresh. An upstream failure
// surfaces as CodeUnavailable with the upstream message attached for
// operator diagnosis; no stale data is served in its place.
func (s *Service) Members(ctx context.Context) ([]Member, error) {
	if members, err := s.cache.Load(ctx); err == nil {
		metrics.IncDirectoryCacheHit()
		return members, nil
	}
	metrics.IncDirectoryCacheMiss()

	result, err, _ := s.group.Do("directory", func() (interface{}, error) {
		members, err := s.fetcher.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Store(ctx, members); err != nil {
			// Serving fresh data matters more than caching it.
			s.logger.WarnContext(ctx, "failed to store directory cache",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return members, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "directory upstream unavailable")
	}

	return result.([]Member), nil
}
