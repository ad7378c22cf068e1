package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
	"github.com/tripweather/weather-engine/internal/core/ports"
	"github.com/tripweather/weather-engine/internal/observability"
)

// CachedResolver caches resolved records in front of the engine. Live
// records and synthesized fallbacks get separate TTLs: a fallback for a
// given place and day is deterministic, so it can live much longer than a
// live forecast that goes stale as the provider refreshes.
//
// Cache failures are invisible to callers; a broken cache degrades to
// resolving every request.
type CachedResolver struct {
	next        ports.Resolver
	cache       ports.CacheService
	telemetry   *observability.Telemetry
	liveTTL     time.Duration
	fallbackTTL time.Duration
	logger      *zap.Logger
}

// NewCachedResolver wraps next with a record cache. telemetry may be nil.
func NewCachedResolver(
	next ports.Resolver,
	cache ports.CacheService,
	telemetry *observability.Telemetry,
	liveTTL, fallbackTTL time.Duration,
	logger *zap.Logger,
) *CachedResolver {
	return &CachedResolver{
		next:        next,
		cache:       cache,
		telemetry:   telemetry,
		liveTTL:     liveTTL,
		fallbackTTL: fallbackTTL,
		logger:      logger,
	}
}

// cacheKey builds the record cache key for a request. Place is folded to
// lower case so "Paris" and "paris" share an entry.
func cacheKey(place string, day domain.CalendarDay) string {
	return "record:" + strings.ToLower(strings.TrimSpace(place)) + ":" + day.Key()
}

// Resolve serves from the cache when it can, delegating to the wrapped
// resolver otherwise. Only successful resolutions are cached; errors are
// never memoized.
func (c *CachedResolver) Resolve(ctx context.Context, req domain.ResolutionRequest) (*domain.WeatherRecord, error) {
	day, err := domain.Normalize(req.TargetDate)

	if err != nil {
		return c.next.Resolve(ctx, req)
	}

	key := cacheKey(req.Place, day)

	if data, err := c.cache.Get(ctx, key); err == nil {
		var record domain.WeatherRecord

		if err := json.Unmarshal(data, &record); err == nil {
			markCacheHit(ctx)

			if c.telemetry != nil {
				c.telemetry.RecordCacheHit(ctx, key)
			}

			return &record, nil
		}

		c.logger.Warn("discarding undecodable cached record",
			zap.String("key", key),
			zap.Error(err))
	} else if c.telemetry != nil {
		c.telemetry.RecordCacheMiss(ctx, key)
	}

	record, err := c.next.Resolve(ctx, req)

	if err != nil {
		return nil, err
	}

	c.store(ctx, key, record)

	return record, nil
}

func (c *CachedResolver) store(ctx context.Context, key string, record *domain.WeatherRecord) {
	data, err := json.Marshal(record)

	if err != nil {
		c.logger.Warn("failed to encode record for cache", zap.Error(err))
		return
	}

	ttl := c.fallbackTTL

	if record.Source == domain.SourceLiveForecast {
		ttl = c.liveTTL
	}

	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("failed to cache record",
			zap.String("key", key),
			zap.Error(err))
	}
}
