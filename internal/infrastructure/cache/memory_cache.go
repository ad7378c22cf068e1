// Package cache provides caching for resolved weather records. It includes
// both in-memory and Redis-based implementations with OpenTelemetry
// instrumentation, keyed by (place, date) resolution keys.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/ports"
)

// MemoryCache is the single-instance record cache used when Redis is
// disabled or unreachable. Entries carry their own TTL so live records can
// expire faster than synthesized ones.
type MemoryCache struct {
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewMemoryCache creates an in-memory record cache. cleanupInterval
// controls how often expired records are swept out.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration, logger *zap.Logger) ports.CacheService {
	return &MemoryCache{
		cache:  gocache.New(defaultTTL, cleanupInterval),
		logger: logger,
	}
}

// Get retrieves a cached record by resolution key. Returns ErrCacheMiss
// when the key is absent or expired.
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Get")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	if value, found := m.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		m.logger.Debug("memory cache hit", zap.String("key", key))

		return value.([]byte), nil
	}

	span.SetAttributes(attribute.Bool("cache.hit", false))
	m.logger.Debug("memory cache miss", zap.String("key", key))

	return nil, ErrCacheMiss
}

// Set stores an encoded record under the resolution key with the given TTL.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Set")

	defer span.End()

	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Int("cache.value_size", len(value)),
		attribute.String("cache.ttl", ttl.String()),
	)

	m.cache.Set(key, value, ttl)
	m.logger.Debug("memory cache set", zap.String("key", key))

	return nil
}

// Delete removes one cached record.
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Delete")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))
	m.cache.Delete(key)
	m.logger.Debug("memory cache delete", zap.String("key", key))

	return nil
}

// Clear drops every cached record.
func (m *MemoryCache) Clear(ctx context.Context) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Clear")

	defer span.End()

	m.cache.Flush()
	m.logger.Info("memory cache cleared")

	return nil
}
