package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/ports"
)

// RedisCache shares resolved records across engine instances. Identical
// resolution keys hit the same entry no matter which instance answered
// first, which keeps the fallback synthesizer's determinism observable
// cluster-wide.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// Config holds Redis connection and performance settings.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisCache creates a Redis-backed record cache. It pings the server
// once so a dead Redis is caught at startup, not on the first request.
func NewRedisCache(cfg Config, logger *zap.Logger) (ports.CacheService, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: rdb,
		logger: logger,
	}, nil
}

// Get retrieves a cached record by resolution key. Returns ErrCacheMiss
// when the key is absent, any other error is a Redis failure.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "Cache.Get")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))
	start := time.Now()
	result, err := r.client.Get(ctx, key).Bytes()
	duration := time.Since(start)

	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))

		r.logger.Debug("cache miss",
			zap.String("key", key),
			zap.Duration("duration", duration))

		return nil, ErrCacheMiss
	}

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache get error",
			zap.String("key", key),
			zap.Error(err))

		return nil, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))

	r.logger.Debug("cache hit",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return result, nil
}

// Set stores an encoded record with its TTL.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "Cache.Set")

	defer span.End()

	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Int("cache.value_size", len(value)),
		attribute.String("cache.ttl", ttl.String()),
	)

	start := time.Now()
	err := r.client.Set(ctx, key, value, ttl).Err()
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache set error",
			zap.String("key", key),
			zap.Error(err))

		return err
	}

	r.logger.Debug("cache set",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return nil
}

// Delete removes one cached record.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "Cache.Delete")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))
	start := time.Now()
	err := r.client.Del(ctx, key).Err()
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache delete error",
			zap.String("key", key),
			zap.Error(err))

		return err
	}

	r.logger.Debug("cache delete",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return nil
}

// Clear flushes the whole Redis database backing the cache.
func (r *RedisCache) Clear(ctx context.Context) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "Cache.Clear")

	defer span.End()

	start := time.Now()
	err := r.client.FlushDB(ctx).Err()
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		r.logger.Error("cache clear error", zap.Error(err))

		return err
	}

	r.logger.Info("cache cleared", zap.Duration("duration", duration))

	return nil
}

// Close closes the Redis client connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// ErrCacheMiss indicates a resolution key was not found in the cache.
var ErrCacheMiss = redis.Nil
