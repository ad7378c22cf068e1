// Package ratelimit provides distributed rate limiting using Redis. It
// implements sliding window rate limiting with an atomic Lua script so
// counting stays accurate across multiple engine instances.
package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/ports"
)

// RedisRateLimiter implements distributed rate limiting over Redis sorted
// sets, one set per client identifier.
type RedisRateLimiter struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRateLimiter creates a Redis-backed rate limiter sharing the
// engine's Redis client.
func NewRedisRateLimiter(client *redis.Client, logger *zap.Logger) ports.RateLimitService {
	return &RedisRateLimiter{
		client: client,
		logger: logger,
	}
}

// slidingWindowScript trims expired entries, counts the rest, and records
// the request if it fits, all in one atomic round trip.
const slidingWindowScript = `
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

	local current = redis.call('ZCARD', key)

	if current < limit then
		redis.call('ZADD', key, now, now)
		redis.call('EXPIRE', key, window)
		return 1
	else
		return 0
	end
`

// Allow reports whether the identifier may make another request inside the
// window. A Redis failure is returned to the caller, which decides whether
// to fail open or closed.
func (r *RedisRateLimiter) Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error) {
	tracer := otel.Tracer("ratelimit")
	ctx, span := tracer.Start(ctx, "RateLimit.Allow")

	defer span.End()

	span.SetAttributes(
		attribute.String("ratelimit.identifier", identifier),
		attribute.Int("ratelimit.limit", limit),
		attribute.String("ratelimit.window", window.String()),
	)

	key := "ratelimit:" + identifier
	now := time.Now().Unix()
	result, err := r.client.Eval(ctx, slidingWindowScript, []string{key}, limit, int(window.Seconds()), now).Result()

	if err != nil {
		span.RecordError(err)

		r.logger.Error("rate limit eval error",
			zap.String("identifier", identifier),
			zap.Error(err))

		return false, err
	}

	allowed := result.(int64) == 1
	span.SetAttributes(attribute.Bool("ratelimit.allowed", allowed))

	if !allowed {
		r.logger.Debug("rate limit exceeded",
			zap.String("identifier", identifier),
			zap.Int("limit", limit))
	}

	return allowed, nil
}

// Reset clears the rate limit history for an identifier.
func (r *RedisRateLimiter) Reset(ctx context.Context, identifier string) error {
	tracer := otel.Tracer("ratelimit")
	ctx, span := tracer.Start(ctx, "RateLimit.Reset")

	defer span.End()

	span.SetAttributes(attribute.String("ratelimit.identifier", identifier))

	key := "ratelimit:" + identifier
	err := r.client.Del(ctx, key).Err()

	if err != nil {
		span.RecordError(err)

		r.logger.Error("rate limit reset error",
			zap.String("identifier", identifier),
			zap.Error(err))

		return err
	}

	r.logger.Debug("rate limit reset", zap.String("identifier", identifier))

	return nil
}
