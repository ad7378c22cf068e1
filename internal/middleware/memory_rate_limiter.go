package middleware

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tripweather/weather-engine/internal/core/ports"
)

// MemoryRateLimiter is the single-instance rate limiter used when Redis is
// disabled. Each client gets a token bucket sized to the configured limit
// and refilled across the window.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	logger  *zap.Logger
}

// clientLimiter pairs a token bucket with its last use so idle clients can
// be evicted.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryRateLimiter creates an in-memory rate limiter and starts its
// eviction loop.
func NewMemoryRateLimiter(logger *zap.Logger) ports.RateLimitService {
	rl := &MemoryRateLimiter{
		clients: make(map[string]*clientLimiter),
		logger:  logger,
	}

	go rl.evictIdle()

	return rl
}

// Allow reports whether the identifier may make another request. The limit
// and window translate to a token bucket with burst = limit refilling at
// limit/window, which approximates the sliding window the Redis limiter
// implements exactly.
func (rl *MemoryRateLimiter) Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	rl.mu.Lock()

	client, exists := rl.clients[identifier]

	if !exists {
		perSecond := rate.Limit(float64(limit) / window.Seconds())
		client = &clientLimiter{limiter: rate.NewLimiter(perSecond, limit)}
		rl.clients[identifier] = client
	}

	client.lastSeen = time.Now()
	rl.mu.Unlock()

	return client.limiter.Allow(), nil
}

// Reset drops the bucket for an identifier so its next request starts with
// a full allowance.
func (rl *MemoryRateLimiter) Reset(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.clients, identifier)

	return nil
}

// evictIdle removes clients not seen for ten minutes. Runs every five
// minutes for the life of the process.
func (rl *MemoryRateLimiter) evictIdle() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)

		rl.mu.Lock()

		for identifier, client := range rl.clients {
			if client.lastSeen.Before(cutoff) {
				delete(rl.clients, identifier)
			}
		}

		rl.mu.Unlock()
	}
}
