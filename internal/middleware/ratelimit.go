package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/ports"
)

// RateLimitMiddleware enforces per-client request limits in front of the
// resolution endpoints. The backing store is pluggable: Redis when the
// engine runs clustered, in-memory otherwise. A limiter failure fails
// open; shedding traffic because Redis blinked would hurt more than a
// brief overage.
type RateLimitMiddleware struct {
	limiter ports.RateLimitService
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates the middleware with the given policy.
func NewRateLimitMiddleware(limiter ports.RateLimitService, limit int, window time.Duration, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		logger:  logger,
	}
}

// Middleware wraps a handler with the rate limit check, keyed by client IP.
func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := GetClientIP(r)

		allowed, err := m.limiter.Allow(r.Context(), clientIP, m.limit, m.window)

		if err != nil {
			m.logger.Warn("rate limiter unavailable, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err))

			next.ServeHTTP(w, r)

			return
		}

		if !allowed {
			m.logger.Debug("rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.Int("limit", m.limit))

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", m.window.String())
			w.WriteHeader(http.StatusTooManyRequests)

			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "RATE_LIMIT_EXCEEDED",
				"message": "Too many requests, slow down",
			})

			return
		}

		next.ServeHTTP(w, r)
	})
}
