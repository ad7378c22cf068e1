// Package ports defines the interfaces between the resolution engine and
// its collaborators: providers, geocoding, key storage, caching, rate
// limiting, and history persistence.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tripweather/weather-engine/internal/core/domain"
)

// Resolver is the engine's entry point. It never fails on expected failure
// modes (timeout, missing key, out-of-range date, provider error); those
// all resolve to a fallback record. It returns an error only for programmer
// mistakes (invalid date or place) and for superseded or caller-cancelled
// requests (context cancellation).
type Resolver interface {
	Resolve(ctx context.Context, req domain.ResolutionRequest) (*domain.WeatherRecord, error)
}

// ForecastProvider fetches the provider's forward time series for a
// location. Entries come back in provider order, not necessarily
// daily-aligned.
type ForecastProvider interface {
	FetchForecast(ctx context.Context, coords domain.Coordinates) ([]domain.ForecastEntry, error)
}

// Geocoder translates a place name into coordinates. When country is
// non-empty and the provider returns several candidates, implementations
// prefer a result tagged with that country.
type Geocoder interface {
	Locate(ctx context.Context, place, country string) (domain.Coordinates, error)
}

// KeySource answers "is a usable provider key configured". The engine never
// owns key storage; it only asks.
type KeySource interface {
	Available() bool
	Key() string
}

// CacheService provides record caching operations.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// RateLimitService limits request rates per client identifier.
type RateLimitService interface {
	Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, identifier string) error
}

// ResolutionRecord is the persisted trace of one completed resolution.
type ResolutionRecord struct {
	ID         uuid.UUID
	Place      string
	DateKey    string
	Source     domain.Source
	MatchType  domain.MatchType
	Confidence domain.Confidence
	Current    float64
	High       float64
	Low        float64
	IsLive     bool
	DurationMs int64
	CacheHit   bool
	ResolvedAt time.Time
}

// HistoryRepository persists resolution traces and aggregates them for the
// stats endpoint. Recording is best-effort; failures never affect the
// resolution itself.
type HistoryRepository interface {
	RecordResolution(ctx context.Context, rec ResolutionRecord) error
	ResolutionStats(ctx context.Context, since time.Time) (map[string]interface{}, error)
}
