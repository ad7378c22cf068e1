package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
	"github.com/tripweather/weather-engine/internal/core/ports"
	"github.com/tripweather/weather-engine/internal/observability"
)

type cacheHitKey struct{}

// markCacheHit flags the current resolution as served from cache. The flag
// lives in a pointer planted by the recording resolver, so marking is a
// no-op when no recorder is in the chain.
func markCacheHit(ctx context.Context) {
	if hit, ok := ctx.Value(cacheHitKey{}).(*bool); ok {
		*hit = true
	}
}

// recordTimeout bounds the background history write.
const recordTimeout = 5 * time.Second

// RecordingResolver persists a trace of every successful resolution to the
// history repository. Writes happen on a background goroutine with their
// own deadline; a slow or broken repository never delays or fails the
// request that produced the record.
type RecordingResolver struct {
	next      ports.Resolver
	history   ports.HistoryRepository
	telemetry *observability.Telemetry
	logger    *zap.Logger
}

// NewRecordingResolver wraps next with history persistence. telemetry may
// be nil.
func NewRecordingResolver(next ports.Resolver, history ports.HistoryRepository, telemetry *observability.Telemetry, logger *zap.Logger) *RecordingResolver {
	return &RecordingResolver{
		next:      next,
		history:   history,
		telemetry: telemetry,
		logger:    logger,
	}
}

// Resolve delegates to the wrapped resolver and records the outcome.
func (r *RecordingResolver) Resolve(ctx context.Context, req domain.ResolutionRequest) (*domain.WeatherRecord, error) {
	cacheHit := false
	ctx = context.WithValue(ctx, cacheHitKey{}, &cacheHit)

	start := time.Now()
	record, err := r.next.Resolve(ctx, req)
	duration := time.Since(start)

	if err != nil {
		return nil, err
	}

	if r.telemetry != nil {
		r.telemetry.RecordResolution(ctx, string(record.Source), string(record.MatchInfo.Type), duration)
	}

	trace := ports.ResolutionRecord{
		ID:         record.ID,
		Place:      record.Place,
		DateKey:    record.ForecastDate.Key(),
		Source:     record.Source,
		MatchType:  record.MatchInfo.Type,
		Confidence: record.Confidence,
		Current:    record.Current,
		High:       record.High,
		Low:        record.Low,
		IsLive:     record.IsLiveForecast,
		DurationMs: duration.Milliseconds(),
		CacheHit:   cacheHit,
		ResolvedAt: time.Now(),
	}

	go r.persist(trace)

	return record, nil
}

func (r *RecordingResolver) persist(trace ports.ResolutionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.history.RecordResolution(ctx, trace); err != nil {
		r.logger.Warn("failed to record resolution history",
			zap.String("place", trace.Place),
			zap.String("date", trace.DateKey),
			zap.Error(err))
	}
}
