package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
	"github.com/tripweather/weather-engine/internal/core/events"
	"github.com/tripweather/weather-engine/internal/core/ports"
)

// DefaultFetchTimeout bounds the live-fetch pipeline per resolution.
const DefaultFetchTimeout = 6 * time.Second

// CoordinatorConfig carries the two policy knobs of the coordinator.
type CoordinatorConfig struct {
	FetchTimeout time.Duration
	HorizonDays  int
}

// inflightEntry tracks one outstanding resolution per key.
type inflightEntry struct {
	seq    uint64
	cancel context.CancelFunc
}

// FetchCoordinator owns the request lifecycle of a resolution: single-flight
// per (place, date) key with last-caller-wins cancellation, a timeout race
// against the live-fetch pipeline, and the hand-off to the fallback
// synthesizer. Every expected failure mode terminates in a fallback record;
// only programmer errors and cancellation surface to the caller.
type FetchCoordinator struct {
	geocoder    ports.Geocoder
	provider    ports.ForecastProvider
	keys        ports.KeySource
	matcher     *ForecastMatcher
	classifier  *SourceClassifier
	synthesizer *FallbackSynthesizer
	logger      *zap.Logger
	bus         *events.Bus
	timeout     time.Duration
	horizonDays int
	now         func() time.Time

	// mu guards the per-key registry of in-flight requests; it is the only
	// shared mutable state in the engine.
	mu       sync.Mutex
	seq      uint64
	inflight map[string]*inflightEntry
}

// NewFetchCoordinator wires a coordinator from its collaborators. Zero
// config values fall back to the engine defaults.
func NewFetchCoordinator(
	geocoder ports.Geocoder,
	provider ports.ForecastProvider,
	keys ports.KeySource,
	matcher *ForecastMatcher,
	classifier *SourceClassifier,
	synthesizer *FallbackSynthesizer,
	cfg CoordinatorConfig,
	logger *zap.Logger,
	bus *events.Bus,
) *FetchCoordinator {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}

	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = domain.DefaultForecastHorizonDays
	}

	return &FetchCoordinator{
		geocoder:    geocoder,
		provider:    provider,
		keys:        keys,
		matcher:     matcher,
		classifier:  classifier,
		synthesizer: synthesizer,
		logger:      logger,
		bus:         bus,
		timeout:     cfg.FetchTimeout,
		horizonDays: cfg.HorizonDays,
		now:         time.Now,
		inflight:    make(map[string]*inflightEntry),
	}
}

// WithClock overrides the coordinator's wall clock for tests.
func (c *FetchCoordinator) WithClock(now func() time.Time) *FetchCoordinator {
	c.now = now
	return c
}

// resolutionKey builds the registry key for a request.
func resolutionKey(place string, day domain.CalendarDay) string {
	return strings.ToLower(strings.TrimSpace(place)) + "|" + day.Key()
}

// Resolve resolves one weather record for the request. A second Resolve for
// the same (place, date) key cancels an in-flight first one; the superseded
// call returns context.Canceled and never delivers a record.
func (c *FetchCoordinator) Resolve(ctx context.Context, req domain.ResolutionRequest) (*domain.WeatherRecord, error) {
	if strings.TrimSpace(req.Place) == "" {
		return nil, domain.NewInvalidPlaceError(req.Place)
	}

	day, err := domain.Normalize(req.TargetDate)

	if err != nil {
		return nil, err
	}

	key := resolutionKey(req.Place, day)
	fctx, cancel := context.WithCancel(ctx)
	seq := c.register(key, req.Place, day, cancel)

	defer c.release(key, seq, cancel)

	started := c.now()
	record := c.resolve(fctx, req, day)

	// A superseded or caller-cancelled request must never call back with a
	// record, stale or otherwise.
	if fctx.Err() != nil {
		c.bus.Publish(events.Event{
			Type:    events.TypeRequestSuperseded,
			Place:   req.Place,
			DateKey: day.Key(),
		})

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, context.Canceled
	}

	c.bus.Publish(events.Event{
		Type:    events.TypeResolutionCompleted,
		Place:   req.Place,
		DateKey: day.Key(),
		Fields: map[string]interface{}{
			"source":      string(record.Source),
			"match_type":  string(record.MatchInfo.Type),
			"confidence":  string(record.Confidence),
			"duration_ms": time.Since(started).Milliseconds(),
		},
	})

	return record, nil
}

// resolve runs the live pipeline when it is worth trying and falls back to
// synthesis otherwise. It always produces a record unless the context died.
func (c *FetchCoordinator) resolve(ctx context.Context, req domain.ResolutionRequest, day domain.CalendarDay) *domain.WeatherRecord {
	keyAvailable := req.APIKeyAvailable && (c.keys == nil || c.keys.Available())
	inRange := domain.WithinForecastRange(day, c.now(), c.horizonDays)

	if !keyAvailable || !inRange {
		c.logger.Debug("skipping live path",
			zap.String("place", req.Place),
			zap.String("date_key", day.Key()),
			zap.Bool("key_available", keyAvailable),
			zap.Bool("in_range", inRange))

		return c.synthesizer.Synthesize(req.Place, day)
	}

	record, err := c.resolveLive(ctx, req, day)

	if err == nil {
		return record
	}

	if ctx.Err() != nil {
		// Cancellation is handled by the caller; do not synthesize.
		return nil
	}

	c.logger.Warn("live fetch failed, using fallback",
		zap.String("place", req.Place),
		zap.String("date_key", day.Key()),
		zap.String("code", domain.ErrorCode(err)),
		zap.Error(err))

	return c.synthesizer.Synthesize(req.Place, day)
}

// resolveLive races the geocode -> fetch -> match -> extract -> classify
// pipeline against the fetch timeout. The timeout context is threaded into
// both network calls so cancellation reaches the wire.
func (c *FetchCoordinator) resolveLive(ctx context.Context, req domain.ResolutionRequest, day domain.CalendarDay) (*domain.WeatherRecord, error) {
	tctx, tcancel := context.WithTimeout(ctx, c.timeout)
	defer tcancel()

	coords, err := c.geocoder.Locate(tctx, req.Place, req.Country)

	if err != nil {
		return nil, c.classifyPipelineError(ctx, err, domain.CodeGeocodingUnavailable)
	}

	entries, err := c.provider.FetchForecast(tctx, coords)

	if err != nil {
		return nil, c.classifyPipelineError(ctx, err, domain.CodeProviderUnavailable)
	}

	match := c.matcher.Match(entries, day)
	classification := c.classifier.Classify(day, match)

	if !classification.IsLiveForecast {
		return nil, &domain.ResolutionError{
			Code:    domain.CodeNoUsableMatch,
			Message: classification.Explanation,
		}
	}

	reading, err := domain.ExtractTemperature(match.Entry)

	if err != nil {
		return nil, &domain.ResolutionError{
			Code:    domain.CodeNoUsableMatch,
			Message: "matched entry has no displayable temperature",
			Cause:   err,
		}
	}

	entry := match.Entry

	record := &domain.WeatherRecord{
		ID:                  uuid.New(),
		Place:               req.Place,
		ForecastDate:        day,
		Current:             reading.Current,
		High:                reading.High,
		Low:                 reading.Low,
		Description:         entry.Description,
		Icon:                entry.Icon,
		Humidity:            intOrZero(entry.Humidity),
		WindSpeed:           floatOrZero(entry.WindSpeed),
		PrecipitationChance: intOrZero(entry.PrecipitationChance),
		IsLiveForecast:      true,
		Source:              domain.SourceLiveForecast,
		Confidence:          combineConfidence(classification.Confidence, match.Confidence),
		DisplayLabel:        classification.DisplayLabel,
		MatchInfo:           match,
	}

	return record, nil
}

// classifyPipelineError maps a raw pipeline failure to the taxonomy. A
// deadline hit while the resolution itself is still alive is the fetch
// timeout; everything else keeps the stage's code.
func (c *FetchCoordinator) classifyPipelineError(ctx context.Context, err error, stageCode string) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return &domain.ResolutionError{
			Code:    domain.CodeTimeout,
			Message: "live fetch timed out",
			Cause:   err,
		}
	}

	if domain.ErrorCode(err) != "" {
		return err
	}

	return &domain.ResolutionError{
		Code:    stageCode,
		Message: "live fetch stage failed",
		Cause:   err,
	}
}

// register cancels any in-flight request for the key and installs this one.
func (c *FetchCoordinator) register(key, place string, day domain.CalendarDay, cancel context.CancelFunc) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.inflight[key]; ok {
		prev.cancel()

		c.logger.Debug("superseding in-flight resolution",
			zap.String("place", place),
			zap.String("date_key", day.Key()))
	}

	c.seq++
	c.inflight[key] = &inflightEntry{seq: c.seq, cancel: cancel}

	return c.seq
}

// release removes the registry entry if it still belongs to this request.
func (c *FetchCoordinator) release(key string, seq uint64, cancel context.CancelFunc) {
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.inflight[key]; ok && cur.seq == seq {
		delete(c.inflight, key)
	}
}

// combineConfidence returns the weaker of two confidence signals.
func combineConfidence(a, b domain.Confidence) domain.Confidence {
	rank := map[domain.Confidence]int{
		domain.ConfidenceLow:    0,
		domain.ConfidenceMedium: 1,
		domain.ConfidenceHigh:   2,
	}

	if rank[b] < rank[a] {
		return b
	}

	return a
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}

	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}

	return *v
}
