package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
	"github.com/tripweather/weather-engine/internal/core/events"
)

type fakeGeocoder struct {
	mu     sync.Mutex
	calls  int
	coords domain.Coordinates
	err    error
}

func (g *fakeGeocoder) Locate(ctx context.Context, place, country string) (domain.Coordinates, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.err != nil {
		return domain.Coordinates{}, g.err
	}

	return g.coords, nil
}

func (g *fakeGeocoder) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.calls
}

type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	entries []domain.ForecastEntry
	err     error

	// blockFirst makes the first call wait on the context so a test can
	// supersede it while it is in flight.
	blockFirst bool
	started    chan struct{}
}

func (p *fakeProvider) FetchForecast(ctx context.Context, coords domain.Coordinates) ([]domain.ForecastEntry, error) {
	p.mu.Lock()
	p.calls++
	first := p.calls == 1
	p.mu.Unlock()

	if first && p.blockFirst {
		if p.started != nil {
			close(p.started)
		}

		<-ctx.Done()

		return nil, ctx.Err()
	}

	if p.err != nil {
		return nil, p.err
	}

	return p.entries, nil
}

type fakeKeys struct {
	available bool
}

func (k *fakeKeys) Available() bool { return k.available }

func (k *fakeKeys) Key() string {
	if k.available {
		return "test-key"
	}

	return ""
}

// liveEntry builds a forward-tagged entry with everything a live record needs.
func liveEntry(t *testing.T, dateKey string, hour int) domain.ForecastEntry {
	t.Helper()

	entry := entryOn(t, dateKey, hour)
	entry.Temperature = nil
	entry.High = f(24)
	entry.Low = f(15)
	entry.Description = "Partly cloudy"
	entry.Icon = "03d"
	entry.Humidity = i(60)
	entry.WindSpeed = f(3.5)
	entry.PrecipitationChance = i(20)
	entry.ForecastTagged = true

	return entry
}

func newTestCoordinator(geocoder *fakeGeocoder, provider *fakeProvider, cfg CoordinatorConfig, bus *events.Bus) *FetchCoordinator {
	logger := zap.NewNop()
	clock := func() time.Time { return fixedNow }

	matcher := NewForecastMatcher(logger, bus)
	classifier := NewSourceClassifier(cfg.HorizonDays, logger, bus).WithClock(clock)
	synthesizer := NewFallbackSynthesizer(logger, bus)

	return NewFetchCoordinator(geocoder, provider, &fakeKeys{available: true},
		matcher, classifier, synthesizer, cfg, logger, bus).WithClock(clock)
}

func liveRequest(place, dateKey string) domain.ResolutionRequest {
	day, _ := domain.ParseDateKey(dateKey)

	return domain.ResolutionRequest{
		Place:           place,
		TargetDate:      day.Time(),
		APIKeyAvailable: true,
	}
}

func TestResolve_LiveSuccess(t *testing.T) {
	geocoder := &fakeGeocoder{coords: domain.Coordinates{Latitude: 48.85, Longitude: 2.35}}
	provider := &fakeProvider{entries: []domain.ForecastEntry{liveEntry(t, "2024-07-12", 12)}}
	coordinator := newTestCoordinator(geocoder, provider, CoordinatorConfig{}, nil)

	record, err := coordinator.Resolve(context.Background(), liveRequest("Paris", "2024-07-12"))

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.IsLiveForecast)
	assert.Equal(t, domain.SourceLiveForecast, record.Source)
	assert.True(t, record.Consistent())
	assert.Equal(t, domain.MatchExact, record.MatchInfo.Type)
	assert.InDelta(t, 20, record.Current, 0.5)
	assert.Equal(t, 24.0, record.High)
	assert.Equal(t, 15.0, record.Low)
	assert.Equal(t, 1, geocoder.callCount())
}

// TestResolve_SecondCallSupersedesFirst pins the single-flight contract:
// two back-to-back resolutions for the same key, the first is cancelled
// and only the second delivers a record.
func TestResolve_SecondCallSupersedesFirst(t *testing.T) {
	geocoder := &fakeGeocoder{}
	provider := &fakeProvider{
		entries:    []domain.ForecastEntry{liveEntry(t, "2024-07-12", 12)},
		blockFirst: true,
		started:    make(chan struct{}),
	}
	coordinator := newTestCoordinator(geocoder, provider, CoordinatorConfig{}, nil)

	type outcome struct {
		record *domain.WeatherRecord
		err    error
	}

	firstDone := make(chan outcome, 1)

	go func() {
		record, err := coordinator.Resolve(context.Background(), liveRequest("Paris", "2024-07-12"))
		firstDone <- outcome{record: record, err: err}
	}()

	// Wait until the first resolution is blocked inside the provider before
	// firing the superseding call.
	select {
	case <-provider.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first resolution never reached the provider")
	}

	second, err := coordinator.Resolve(context.Background(), liveRequest("Paris", "2024-07-12"))

	require.NoError(t, err)
	require.NotNil(t, second)
	assert.True(t, second.IsLiveForecast)

	select {
	case first := <-firstDone:
		assert.Nil(t, first.record)
		assert.ErrorIs(t, first.err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded resolution never returned")
	}
}

func TestResolve_SupersededPublishesEvent(t *testing.T) {
	bus := events.NewBus()

	var mu sync.Mutex
	var superseded int

	bus.Subscribe(func(evt events.Event) {
		if evt.Type == events.TypeRequestSuperseded {
			mu.Lock()
			superseded++
			mu.Unlock()
		}
	})

	provider := &fakeProvider{
		entries:    []domain.ForecastEntry{liveEntry(t, "2024-07-12", 12)},
		blockFirst: true,
		started:    make(chan struct{}),
	}
	coordinator := newTestCoordinator(&fakeGeocoder{}, provider, CoordinatorConfig{}, bus)

	done := make(chan error, 1)

	go func() {
		_, err := coordinator.Resolve(context.Background(), liveRequest("Paris", "2024-07-12"))
		done <- err
	}()

	<-provider.started

	_, err := coordinator.Resolve(context.Background(), liveRequest("Paris", "2024-07-12"))
	require.NoError(t, err)
	require.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, superseded)
}

func TestResolve_TimeoutFallsBackToSynthesis(t *testing.T) {
	provider := &fakeProvider{
		blockFirst: true,
		started:    make(chan struct{}, 1),
	}
	coordinator := newTestCoordinator(&fakeGeocoder{}, provider,
		CoordinatorConfig{FetchTimeout: 50 * time.Millisecond}, nil)

	record, err := coordinator.Resolve(context.Background(), liveRequest("Paris", "2024-07-12"))

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.False(t, record.IsLiveForecast)
	assert.Equal(t, domain.SourceHistoricalFallback, record.Source)
	assert.True(t, record.Consistent())
}

func TestResolve_NoAPIKeySkipsLivePath(t *testing.T) {
	geocoder := &fakeGeocoder{}
	coordinator := newTestCoordinator(geocoder, &fakeProvider{}, CoordinatorConfig{}, nil)

	req := liveRequest("Paris", "2024-07-12")
	req.APIKeyAvailable = false

	record, err := coordinator.Resolve(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, domain.SourceHistoricalFallback, record.Source)
	assert.Equal(t, 0, geocoder.callCount())
}

func TestResolve_OutOfRangeDateSkipsLivePath(t *testing.T) {
	tests := []struct {
		name    string
		dateKey string
	}{
		{name: "past date", dateKey: "2024-07-09"},
		{name: "beyond horizon", dateKey: "2024-07-30"},
		{name: "next year", dateKey: "2025-07-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geocoder := &fakeGeocoder{}
			coordinator := newTestCoordinator(geocoder, &fakeProvider{}, CoordinatorConfig{}, nil)

			record, err := coordinator.Resolve(context.Background(), liveRequest("Paris", tt.dateKey))

			require.NoError(t, err)
			assert.False(t, record.IsLiveForecast)
			assert.Equal(t, domain.SourceHistoricalFallback, record.Source)
			assert.Equal(t, 0, geocoder.callCount())
		})
	}
}

func TestResolve_InvalidInputs(t *testing.T) {
	coordinator := newTestCoordinator(&fakeGeocoder{}, &fakeProvider{}, CoordinatorConfig{}, nil)

	record, err := coordinator.Resolve(context.Background(), domain.ResolutionRequest{
		Place:      "Paris",
		TargetDate: time.Time{},
	})
	assert.Nil(t, record)
	assert.Equal(t, domain.CodeInvalidDate, domain.ErrorCode(err))

	record, err = coordinator.Resolve(context.Background(), domain.ResolutionRequest{
		Place:      "   ",
		TargetDate: fixedNow,
	})
	assert.Nil(t, record)
	assert.Equal(t, domain.CodeInvalidPlace, domain.ErrorCode(err))
}

func TestResolve_GeocoderFailureFallsBack(t *testing.T) {
	geocoder := &fakeGeocoder{err: errors.New("connection refused")}
	coordinator := newTestCoordinator(geocoder, &fakeProvider{}, CoordinatorConfig{}, nil)

	record, err := coordinator.Resolve(context.Background(), liveRequest("Paris", "2024-07-12"))

	require.NoError(t, err)
	assert.Equal(t, domain.SourceHistoricalFallback, record.Source)
	assert.True(t, record.Consistent())
}

func TestResolve_NoUsableMatchFallsBack(t *testing.T) {
	provider := &fakeProvider{entries: nil}
	coordinator := newTestCoordinator(&fakeGeocoder{}, provider, CoordinatorConfig{}, nil)

	record, err := coordinator.Resolve(context.Background(), liveRequest("Paris", "2024-07-12"))

	require.NoError(t, err)
	assert.False(t, record.IsLiveForecast)
	assert.Equal(t, domain.SourceHistoricalFallback, record.Source)
}

// TestResolve_ConsistencyUnderFuzz hammers the engine with random inputs
// and checks the record invariants hold on every path: the source label and
// the live flag always agree and the temperature span is ordered.
func TestResolve_ConsistencyUnderFuzz(t *testing.T) {
	places := []string{"Paris", "London", "Tokyo", "New York", "Ulan Bator", "Springfield", "  reykjavik, Iceland "}

	entries := []domain.ForecastEntry{
		liveEntry(t, "2024-07-10", 9),
		liveEntry(t, "2024-07-11", 12),
		liveEntry(t, "2024-07-12", 15),
		liveEntry(t, "2024-07-13", 12),
		liveEntry(t, "2024-07-14", 12),
	}

	coordinator := newTestCoordinator(&fakeGeocoder{}, &fakeProvider{entries: entries}, CoordinatorConfig{}, nil)

	rng := rand.New(rand.NewSource(42))

	for n := 0; n < 1000; n++ {
		place := places[rng.Intn(len(places))]
		target := fixedNow.AddDate(0, 0, rng.Intn(61)-30)

		req := domain.ResolutionRequest{
			Place:           place,
			TargetDate:      target,
			APIKeyAvailable: rng.Intn(2) == 0,
		}

		record, err := coordinator.Resolve(context.Background(), req)

		require.NoError(t, err)
		require.NotNil(t, record)

		assert.True(t, record.Consistent(),
			"source %q disagrees with live flag %v for %s on %s",
			record.Source, record.IsLiveForecast, place, record.ForecastDate.Key())
		assert.GreaterOrEqual(t, record.High, record.Low)
		assert.GreaterOrEqual(t, record.Humidity, 0)
		assert.LessOrEqual(t, record.Humidity, 100)
		assert.GreaterOrEqual(t, record.PrecipitationChance, 0)
		assert.LessOrEqual(t, record.PrecipitationChance, 100)
		assert.GreaterOrEqual(t, record.WindSpeed, 0.0)
	}
}
