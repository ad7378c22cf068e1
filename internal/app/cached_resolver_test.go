package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
)

// stubResolver returns a canned record or error and counts invocations.
type stubResolver struct {
	mu     sync.Mutex
	calls  int
	record *domain.WeatherRecord
	err    error

	// onResolve runs inside Resolve when set, before returning.
	onResolve func(ctx context.Context)
}

func (s *stubResolver) Resolve(ctx context.Context, req domain.ResolutionRequest) (*domain.WeatherRecord, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.onResolve != nil {
		s.onResolve(ctx)
	}

	if s.err != nil {
		return nil, s.err
	}

	return s.record, nil
}

func (s *stubResolver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

// fakeCache is an in-memory ports.CacheService that records the TTL of the
// last Set call.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	lastTTL time.Duration
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

var errFakeCacheMiss = errors.New("cache miss")

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}

	data, ok := f.entries[key]

	if !ok {
		return nil, errFakeCacheMiss
	}

	return data, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setErr != nil {
		return f.setErr
	}

	f.entries[key] = value
	f.lastTTL = ttl

	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.entries, key)

	return nil
}

func (f *fakeCache) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = make(map[string][]byte)

	return nil
}

func testDay(t *testing.T, key string) domain.CalendarDay {
	t.Helper()

	day, err := domain.ParseDateKey(key)
	require.NoError(t, err)

	return day
}

func liveRecord(t *testing.T, place string) *domain.WeatherRecord {
	t.Helper()

	return &domain.WeatherRecord{
		ID:             uuid.New(),
		Place:          place,
		ForecastDate:   testDay(t, "2024-07-12"),
		Current:        21.5,
		High:           24,
		Low:            15,
		Description:    "scattered clouds",
		Humidity:       60,
		IsLiveForecast: true,
		Source:         domain.SourceLiveForecast,
		Confidence:     domain.ConfidenceHigh,
		MatchInfo:      domain.MatchResult{Type: domain.MatchExact},
	}
}

func fallbackRecord(t *testing.T, place string) *domain.WeatherRecord {
	t.Helper()

	rec := liveRecord(t, place)
	rec.IsLiveForecast = false
	rec.Source = domain.SourceHistoricalFallback
	rec.Confidence = domain.ConfidenceLow
	rec.MatchInfo = domain.MatchResult{Type: domain.MatchNone}

	return rec
}

func resolveRequest(place string) domain.ResolutionRequest {
	return domain.ResolutionRequest{
		Place:           place,
		TargetDate:      time.Date(2024, 7, 12, 0, 0, 0, 0, time.Local),
		APIKeyAvailable: true,
	}
}

func TestCachedResolver_MissThenHit(t *testing.T) {
	stub := &stubResolver{record: liveRecord(t, "Paris")}
	cached := NewCachedResolver(stub, newFakeCache(), nil, 30*time.Minute, 6*time.Hour, zap.NewNop())

	first, err := cached.Resolve(context.Background(), resolveRequest("Paris"))
	require.NoError(t, err)

	second, err := cached.Resolve(context.Background(), resolveRequest("Paris"))
	require.NoError(t, err)

	assert.Equal(t, 1, stub.callCount())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.High, second.High)
	assert.Equal(t, first.ForecastDate.Key(), second.ForecastDate.Key())
	assert.Equal(t, first.Source, second.Source)
	assert.True(t, second.Consistent())
}

func TestCachedResolver_PlaceCaseSharesEntry(t *testing.T) {
	stub := &stubResolver{record: liveRecord(t, "Paris")}
	cached := NewCachedResolver(stub, newFakeCache(), nil, 30*time.Minute, 6*time.Hour, zap.NewNop())

	_, err := cached.Resolve(context.Background(), resolveRequest("Paris"))
	require.NoError(t, err)

	_, err = cached.Resolve(context.Background(), resolveRequest("  paris "))
	require.NoError(t, err)

	assert.Equal(t, 1, stub.callCount())
}

func TestCachedResolver_TTLBySource(t *testing.T) {
	liveTTL := 30 * time.Minute
	fallbackTTL := 6 * time.Hour

	tests := []struct {
		name    string
		record  *domain.WeatherRecord
		wantTTL time.Duration
	}{
		{
			name:    "live records use the short TTL",
			record:  liveRecord(t, "Paris"),
			wantTTL: liveTTL,
		},
		{
			name:    "fallback records use the long TTL",
			record:  fallbackRecord(t, "Paris"),
			wantTTL: fallbackTTL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeCache()
			stub := &stubResolver{record: tt.record}
			cached := NewCachedResolver(stub, store, nil, liveTTL, fallbackTTL, zap.NewNop())

			_, err := cached.Resolve(context.Background(), resolveRequest("Paris"))
			require.NoError(t, err)

			assert.Equal(t, tt.wantTTL, store.lastTTL)
		})
	}
}

func TestCachedResolver_ErrorsAreNotCached(t *testing.T) {
	store := newFakeCache()
	stub := &stubResolver{err: assert.AnError}
	cached := NewCachedResolver(stub, store, nil, 30*time.Minute, 6*time.Hour, zap.NewNop())

	_, err := cached.Resolve(context.Background(), resolveRequest("Paris"))
	require.Error(t, err)

	_, err = cached.Resolve(context.Background(), resolveRequest("Paris"))
	require.Error(t, err)

	assert.Equal(t, 2, stub.callCount())
	assert.Empty(t, store.entries)
}

func TestCachedResolver_CorruptEntryFallsThrough(t *testing.T) {
	store := newFakeCache()
	day := testDay(t, "2024-07-12")
	store.entries[cacheKey("Paris", day)] = []byte("not json")

	stub := &stubResolver{record: liveRecord(t, "Paris")}
	cached := NewCachedResolver(stub, store, nil, 30*time.Minute, 6*time.Hour, zap.NewNop())

	record, err := cached.Resolve(context.Background(), resolveRequest("Paris"))
	require.NoError(t, err)

	assert.Equal(t, 1, stub.callCount())
	assert.Equal(t, "Paris", record.Place)
}

func TestCachedResolver_BrokenCacheDegradesToResolving(t *testing.T) {
	store := newFakeCache()
	store.getErr = assert.AnError
	store.setErr = assert.AnError

	stub := &stubResolver{record: liveRecord(t, "Paris")}
	cached := NewCachedResolver(stub, store, nil, 30*time.Minute, 6*time.Hour, zap.NewNop())

	for i := 0; i < 3; i++ {
		record, err := cached.Resolve(context.Background(), resolveRequest("Paris"))
		require.NoError(t, err)
		assert.Equal(t, "Paris", record.Place)
	}

	assert.Equal(t, 3, stub.callCount())
}

func TestCachedResolver_InvalidDateDelegates(t *testing.T) {
	stub := &stubResolver{err: domain.NewInvalidDateError(errors.New("zero time"))}
	cached := NewCachedResolver(stub, newFakeCache(), nil, 30*time.Minute, 6*time.Hour, zap.NewNop())

	req := domain.ResolutionRequest{Place: "Paris"}

	_, err := cached.Resolve(context.Background(), req)
	require.Error(t, err)

	assert.Equal(t, 1, stub.callCount())
}
