// Package rest contains unit tests for REST API handlers.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
)

// MockResolver is a mock implementation of the Resolver interface.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, req domain.ResolutionRequest) (*domain.WeatherRecord, error) {
	args := m.Called(ctx, req)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.WeatherRecord), args.Error(1)
}

type staticKeys struct {
	available bool
}

func (k staticKeys) Available() bool { return k.available }

func (k staticKeys) Key() string {
	if k.available {
		return "test-key"
	}

	return ""
}

func testRecord(live bool) *domain.WeatherRecord {
	day, _ := domain.ParseDateKey("2024-07-12")

	record := &domain.WeatherRecord{
		ID:                  uuid.MustParse("a2b45678-1234-5678-9abc-def012345678"),
		Place:               "Paris",
		ForecastDate:        day,
		Current:             20,
		High:                24,
		Low:                 15,
		Description:         "Partly cloudy",
		Icon:                "03d",
		Humidity:            60,
		WindSpeed:           3.5,
		PrecipitationChance: 20,
		IsLiveForecast:      live,
		Confidence:          domain.ConfidenceHigh,
		MatchInfo: domain.MatchResult{
			Type:       domain.MatchExact,
			Confidence: domain.ConfidenceHigh,
		},
	}

	if live {
		record.Source = domain.SourceLiveForecast
		record.DisplayLabel = "Live forecast"
	} else {
		record.Source = domain.SourceHistoricalFallback
		record.DisplayLabel = "Seasonal estimate"
		record.MatchInfo.Type = domain.MatchNone
		record.Confidence = domain.ConfidenceMedium
	}

	return record
}

func TestWeatherHandler_GetWeather(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		queryParams    string
		mockRecord     *domain.WeatherRecord
		mockError      error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "live record",
			queryParams:    "?place=Paris&date=2024-07-12",
			mockRecord:     testRecord(true),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "fallback record still 200",
			queryParams:    "?place=Paris&date=2024-07-12",
			mockRecord:     testRecord(false),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing place",
			queryParams:    "?date=2024-07-12",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "MISSING_PARAMETERS",
		},
		{
			name:           "missing date",
			queryParams:    "?place=Paris",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "MISSING_PARAMETERS",
		},
		{
			name:           "malformed date",
			queryParams:    "?place=Paris&date=July+12",
			expectedStatus: http.StatusBadRequest,
			expectedError:  domain.CodeInvalidDate,
		},
		{
			name:           "resolver rejects place",
			queryParams:    "?place=%20&date=2024-07-12",
			mockError:      domain.NewInvalidPlaceError(" "),
			expectedStatus: http.StatusBadRequest,
			expectedError:  domain.CodeInvalidPlace,
		},
		{
			name:           "unexpected resolver error",
			queryParams:    "?place=Paris&date=2024-07-12",
			mockError:      assert.AnError,
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := new(MockResolver)

			if tt.mockRecord != nil || tt.mockError != nil {
				resolver.On("Resolve", mock.Anything, mock.Anything).
					Return(tt.mockRecord, tt.mockError)
			}

			handler := NewWeatherHandler(resolver, staticKeys{available: true}, logger)

			req := httptest.NewRequest("GET", "/api/v1/weather"+tt.queryParams, nil)
			rec := httptest.NewRecorder()

			handler.GetWeather(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)

			if tt.expectedError != "" {
				var errResp ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
				assert.Equal(t, tt.expectedError, errResp.Error)
			}

			resolver.AssertExpectations(t)
		})
	}
}

func TestWeatherHandler_ResponseShape(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(testRecord(true), nil)

	handler := NewWeatherHandler(resolver, staticKeys{available: true}, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/v1/weather?place=Paris&date=2024-07-12&country=FR", nil)
	rec := httptest.NewRecorder()

	handler.GetWeather(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp WeatherResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "Paris", resp.Place)
	assert.Equal(t, "2024-07-12", resp.Date)
	assert.Equal(t, 20.0, resp.Temperature)
	assert.Equal(t, 24.0, resp.High)
	assert.Equal(t, 15.0, resp.Low)
	assert.True(t, resp.IsLiveForecast)
	assert.Equal(t, string(domain.SourceLiveForecast), resp.Source)
	assert.Equal(t, string(domain.MatchExact), resp.Match.Type)
}

// TestWeatherHandler_ForwardsKeyAvailability checks the handler stamps the
// request with whether a credential is configured, not the credential
// itself.
func TestWeatherHandler_ForwardsKeyAvailability(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, mock.MatchedBy(func(req domain.ResolutionRequest) bool {
		return !req.APIKeyAvailable
	})).Return(testRecord(false), nil)

	handler := NewWeatherHandler(resolver, staticKeys{available: false}, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/v1/weather?place=Paris&date=2024-07-12", nil)
	rec := httptest.NewRecorder()

	handler.GetWeather(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resolver.AssertExpectations(t)
}

// TestWeatherHandler_CancelledRequestWritesNothing checks a superseded
// resolution produces no response body.
func TestWeatherHandler_CancelledRequestWritesNothing(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(nil, context.Canceled)

	handler := NewWeatherHandler(resolver, staticKeys{available: true}, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/v1/weather?place=Paris&date=2024-07-12", nil)
	rec := httptest.NewRecorder()

	handler.GetWeather(rec, req)

	assert.Empty(t, rec.Body.String())
}

// TestWeatherHandler_DateParsing covers accepted and rejected date forms.
func TestWeatherHandler_DateParsing(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		accepted bool
	}{
		{name: "ISO date", date: "2024-07-12", accepted: true},
		{name: "slash separators", date: "2024/07/12", accepted: false},
		{name: "US order", date: "07-12-2024", accepted: false},
		{name: "with time", date: "2024-07-12T10:00:00", accepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := new(MockResolver)

			if tt.accepted {
				resolver.On("Resolve", mock.Anything, mock.MatchedBy(func(req domain.ResolutionRequest) bool {
					want := time.Date(2024, 7, 12, 0, 0, 0, 0, time.Local)
					return req.TargetDate.Equal(want)
				})).Return(testRecord(true), nil)
			}

			handler := NewWeatherHandler(resolver, staticKeys{available: true}, zap.NewNop())

			req := httptest.NewRequest("GET", "/api/v1/weather?place=Paris&date="+tt.date, nil)
			rec := httptest.NewRecorder()

			handler.GetWeather(rec, req)

			if tt.accepted {
				assert.Equal(t, http.StatusOK, rec.Code)
			} else {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}

			resolver.AssertExpectations(t)
		})
	}
}
