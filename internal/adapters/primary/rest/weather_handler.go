// Package rest implements HTTP handlers for the weather resolution
// endpoints. This package serves as the primary adapter, translating HTTP
// requests into resolution calls and formatting records for clients.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
	"github.com/tripweather/weather-engine/internal/core/ports"
	"github.com/tripweather/weather-engine/internal/middleware"
)

// WeatherHandler handles HTTP requests for weather resolution. It parses
// and validates the query, hands the request to the resolver, and formats
// the record. The resolver's contract means most failures never reach this
// layer as errors; they arrive as fallback records.
type WeatherHandler struct {
	// resolver is the engine entry point
	resolver ports.Resolver

	// keys answers whether a provider credential is configured
	keys ports.KeySource

	// logger records request processing events and errors
	logger *zap.Logger
}

// NewWeatherHandler creates a new HTTP handler for weather resolution.
//
// Parameters:
//   - resolver: Resolver for (place, date) weather resolution
//   - keys: Key source consulted per request; nil means no key ever
//   - logger: Zap logger for request logging and error tracking
//
// Returns:
//   - *WeatherHandler: Configured handler instance
func NewWeatherHandler(resolver ports.Resolver, keys ports.KeySource, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{
		resolver: resolver,
		keys:     keys,
		logger:   logger,
	}
}

// MatchResponse describes how the returned record was matched against the
// provider series.
type MatchResponse struct {
	Type       string `json:"type"`
	DaysOffset int    `json:"daysOffset"`
	Confidence string `json:"confidence"`
}

// WeatherResponse represents the JSON structure returned by the weather
// endpoint. This DTO maps the resolved record to a client-friendly format
// with consistent field naming.
type WeatherResponse struct {
	ID                  string        `json:"id"`
	Place               string        `json:"place"`
	Date                string        `json:"date"`
	Temperature         float64       `json:"temperature"`
	High                float64       `json:"high"`
	Low                 float64       `json:"low"`
	Description         string        `json:"description"`
	Icon                string        `json:"icon"`
	Humidity            int           `json:"humidity"`
	WindSpeed           float64       `json:"windSpeed"`
	PrecipitationChance int           `json:"precipitationChance"`
	IsLiveForecast      bool          `json:"isLiveForecast"`
	Source              string        `json:"source"`
	Confidence          string        `json:"confidence"`
	DisplayLabel        string        `json:"displayLabel"`
	Match               MatchResponse `json:"match"`
}

// ErrorResponse represents a standardized error response structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetWeather handles GET requests for weather resolution.
//
// Parameters:
//   - w: HTTP response writer
//   - r: HTTP request with 'place' and 'date' query parameters and an
//     optional 'country' hint
//
// Response codes:
//   - 200: Success with WeatherResponse JSON (live or fallback record)
//   - 400: Invalid parameters (MISSING_PARAMETERS, INVALID_DATE, INVALID_PLACE)
//   - 500: Internal server error
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	place := r.URL.Query().Get("place")
	dateStr := r.URL.Query().Get("date")

	if place == "" || dateStr == "" {
		h.respondWithError(
			w,
			http.StatusBadRequest,
			"MISSING_PARAMETERS",
			"Both 'place' and 'date' query parameters are required",
		)

		return
	}

	target, err := time.ParseInLocation(domain.DateKeyLayout, dateStr, time.Local)

	if err != nil {
		h.respondWithError(
			w,
			http.StatusBadRequest,
			domain.CodeInvalidDate,
			"Date must be formatted as YYYY-MM-DD",
		)

		return
	}

	req := domain.ResolutionRequest{
		Place:           place,
		TargetDate:      target,
		Country:         r.URL.Query().Get("country"),
		APIKeyAvailable: h.keys != nil && h.keys.Available(),
	}

	record, err := h.resolver.Resolve(r.Context(), req)

	if err != nil {
		h.handleResolveError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toResponse(record))
}

// toResponse maps a resolved record to the transport DTO.
func toResponse(record *domain.WeatherRecord) WeatherResponse {
	return WeatherResponse{
		ID:                  record.ID.String(),
		Place:               record.Place,
		Date:                record.ForecastDate.Key(),
		Temperature:         record.Current,
		High:                record.High,
		Low:                 record.Low,
		Description:         record.Description,
		Icon:                record.Icon,
		Humidity:            record.Humidity,
		WindSpeed:           record.WindSpeed,
		PrecipitationChance: record.PrecipitationChance,
		IsLiveForecast:      record.IsLiveForecast,
		Source:              string(record.Source),
		Confidence:          string(record.Confidence),
		DisplayLabel:        record.DisplayLabel,
		Match: MatchResponse{
			Type:       string(record.MatchInfo.Type),
			DaysOffset: record.MatchInfo.DaysOffset,
			Confidence: string(record.MatchInfo.Confidence),
		},
	}
}

// respondWithJSON sends a JSON response with the specified status code.
func (h *WeatherHandler) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondWithError sends a standardized error response.
func (h *WeatherHandler) respondWithError(w http.ResponseWriter, status int, code, message string) {
	response := ErrorResponse{
		Error:   code,
		Message: message,
	}

	h.respondWithJSON(w, status, response)
}

// handleResolveError maps resolver errors to HTTP responses. Only invalid
// input surfaces as 400; a superseded or client-cancelled request gets no
// body because nobody is listening for one.
func (h *WeatherHandler) handleResolveError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		h.logger.Debug("request superseded or cancelled",
			zap.String("request_id", middleware.GetRequestID(r.Context())))

		return
	}

	switch domain.ErrorCode(err) {
	case domain.CodeInvalidDate, domain.CodeInvalidPlace:
		var e *domain.ResolutionError

		if errors.As(err, &e) {
			h.respondWithError(w, http.StatusBadRequest, e.Code, e.Message)
			return
		}

		h.respondWithError(w, http.StatusBadRequest, domain.ErrorCode(err), "Invalid request")
	default:
		h.logger.Error("unexpected resolution error",
			zap.Error(err),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)

		h.respondWithError(
			w,
			http.StatusInternalServerError,
			"INTERNAL_ERROR",
			"An unexpected error occurred",
		)
	}
}
