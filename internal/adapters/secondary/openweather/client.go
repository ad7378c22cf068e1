// Package openweather implements a forecast provider client for the
// OpenWeather 5-day/3-hour forecast API. This package serves as a secondary
// adapter, translating domain requests into OpenWeather API calls and
// converting the 3-hour samples back into domain forecast entries.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
)

// forecastPath is the 5-day/3-hour forecast endpoint.
const forecastPath = "/data/2.5/forecast"

// Client fetches forward forecast data from OpenWeather. It also acts as
// the engine's key source: the same credential gates both the forecast and
// geocoding surfaces, so availability is answered here.
type Client struct {
	// baseURL is the OpenWeather API base endpoint
	baseURL string

	// apiKey authenticates every request; empty means no live data
	apiKey string

	// httpClient handles HTTP communication with timeout configuration
	httpClient *http.Client

	// logger records API interactions and errors
	logger *zap.Logger
}

// NewClient creates a new OpenWeather forecast client.
//
// Parameters:
//   - baseURL: OpenWeather API base URL (typically https://api.openweathermap.org)
//   - apiKey: API key; may be empty, in which case every fetch fails with NO_API_KEY
//   - httpClient: HTTP client with timeout configuration
//   - logger: Zap logger for API interaction logging
//
// Returns:
//   - *Client: Configured OpenWeather client
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Available reports whether a provider key is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// Key returns the configured provider key.
func (c *Client) Key() string {
	return c.apiKey
}

// forecastResponse represents the OpenWeather /data/2.5/forecast payload.
// The API returns up to 40 samples spaced 3 hours apart, plus city metadata
// carrying the location's UTC offset.
type forecastResponse struct {
	City struct {
		Name     string `json:"name"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
	List []forecastSample `json:"list"`
}

// forecastSample is one 3-hour sample in the forecast series.
type forecastSample struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     *float64 `json:"temp"`
		TempMax  *float64 `json:"temp_max"`
		TempMin  *float64 `json:"temp_min"`
		Humidity *int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Pop *float64 `json:"pop"`
}

// FetchForecast retrieves the provider's forward time series for a location.
// Samples are returned in provider order with their date keys computed in
// the location's local time, not the server's.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - coords: Geographic coordinates for the forecast location
//
// Returns:
//   - []domain.ForecastEntry: One entry per 3-hour sample, forecast-tagged
//   - error: NO_API_KEY when no credential is configured or it is rejected,
//     PROVIDER_UNAVAILABLE for transport and server failures
func (c *Client) FetchForecast(ctx context.Context, coords domain.Coordinates) ([]domain.ForecastEntry, error) {
	if c.apiKey == "" {
		return nil, &domain.ResolutionError{
			Code:    domain.CodeNoAPIKey,
			Message: "no provider API key configured",
		}
	}

	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%.4f", coords.Latitude))
	query.Set("lon", fmt.Sprintf("%.4f", coords.Longitude))
	query.Set("units", "metric")
	query.Set("appid", c.apiKey)

	endpoint := c.baseURL + forecastPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)

	if err != nil {
		return nil, &domain.ResolutionError{
			Code:    domain.CodeProviderUnavailable,
			Message: "failed to build forecast request",
			Cause:   err,
		}
	}

	resp, err := c.httpClient.Do(req)

	if err != nil {
		return nil, &domain.ResolutionError{
			Code:    domain.CodeProviderUnavailable,
			Message: "forecast request failed",
			Cause:   err,
		}
	}

	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error("failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &domain.ResolutionError{
			Code:    domain.CodeNoAPIKey,
			Message: "provider rejected the API key",
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ResolutionError{
			Code:    domain.CodeProviderUnavailable,
			Message: fmt.Sprintf("provider returned status %d", resp.StatusCode),
		}
	}

	var payload forecastResponse

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &domain.ResolutionError{
			Code:    domain.CodeProviderUnavailable,
			Message: "failed to decode forecast response",
			Cause:   err,
		}
	}

	offset := time.Duration(payload.City.Timezone) * time.Second
	entries := make([]domain.ForecastEntry, 0, len(payload.List))

	for _, sample := range payload.List {
		entries = append(entries, c.toEntry(sample, offset))
	}

	c.logger.Debug("fetched forecast series",
		zap.String("city", payload.City.Name),
		zap.Int("samples", len(entries)))

	return entries, nil
}

// toEntry converts one 3-hour sample to a domain entry. The date key uses
// the location's UTC offset so a 23:00 local sample lands on the local day,
// not the server's.
func (c *Client) toEntry(sample forecastSample, offset time.Duration) domain.ForecastEntry {
	ts := time.Unix(sample.Dt, 0)
	local := ts.UTC().Add(offset)

	entry := domain.ForecastEntry{
		DateKey:        local.Format(domain.DateKeyLayout),
		Timestamp:      ts,
		Temperature:    sample.Main.Temp,
		High:           sample.Main.TempMax,
		Low:            sample.Main.TempMin,
		Humidity:       sample.Main.Humidity,
		WindSpeed:      sample.Wind.Speed,
		ForecastTagged: true,
	}

	if len(sample.Weather) > 0 {
		entry.Description = sample.Weather[0].Description
		entry.Icon = sample.Weather[0].Icon
	}

	if sample.Pop != nil {
		pct := int(math.Round(*sample.Pop * 100))
		entry.PrecipitationChance = &pct
	}

	return entry
}
