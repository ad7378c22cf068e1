// Package geocode implements a geocoding client backed by the OpenWeather
// direct geocoding API. It translates free-form place names into coordinates
// for the forecast provider.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
)

// directPath is the direct geocoding endpoint.
const directPath = "/geo/1.0/direct"

// candidateLimit caps how many geocoding candidates are requested; enough
// to apply a country preference without paging.
const candidateLimit = 5

// Client resolves place names to coordinates via OpenWeather geocoding.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new geocoding client.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// geoCandidate is one result from the direct geocoding endpoint.
type geoCandidate struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
}

// Locate resolves a place name to coordinates. When country is non-empty
// and several candidates come back, a candidate tagged with that country is
// preferred; otherwise the provider's first result wins. An empty result
// set maps to GEOCODING_UNAVAILABLE, which the engine treats as a signal to
// fall back rather than fail.
func (c *Client) Locate(ctx context.Context, place, country string) (domain.Coordinates, error) {
	if c.apiKey == "" {
		return domain.Coordinates{}, &domain.ResolutionError{
			Code:    domain.CodeNoAPIKey,
			Message: "no provider API key configured",
		}
	}

	query := url.Values{}
	query.Set("q", place)
	query.Set("limit", fmt.Sprintf("%d", candidateLimit))
	query.Set("appid", c.apiKey)

	endpoint := c.baseURL + directPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)

	if err != nil {
		return domain.Coordinates{}, &domain.ResolutionError{
			Code:    domain.CodeGeocodingUnavailable,
			Message: "failed to build geocoding request",
			Cause:   err,
		}
	}

	resp, err := c.httpClient.Do(req)

	if err != nil {
		return domain.Coordinates{}, &domain.ResolutionError{
			Code:    domain.CodeGeocodingUnavailable,
			Message: "geocoding request failed",
			Cause:   err,
		}
	}

	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error("failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return domain.Coordinates{}, &domain.ResolutionError{
			Code:    domain.CodeNoAPIKey,
			Message: "provider rejected the API key",
		}
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Coordinates{}, &domain.ResolutionError{
			Code:    domain.CodeGeocodingUnavailable,
			Message: fmt.Sprintf("geocoder returned status %d", resp.StatusCode),
		}
	}

	var candidates []geoCandidate

	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return domain.Coordinates{}, &domain.ResolutionError{
			Code:    domain.CodeGeocodingUnavailable,
			Message: "failed to decode geocoding response",
			Cause:   err,
		}
	}

	if len(candidates) == 0 {
		return domain.Coordinates{}, &domain.ResolutionError{
			Code:    domain.CodeGeocodingUnavailable,
			Message: fmt.Sprintf("no geocoding results for %q", place),
		}
	}

	chosen := pickCandidate(candidates, country)

	c.logger.Debug("geocoded place",
		zap.String("place", place),
		zap.String("resolved", chosen.Name),
		zap.String("country", chosen.Country))

	return domain.Coordinates{Latitude: chosen.Lat, Longitude: chosen.Lon}, nil
}

// pickCandidate prefers a candidate in the requested country, falling back
// to the provider's first result.
func pickCandidate(candidates []geoCandidate, country string) geoCandidate {
	if country == "" {
		return candidates[0]
	}

	want := strings.ToUpper(strings.TrimSpace(country))

	for _, cand := range candidates {
		if strings.ToUpper(cand.Country) == want {
			return cand
		}
	}

	return candidates[0]
}
