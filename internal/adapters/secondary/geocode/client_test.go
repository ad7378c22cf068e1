package geocode

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
)

const testBaseURL = "https://api.openweathermap.org"

func newMockedClient(t *testing.T, apiKey string) *Client {
	t.Helper()

	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return NewClient(testBaseURL, apiKey, httpClient, zap.NewNop())
}

// springfieldPayload holds several same-named places in different countries.
const springfieldPayload = `[
	{"name": "Springfield", "lat": 39.7990, "lon": -89.6440, "country": "US"},
	{"name": "Springfield", "lat": 49.9275, "lon": -96.6950, "country": "CA"},
	{"name": "Springfield", "lat": -1.4419, "lon": 35.1222, "country": "KE"}
]`

func TestLocate_FirstResultByDefault(t *testing.T) {
	client := newMockedClient(t, "test-key")

	httpmock.RegisterResponder("GET", testBaseURL+directPath,
		httpmock.NewStringResponder(http.StatusOK, springfieldPayload))

	coords, err := client.Locate(context.Background(), "Springfield", "")

	require.NoError(t, err)
	assert.InDelta(t, 39.7990, coords.Latitude, 0.0001)
	assert.InDelta(t, -89.6440, coords.Longitude, 0.0001)
}

func TestLocate_PrefersRequestedCountry(t *testing.T) {
	client := newMockedClient(t, "test-key")

	httpmock.RegisterResponder("GET", testBaseURL+directPath,
		httpmock.NewStringResponder(http.StatusOK, springfieldPayload))

	coords, err := client.Locate(context.Background(), "Springfield", "ca")

	require.NoError(t, err)
	assert.InDelta(t, 49.9275, coords.Latitude, 0.0001)
	assert.InDelta(t, -96.6950, coords.Longitude, 0.0001)
}

func TestLocate_UnmatchedCountryFallsBackToFirst(t *testing.T) {
	client := newMockedClient(t, "test-key")

	httpmock.RegisterResponder("GET", testBaseURL+directPath,
		httpmock.NewStringResponder(http.StatusOK, springfieldPayload))

	coords, err := client.Locate(context.Background(), "Springfield", "FR")

	require.NoError(t, err)
	assert.InDelta(t, 39.7990, coords.Latitude, 0.0001)
}

func TestLocate_SendsQueryAndLimit(t *testing.T) {
	client := newMockedClient(t, "secret-key")

	httpmock.RegisterResponder("GET", testBaseURL+directPath,
		func(req *http.Request) (*http.Response, error) {
			query := req.URL.Query()
			assert.Equal(t, "Ulan Bator", query.Get("q"))
			assert.Equal(t, "5", query.Get("limit"))
			assert.Equal(t, "secret-key", query.Get("appid"))

			return httpmock.NewStringResponse(http.StatusOK,
				`[{"name": "Ulaanbaatar", "lat": 47.9184, "lon": 106.9177, "country": "MN"}]`), nil
		})

	coords, err := client.Locate(context.Background(), "Ulan Bator", "")

	require.NoError(t, err)
	assert.InDelta(t, 47.9184, coords.Latitude, 0.0001)
}

func TestLocate_EmptyResults(t *testing.T) {
	client := newMockedClient(t, "test-key")

	httpmock.RegisterResponder("GET", testBaseURL+directPath,
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	_, err := client.Locate(context.Background(), "Nowhereville", "")

	assert.Equal(t, domain.CodeGeocodingUnavailable, domain.ErrorCode(err))
}

func TestLocate_NoAPIKey(t *testing.T) {
	client := newMockedClient(t, "")

	_, err := client.Locate(context.Background(), "Paris", "")

	assert.Equal(t, domain.CodeNoAPIKey, domain.ErrorCode(err))
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestLocate_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantCode   string
	}{
		{name: "unauthorized", statusCode: http.StatusUnauthorized, wantCode: domain.CodeNoAPIKey},
		{name: "server error", statusCode: http.StatusInternalServerError, wantCode: domain.CodeGeocodingUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockedClient(t, "test-key")

			httpmock.RegisterResponder("GET", testBaseURL+directPath,
				httpmock.NewStringResponder(tt.statusCode, `{}`))

			_, err := client.Locate(context.Background(), "Paris", "")

			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}
}

func TestLocate_TransportError(t *testing.T) {
	client := newMockedClient(t, "test-key")

	httpmock.RegisterResponder("GET", testBaseURL+directPath,
		httpmock.NewErrorResponder(assert.AnError))

	_, err := client.Locate(context.Background(), "Paris", "")

	assert.Equal(t, domain.CodeGeocodingUnavailable, domain.ErrorCode(err))
}
