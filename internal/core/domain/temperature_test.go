package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestExtractTemperature(t *testing.T) {
	tests := []struct {
		name            string
		entry           *ForecastEntry
		expectedErr     error
		expectedCurrent float64
		expectedHigh    float64
		expectedLow     float64
		spreadEstimated bool
	}{
		{
			name:            "explicit high low pair",
			entry:           &ForecastEntry{High: f(28), Low: f(18)},
			expectedCurrent: 23,
			expectedHigh:    28,
			expectedLow:     18,
		},
		{
			name:            "pair wins over single value",
			entry:           &ForecastEntry{Temperature: f(99), High: f(30), Low: f(20)},
			expectedCurrent: 25,
			expectedHigh:    30,
			expectedLow:     20,
		},
		{
			name:            "inverted pair is reordered",
			entry:           &ForecastEntry{High: f(15), Low: f(25)},
			expectedCurrent: 20,
			expectedHigh:    25,
			expectedLow:     15,
		},
		{
			name:            "single value gets synthetic spread",
			entry:           &ForecastEntry{Temperature: f(21)},
			expectedCurrent: 21,
			expectedHigh:    31,
			expectedLow:     11,
			spreadEstimated: true,
		},
		{
			name:            "nested day object",
			entry:           &ForecastEntry{Day: &DaySummary{High: f(12), Low: f(4)}},
			expectedCurrent: 8,
			expectedHigh:    12,
			expectedLow:     4,
		},
		{
			name:            "midpoint rounds to nearest",
			entry:           &ForecastEntry{High: f(27), Low: f(18)},
			expectedCurrent: 23, // round(22.5)
			expectedHigh:    27,
			expectedLow:     18,
		},
		{
			name:        "no temperature shape at all",
			entry:       &ForecastEntry{Description: "cloudy"},
			expectedErr: ErrNotDisplayable,
		},
		{
			name:        "nil entry",
			entry:       nil,
			expectedErr: ErrNotDisplayable,
		},
		{
			name:        "NaN value is not displayable",
			entry:       &ForecastEntry{Temperature: f(math.NaN())},
			expectedErr: ErrNotDisplayable,
		},
		{
			name:        "physically insane pair is rejected",
			entry:       &ForecastEntry{High: f(900), Low: f(700)},
			expectedErr: ErrNotDisplayable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := ExtractTemperature(tt.entry)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedCurrent, reading.Current)
			assert.Equal(t, tt.expectedHigh, reading.High)
			assert.Equal(t, tt.expectedLow, reading.Low)
			assert.Equal(t, tt.spreadEstimated, reading.SpreadEstimated)
			assert.True(t, reading.Displayable())
			assert.GreaterOrEqual(t, reading.High, reading.Low)
		})
	}
}

func TestHasTemperature(t *testing.T) {
	assert.False(t, (*ForecastEntry)(nil).HasTemperature())
	assert.False(t, (&ForecastEntry{}).HasTemperature())
	assert.False(t, (&ForecastEntry{High: f(10)}).HasTemperature())
	assert.True(t, (&ForecastEntry{Temperature: f(10)}).HasTemperature())
	assert.True(t, (&ForecastEntry{High: f(10), Low: f(2)}).HasTemperature())
	assert.True(t, (&ForecastEntry{Day: &DaySummary{High: f(9), Low: f(1)}}).HasTemperature())
}

func TestWeatherRecordConsistent(t *testing.T) {
	live := &WeatherRecord{IsLiveForecast: true, Source: SourceLiveForecast}
	fallback := &WeatherRecord{IsLiveForecast: false, Source: SourceHistoricalFallback}
	broken := &WeatherRecord{IsLiveForecast: true, Source: SourceHistoricalFallback}

	assert.True(t, live.Consistent())
	assert.True(t, fallback.Consistent())
	assert.False(t, broken.Consistent())
}

func TestResolutionErrorTaxonomy(t *testing.T) {
	recoverable := []string{
		CodeGeocodingUnavailable,
		CodeProviderUnavailable,
		CodeTimeout,
		CodeNoAPIKey,
		CodeNoUsableMatch,
	}

	for _, code := range recoverable {
		err := &ResolutionError{Code: code, Message: "boom"}

		assert.True(t, IsRecoverable(err), code)
		assert.Equal(t, code, ErrorCode(err))
	}

	assert.False(t, IsRecoverable(NewInvalidDateError(nil)))
	assert.False(t, IsRecoverable(NewInvalidPlaceError("")))
	assert.False(t, IsRecoverable(assert.AnError))
	assert.Empty(t, ErrorCode(assert.AnError))
}
