package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalize_StripsTimeOfDay verifies that normalization uses local
// calendar fields, so late-evening instants stay on their own day.
func TestNormalize_StripsTimeOfDay(t *testing.T) {
	tests := []struct {
		name        string
		input       time.Time
		expectedKey string
	}{
		{
			name:        "midday",
			input:       time.Date(2024, 7, 10, 12, 30, 0, 0, time.Local),
			expectedKey: "2024-07-10",
		},
		{
			name:        "one second before midnight",
			input:       time.Date(2024, 7, 10, 23, 59, 59, 0, time.Local),
			expectedKey: "2024-07-10",
		},
		{
			name:        "exactly midnight",
			input:       time.Date(2024, 7, 11, 0, 0, 0, 0, time.Local),
			expectedKey: "2024-07-11",
		},
		{
			name:        "late evening in a west-of-UTC zone",
			input:       time.Date(2024, 7, 10, 22, 0, 0, 0, time.FixedZone("PDT", -7*3600)),
			expectedKey: "2024-07-10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := Normalize(tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedKey, day.Key())
			assert.Equal(t, 0, day.Time().Hour())
		})
	}
}

// TestNormalize_Idempotent verifies normalize(normalize(d)) == normalize(d).
func TestNormalize_Idempotent(t *testing.T) {
	inputs := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 1, 0, time.Local),
		time.Date(2024, 6, 15, 18, 45, 0, 0, time.Local),
		time.Date(2024, 12, 31, 23, 59, 59, 0, time.Local),
	}

	for _, input := range inputs {
		once, err := Normalize(input)
		require.NoError(t, err)

		twice, err := Normalize(once.Time())
		require.NoError(t, err)

		assert.True(t, once.Equal(twice))
		assert.Equal(t, once.Time(), twice.Time())
	}
}

func TestNormalize_ZeroTime(t *testing.T) {
	_, err := Normalize(time.Time{})

	require.Error(t, err)
	assert.Equal(t, CodeInvalidDate, ErrorCode(err))
}

func TestParseDateKey(t *testing.T) {
	day, err := ParseDateKey("2024-07-10")

	require.NoError(t, err)
	assert.Equal(t, "2024-07-10", day.Key())
	assert.Equal(t, time.July, day.Month())
	assert.Equal(t, 10, day.DayOfMonth())

	_, err = ParseDateKey("10/07/2024")
	require.Error(t, err)
	assert.Equal(t, CodeInvalidDate, ErrorCode(err))

	_, err = ParseDateKey("")
	require.Error(t, err)
}

func TestDaysFrom(t *testing.T) {
	now := time.Date(2024, 7, 10, 15, 4, 5, 0, time.Local)

	tests := []struct {
		name     string
		day      string
		expected int
	}{
		{name: "today", day: "2024-07-10", expected: 0},
		{name: "tomorrow", day: "2024-07-11", expected: 1},
		{name: "yesterday", day: "2024-07-09", expected: -1},
		{name: "a week out", day: "2024-07-17", expected: 7},
		{name: "across a month boundary", day: "2024-08-02", expected: 23},
		{name: "far future", day: "2025-07-10", expected: 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := ParseDateKey(tt.day)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, day.DaysFrom(now))
		})
	}
}

func TestWithinForecastRange(t *testing.T) {
	now := time.Date(2024, 7, 10, 9, 0, 0, 0, time.Local)

	tests := []struct {
		name     string
		day      string
		expected bool
	}{
		{name: "today is in range", day: "2024-07-10", expected: true},
		{name: "horizon boundary is in range", day: "2024-07-17", expected: true},
		{name: "one past the horizon", day: "2024-07-18", expected: false},
		{name: "yesterday is out of range", day: "2024-07-09", expected: false},
		{name: "far future", day: "2024-09-01", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := ParseDateKey(tt.day)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, WithinForecastRange(day, now, DefaultForecastHorizonDays))
		})
	}
}

func TestAddDays(t *testing.T) {
	day, err := ParseDateKey("2024-02-28")
	require.NoError(t, err)

	assert.Equal(t, "2024-02-29", day.AddDays(1).Key())
	assert.Equal(t, "2024-03-01", day.AddDays(2).Key())
	assert.Equal(t, "2024-02-27", day.AddDays(-1).Key())
}
