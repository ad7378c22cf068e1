package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source declares the provenance of a resolved weather record.
type Source string

const (
	// SourceLiveForecast marks a record derived from the provider's
	// forward-looking time series.
	SourceLiveForecast Source = "live_forecast"

	// SourceHistoricalFallback marks a synthesized seasonal estimate.
	SourceHistoricalFallback Source = "historical_fallback"
)

// MatchType identifies the strategy that aligned a provider sample to the
// requested calendar day.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchClosest  MatchType = "closest"
	MatchAdjacent MatchType = "adjacent"
	MatchFallback MatchType = "fallback"
	MatchNone     MatchType = "none"
)

// Confidence is a coarse quality signal attached to a resolved record.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Coordinates represent a geographic location.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Validate checks that the coordinates are within geographic bounds.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %f", c.Latitude)
	}

	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %f", c.Longitude)
	}

	return nil
}

// DaySummary is the nested forecast-day object some provider payloads carry
// instead of flat temperature fields.
type DaySummary struct {
	High *float64
	Low  *float64
}

// ForecastEntry is one sample from the provider's time series. Optional
// fields are pointers so an absent value is distinguishable from zero.
// Entries are read-only once built; they live only for the duration of a
// single resolution call.
type ForecastEntry struct {
	DateKey             string
	Timestamp           time.Time
	Temperature         *float64
	High                *float64
	Low                 *float64
	Day                 *DaySummary
	Description         string
	Icon                string
	Humidity            *int
	WindSpeed           *float64
	PrecipitationChance *int

	// ForecastTagged is set when the provider explicitly marks the sample
	// as forward-looking forecast data.
	ForecastTagged bool
}

// HasTemperature reports whether the entry carries any usable temperature
// shape at all.
func (e *ForecastEntry) HasTemperature() bool {
	if e == nil {
		return false
	}

	if e.Temperature != nil || (e.High != nil && e.Low != nil) {
		return true
	}

	return e.Day != nil && e.Day.High != nil && e.Day.Low != nil
}

// MatchResult describes how (and how well) a forecast entry was aligned to
// the requested day. It is produced once per resolution and never mutated.
type MatchResult struct {
	Entry       *ForecastEntry
	Type        MatchType
	DaysOffset  int
	HoursOffset float64
	Confidence  Confidence
}

// Usable reports whether the match carries an entry worth displaying.
func (m MatchResult) Usable() bool {
	return m.Entry != nil && m.Type != MatchNone
}

// WeatherRecord is the engine's output: one normalized weather report for a
// place and calendar day, with provenance and confidence declared so the
// consumer never has to guess why a number appears.
type WeatherRecord struct {
	ID                  uuid.UUID
	Place               string
	ForecastDate        CalendarDay
	Current             float64
	High                float64
	Low                 float64
	Description         string
	Icon                string
	Humidity            int
	WindSpeed           float64
	PrecipitationChance int
	IsLiveForecast      bool
	Source              Source
	Confidence          Confidence
	DisplayLabel        string
	MatchInfo           MatchResult
}

// Consistent reports whether the record's provenance fields agree. This is
// the engine-wide invariant: no record may claim live status off historical
// data or vice versa.
func (r *WeatherRecord) Consistent() bool {
	return r.IsLiveForecast == (r.Source == SourceLiveForecast)
}

// ResolutionRequest is the sole input contract of the engine. TargetDate is
// normalized to a CalendarDay before any comparison takes place.
type ResolutionRequest struct {
	Place      string
	TargetDate time.Time

	// Country optionally disambiguates geocoding results (ISO country code).
	Country string

	// APIKeyAvailable tells the engine whether a usable provider key is
	// configured. Without one the live path is skipped entirely.
	APIKeyAvailable bool
}
