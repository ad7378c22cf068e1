package services

import (
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
	"github.com/tripweather/weather-engine/internal/core/events"
)

// Physical clamps applied to every synthesized value.
const (
	minSynthTemperature = -60.0
	maxSynthTemperature = 60.0
)

// sinusoidAmplitude and sinusoidPeriod shape the day-of-month variation so
// consecutive days inside the same month are not identical.
const (
	sinusoidAmplitude = 3.0
	sinusoidPeriod    = 31.0
)

// monthlyProfile is one month of a place's seasonal climate profile.
type monthlyProfile struct {
	LowC      float64
	HighC     float64
	Condition string
	Icon      string
	Humidity  int
	WindMS    float64
	PrecipPct int
}

// FallbackSynthesizer produces a historical/seasonal weather record for a
// place and day when no live data is usable. Output is a pure function of
// (place, day): bit-for-bit identical across calls and restarts.
type FallbackSynthesizer struct {
	logger *zap.Logger
	bus    *events.Bus
}

// NewFallbackSynthesizer creates a synthesizer.
func NewFallbackSynthesizer(logger *zap.Logger, bus *events.Bus) *FallbackSynthesizer {
	return &FallbackSynthesizer{
		logger: logger,
		bus:    bus,
	}
}

// Synthesize builds the fallback record for the place and day.
func (s *FallbackSynthesizer) Synthesize(place string, day domain.CalendarDay) *domain.WeatherRecord {
	profile, known := profileFor(place)
	month := profile[day.Month()-1]

	// Day-of-month sinusoid keeps neighboring days visibly distinct.
	phase := 2 * math.Pi * float64(day.DayOfMonth()) / sinusoidPeriod
	drift := sinusoidAmplitude * math.Sin(phase)

	variation := VariationFor(place, day.Key())

	high := clampTemperature(month.HighC + drift + variation.Temperature)
	low := clampTemperature(month.LowC + drift + variation.Temperature)

	if high < low {
		high, low = low, high
	}

	confidence := domain.ConfidenceLow

	if known {
		confidence = domain.ConfidenceMedium
	}

	record := &domain.WeatherRecord{
		ID:                  deterministicID(place, day),
		Place:               place,
		ForecastDate:        day,
		Current:             math.Round((high + low) / 2),
		High:                high,
		Low:                 low,
		Description:         month.Condition,
		Icon:                month.Icon,
		Humidity:            clampInt(month.Humidity+variation.Humidity, 0, 100),
		WindSpeed:           clampFloat(month.WindMS+variation.WindSpeed, 0, 80),
		PrecipitationChance: clampInt(month.PrecipPct+variation.Precipitation, 0, 100),
		IsLiveForecast:      false,
		Source:              domain.SourceHistoricalFallback,
		Confidence:          confidence,
		DisplayLabel:        LabelSeasonalEstimate,
		MatchInfo: domain.MatchResult{
			Type:       domain.MatchNone,
			Confidence: confidence,
		},
	}

	s.bus.Publish(events.Event{
		Type:    events.TypeFallbackUsed,
		Place:   place,
		DateKey: day.Key(),
		Fields: map[string]interface{}{
			"known_profile": known,
			"confidence":    string(confidence),
		},
	})

	s.logger.Debug("synthesized fallback record",
		zap.String("place", place),
		zap.String("date_key", day.Key()),
		zap.Bool("known_profile", known))

	return record
}

// deterministicID derives the record ID from the input key so the whole
// record, ID included, is reproducible.
func deterministicID(place string, day domain.CalendarDay) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(canonicalPlaceKey(place)+"|"+day.Key()))
}

func clampTemperature(v float64) float64 {
	return clampFloat(v, minSynthTemperature, maxSynthTemperature)
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}

	if v > max {
		return max
	}

	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}

	if v > max {
		return max
	}

	return v
}
