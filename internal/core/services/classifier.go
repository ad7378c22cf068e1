package services

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
	"github.com/tripweather/weather-engine/internal/core/events"
)

// Display labels attached to classified records.
const (
	LabelLiveForecast     = "Live forecast"
	LabelSeasonalEstimate = "Seasonal estimate"
)

// Classification is the classifier's verdict on a record's provenance.
type Classification struct {
	IsLiveForecast bool
	Confidence     domain.Confidence
	DisplayLabel   string
	Explanation    string
}

// Source maps the verdict to the record source it implies.
func (c Classification) Source() domain.Source {
	if c.IsLiveForecast {
		return domain.SourceLiveForecast
	}

	return domain.SourceHistoricalFallback
}

// SourceClassifier decides whether a record counts as a live forecast or a
// historical estimate. The date-range rule is authoritative: a target day
// inside the forecast horizon with a usable match is live, everything else
// is historical. Provider-supplied provenance indicators are consulted only
// to detect disagreement (logged as a warning, never acted on) or, via
// ClassifyEntry, when no target date exists at all.
type SourceClassifier struct {
	horizonDays int
	now         func() time.Time
	logger      *zap.Logger
	bus         *events.Bus
}

// NewSourceClassifier creates a classifier with the given forecast horizon.
func NewSourceClassifier(horizonDays int, logger *zap.Logger, bus *events.Bus) *SourceClassifier {
	return &SourceClassifier{
		horizonDays: horizonDays,
		now:         time.Now,
		logger:      logger,
		bus:         bus,
	}
}

// WithClock overrides the classifier's wall clock. Tests use this to pin
// "today".
func (c *SourceClassifier) WithClock(now func() time.Time) *SourceClassifier {
	c.now = now
	return c
}

// Classify applies the date-based primary rule for the target day and its
// match result.
func (c *SourceClassifier) Classify(target domain.CalendarDay, match domain.MatchResult) Classification {
	offset := target.DaysFrom(c.now())
	inRange := domain.WithinForecastRange(target, c.now(), c.horizonDays)

	if inRange && match.Usable() {
		c.checkIndicatorAgreement(target, match, true)

		return Classification{
			IsLiveForecast: true,
			Confidence:     domain.ConfidenceHigh,
			DisplayLabel:   LabelLiveForecast,
			Explanation:    fmt.Sprintf("matched provider data %d day(s) ahead via %s match", offset, match.Type),
		}
	}

	if inRange {
		// Inside the horizon but nothing usable: fall through to historical.
		return Classification{
			IsLiveForecast: false,
			Confidence:     domain.ConfidenceLow,
			DisplayLabel:   LabelSeasonalEstimate,
			Explanation:    "date is within the forecast range but no usable provider entry matched",
		}
	}

	c.checkIndicatorAgreement(target, match, false)

	return Classification{
		IsLiveForecast: false,
		Confidence:     domain.ConfidenceLow,
		DisplayLabel:   LabelSeasonalEstimate,
		Explanation:    fmt.Sprintf("date is %d day(s) from today, outside the %d-day forecast range", offset, c.horizonDays),
	}
}

// ClassifyEntry is the explicit-indicator fallback, used only when no
// target date is available. An entry is treated as live when it carries an
// explicit forecast tag or a rich metrics set.
func (c *SourceClassifier) ClassifyEntry(entry *domain.ForecastEntry) Classification {
	if entry != nil && entryLooksLive(entry) {
		return Classification{
			IsLiveForecast: true,
			Confidence:     domain.ConfidenceMedium,
			DisplayLabel:   LabelLiveForecast,
			Explanation:    "entry carries forecast provenance indicators; no target date available",
		}
	}

	return Classification{
		IsLiveForecast: false,
		Confidence:     domain.ConfidenceLow,
		DisplayLabel:   LabelSeasonalEstimate,
		Explanation:    "entry carries no forecast provenance indicators",
	}
}

// checkIndicatorAgreement compares the authoritative date-range verdict
// against the entry's own indicators and records a warning when they
// disagree. The verdict is never changed; the disagreement is a
// data-quality signal.
func (c *SourceClassifier) checkIndicatorAgreement(target domain.CalendarDay, match domain.MatchResult, dateSaysLive bool) {
	if match.Entry == nil {
		return
	}

	indicatorSaysLive := entryLooksLive(match.Entry)

	if indicatorSaysLive == dateSaysLive {
		return
	}

	c.logger.Warn("source classification disagreement",
		zap.String("date_key", target.Key()),
		zap.Bool("date_rule_live", dateSaysLive),
		zap.Bool("indicator_live", indicatorSaysLive),
		zap.String("match_type", string(match.Type)))

	c.bus.Publish(events.Event{
		Type:    events.TypeClassificationWarning,
		DateKey: target.Key(),
		Fields: map[string]interface{}{
			"date_rule_live": dateSaysLive,
			"indicator_live": indicatorSaysLive,
			"match_type":     string(match.Type),
		},
	})
}

// entryLooksLive applies the indicator heuristic: an explicit forecast tag,
// or humidity, wind, and precipitation all present.
func entryLooksLive(entry *domain.ForecastEntry) bool {
	if entry.ForecastTagged {
		return true
	}

	return entry.Humidity != nil && entry.WindSpeed != nil && entry.PrecipitationChance != nil
}
