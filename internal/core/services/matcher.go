// Package services implements the resolution engine's core logic: forecast
// matching, source classification, fallback synthesis, and the fetch
// coordinator that ties them together.
package services

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/tripweather/weather-engine/internal/core/domain"
	"github.com/tripweather/weather-engine/internal/core/events"
)

// closestWindow bounds the "closest" strategy: entries farther than this
// from the target midnight are not considered close.
const closestWindow = 48 * time.Hour

// adjacentOffsets is the scan order for the adjacent-day strategy: closer
// days first, negative before positive on ties.
var adjacentOffsets = [4]int{-1, 1, -2, 2}

// ForecastMatcher selects the best forecast entry for a target calendar day
// using an ordered strategy cascade: exact, closest-in-time, adjacent-day,
// fallback-to-available, none. The first strategy that succeeds wins; an
// exact match is never overridden by a closer-looking candidate from a
// later strategy.
type ForecastMatcher struct {
	logger *zap.Logger
	bus    *events.Bus
}

// NewForecastMatcher creates a matcher.
func NewForecastMatcher(logger *zap.Logger, bus *events.Bus) *ForecastMatcher {
	return &ForecastMatcher{
		logger: logger,
		bus:    bus,
	}
}

// Match runs the strategy cascade over entries for the target day. The
// result always carries a match type; only the terminal "none" leaves the
// entry nil.
func (m *ForecastMatcher) Match(entries []domain.ForecastEntry, target domain.CalendarDay) domain.MatchResult {
	result := m.match(entries, target)

	m.bus.Publish(events.Event{
		Type:    events.TypeMatchSelected,
		DateKey: target.Key(),
		Fields: map[string]interface{}{
			"match_type":  string(result.Type),
			"days_offset": result.DaysOffset,
			"confidence":  string(result.Confidence),
			"entries":     len(entries),
		},
	})

	m.logger.Debug("forecast match selected",
		zap.String("date_key", target.Key()),
		zap.String("match_type", string(result.Type)),
		zap.Int("days_offset", result.DaysOffset),
		zap.Int("entries", len(entries)))

	return result
}

func (m *ForecastMatcher) match(entries []domain.ForecastEntry, target domain.CalendarDay) domain.MatchResult {
	if len(entries) == 0 {
		return domain.MatchResult{Type: domain.MatchNone, Confidence: domain.ConfidenceLow}
	}

	if result, ok := m.matchExact(entries, target); ok {
		return result
	}

	if result, ok := m.matchClosest(entries, target); ok {
		return result
	}

	if result, ok := m.matchAdjacent(entries, target); ok {
		return result
	}

	if result, ok := m.matchFallback(entries); ok {
		return result
	}

	return domain.MatchResult{Type: domain.MatchNone, Confidence: domain.ConfidenceLow}
}

// matchExact finds an entry whose date key equals the target's.
func (m *ForecastMatcher) matchExact(entries []domain.ForecastEntry, target domain.CalendarDay) (domain.MatchResult, bool) {
	key := target.Key()

	for i := range entries {
		if entries[i].DateKey == key {
			return domain.MatchResult{
				Entry:      &entries[i],
				Type:       domain.MatchExact,
				DaysOffset: 0,
				Confidence: domain.ConfidenceHigh,
			}, true
		}
	}

	return domain.MatchResult{}, false
}

// matchClosest picks the entry with the smallest absolute time distance
// from the target midnight, considering only entries within the 48-hour
// window. Distance is measured in real time, not calendar days.
func (m *ForecastMatcher) matchClosest(entries []domain.ForecastEntry, target domain.CalendarDay) (domain.MatchResult, bool) {
	targetTime := target.Time()

	bestIdx := -1
	var bestDiff time.Duration

	for i := range entries {
		if entries[i].Timestamp.IsZero() {
			continue
		}

		diff := entries[i].Timestamp.Sub(targetTime)

		if diff < 0 {
			diff = -diff
		}

		if diff > closestWindow {
			continue
		}

		if bestIdx < 0 || diff < bestDiff {
			bestIdx = i
			bestDiff = diff
		}
	}

	if bestIdx < 0 {
		return domain.MatchResult{}, false
	}

	confidence := domain.ConfidenceHigh

	if bestDiff > 24*time.Hour {
		confidence = domain.ConfidenceMedium
	}

	entry := &entries[bestIdx]
	daysOffset := 0

	if day, err := domain.ParseDateKey(entry.DateKey); err == nil {
		daysOffset = day.DaysFrom(targetTime)
	}

	return domain.MatchResult{
		Entry:       entry,
		Type:        domain.MatchClosest,
		DaysOffset:  daysOffset,
		HoursOffset: math.Abs(entry.Timestamp.Sub(targetTime).Hours()),
		Confidence:  confidence,
	}, true
}

// matchAdjacent scans fixed day offsets around the target, nearest first.
func (m *ForecastMatcher) matchAdjacent(entries []domain.ForecastEntry, target domain.CalendarDay) (domain.MatchResult, bool) {
	for _, offset := range adjacentOffsets {
		key := target.AddDays(offset).Key()

		for i := range entries {
			if entries[i].DateKey != key {
				continue
			}

			confidence := domain.ConfidenceMedium

			if offset < -1 || offset > 1 {
				confidence = domain.ConfidenceLow
			}

			return domain.MatchResult{
				Entry:      &entries[i],
				Type:       domain.MatchAdjacent,
				DaysOffset: offset,
				Confidence: confidence,
			}, true
		}
	}

	return domain.MatchResult{}, false
}

// matchFallback takes the first entry that has both a date and some
// temperature shape. Used only when every other strategy failed.
func (m *ForecastMatcher) matchFallback(entries []domain.ForecastEntry) (domain.MatchResult, bool) {
	for i := range entries {
		if entries[i].DateKey == "" || !entries[i].HasTemperature() {
			continue
		}

		return domain.MatchResult{
			Entry:      &entries[i],
			Type:       domain.MatchFallback,
			Confidence: domain.ConfidenceLow,
		}, true
	}

	return domain.MatchResult{}, false
}
