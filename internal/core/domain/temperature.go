package domain

import (
	"errors"
	"math"
)

// Temperatures outside this band (degrees Celsius) are treated as sensor
// garbage rather than data.
const (
	MinSaneTemperature = -150.0
	MaxSaneTemperature = 150.0
)

// ErrNotDisplayable reports that an entry carries no temperature shape the
// extractor can turn into displayable values. Callers must treat this as a
// hard failure of the entry, never coerce it to zero.
var ErrNotDisplayable = errors.New("no displayable temperature data")

// TemperatureReading is the reconciled {current, high, low} triple derived
// from whichever temperature shape the provider sent.
type TemperatureReading struct {
	Current float64
	High    float64
	Low     float64

	// SpreadEstimated is set when high/low were synthesized around a single
	// reported value rather than reported by the provider.
	SpreadEstimated bool
}

// Displayable reports whether at least one of the triple's values is a
// finite number within the sane physical range.
func (t TemperatureReading) Displayable() bool {
	return saneTemperature(t.Current) || saneTemperature(t.High) || saneTemperature(t.Low)
}

func saneTemperature(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}

	return v >= MinSaneTemperature && v <= MaxSaneTemperature
}

// syntheticSpread is the ± band applied around a lone temperature value
// when the provider reports no high/low pair.
const syntheticSpread = 10.0

// ExtractTemperature reconciles the heterogeneous temperature shapes of a
// forecast entry into one reading. Shapes are tried in priority order:
// explicit high/low pair, single value with a synthetic spread, then the
// nested day object. An entry with none of them fails with
// ErrNotDisplayable.
func ExtractTemperature(entry *ForecastEntry) (TemperatureReading, error) {
	if entry == nil {
		return TemperatureReading{}, ErrNotDisplayable
	}

	switch {
	case entry.High != nil && entry.Low != nil:
		return fromPair(*entry.High, *entry.Low)

	case entry.Temperature != nil:
		current := *entry.Temperature
		reading := TemperatureReading{
			Current:         current,
			High:            current + syntheticSpread,
			Low:             current - syntheticSpread,
			SpreadEstimated: true,
		}

		if !reading.Displayable() {
			return TemperatureReading{}, ErrNotDisplayable
		}

		return reading, nil

	case entry.Day != nil && entry.Day.High != nil && entry.Day.Low != nil:
		return fromPair(*entry.Day.High, *entry.Day.Low)

	default:
		return TemperatureReading{}, ErrNotDisplayable
	}
}

func fromPair(high, low float64) (TemperatureReading, error) {
	if high < low {
		high, low = low, high
	}

	reading := TemperatureReading{
		Current: math.Round((high + low) / 2),
		High:    high,
		Low:     low,
	}

	if !reading.Displayable() {
		return TemperatureReading{}, ErrNotDisplayable
	}

	return reading, nil
}
