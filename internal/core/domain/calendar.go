// Package domain contains the core entities and rules of the weather
// resolution engine: calendar days, forecast entries, match results,
// resolved weather records, and the error taxonomy. Nothing in this
// package depends on transports, providers, or infrastructure.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateKeyLayout is the canonical string form of a calendar day.
const DateKeyLayout = "2006-01-02"

// DefaultForecastHorizonDays is the number of days from today (inclusive)
// for which a live forecast is considered available. Every component that
// needs the forecast range threads this single value through configuration;
// no component defines its own threshold.
const DefaultForecastHorizonDays = 7

// CalendarDay is a date stripped to local-midnight precision. Its identity
// is its YYYY-MM-DD key. The zero value is not a valid day.
type CalendarDay struct {
	t time.Time
}

// Normalize strips the time-of-day from t using its local calendar fields
// (year, month, day) rather than a UTC conversion, so a late-evening
// timestamp never drifts into the neighboring day.
func Normalize(t time.Time) (CalendarDay, error) {
	if t.IsZero() {
		return CalendarDay{}, NewInvalidDateError(fmt.Errorf("zero time"))
	}

	year, month, day := t.Date()

	return CalendarDay{
		t: time.Date(year, month, day, 0, 0, 0, 0, t.Location()),
	}, nil
}

// ParseDateKey parses a YYYY-MM-DD key into a CalendarDay in local time.
func ParseDateKey(key string) (CalendarDay, error) {
	t, err := time.ParseInLocation(DateKeyLayout, key, time.Local)

	if err != nil {
		return CalendarDay{}, NewInvalidDateError(err)
	}

	return CalendarDay{t: t}, nil
}

// Key returns the YYYY-MM-DD identity of the day.
func (d CalendarDay) Key() string {
	return d.t.Format(DateKeyLayout)
}

// Time returns the local-midnight instant of the day.
func (d CalendarDay) Time() time.Time {
	return d.t
}

// IsZero reports whether the day is the invalid zero value.
func (d CalendarDay) IsZero() bool {
	return d.t.IsZero()
}

// Month returns the calendar month of the day.
func (d CalendarDay) Month() time.Month {
	return d.t.Month()
}

// DayOfMonth returns the day-of-month (1..31).
func (d CalendarDay) DayOfMonth() int {
	return d.t.Day()
}

// AddDays returns the day shifted by n calendar days.
func (d CalendarDay) AddDays(n int) CalendarDay {
	return CalendarDay{t: d.t.AddDate(0, 0, n)}
}

// Equal reports whether two days identify the same calendar date.
func (d CalendarDay) Equal(other CalendarDay) bool {
	return d.Key() == other.Key()
}

// MarshalJSON encodes the day as its quoted YYYY-MM-DD key.
func (d CalendarDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Key() + `"`), nil
}

// UnmarshalJSON decodes a quoted YYYY-MM-DD key.
func (d *CalendarDay) UnmarshalJSON(data []byte) error {
	var key string

	if err := json.Unmarshal(data, &key); err != nil {
		return err
	}

	parsed, err := ParseDateKey(key)

	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

// epochDays maps a calendar date to a day count independent of time zone
// and DST shifts, so day arithmetic is exact.
func epochDays(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// DaysFrom returns the signed number of calendar days from now's date to
// this day. Today yields 0, tomorrow 1, yesterday -1.
func (d CalendarDay) DaysFrom(now time.Time) int {
	ny, nm, nd := now.Date()
	dy, dm, dd := d.t.Date()

	return int(epochDays(dy, dm, dd) - epochDays(ny, nm, nd))
}

// DaysFromToday is DaysFrom measured against the wall clock.
func (d CalendarDay) DaysFromToday() int {
	return d.DaysFrom(time.Now())
}

// WithinForecastRange reports whether the day falls inside the live
// forecast horizon: at least today, at most horizonDays ahead.
func WithinForecastRange(d CalendarDay, now time.Time, horizonDays int) bool {
	offset := d.DaysFrom(now)

	return offset >= 0 && offset <= horizonDays
}
