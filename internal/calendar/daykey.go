// Package calendar builds the month grid shown by the council meeting
// calendar: timestamps are normalized to civil days, meetings are bucketed
// per day and laid out in Monday-first weeks.
//
// Everything in this package is pure. Callers pass the reference timezone
// explicitly; nothing here reads the process-local zone or the wall clock.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned by Normalize when the input cannot be read
// as a date.
var ErrInvalidTimestamp = errors.New("calendar: invalid timestamp")

const dayKeyLayout = "2006-01-02"

// DayKey identifies one civil calendar day. Two instants on the same civil
// day in the reference timezone always produce equal keys.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// KeyOf returns the civil day of t in t's own location.
func KeyOf(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

// Time returns midnight of the day in loc (UTC when loc is nil).
func (k DayKey) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

// Weekday is independent of any timezone.
func (k DayKey) Weekday() time.Weekday {
	return k.Time(time.UTC).Weekday()
}

// AddDays moves the key by n civil days.
func (k DayKey) AddDays(n int) DayKey {
	return KeyOf(k.Time(time.UTC).AddDate(0, 0, n))
}

// Before reports whether k is an earlier day than o.
func (k DayKey) Before(o DayKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Month != o.Month {
		return k.Month < o.Month
	}
	return k.Day < o.Day
}

func (k DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

func (k DayKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *DayKey) UnmarshalText(b []byte) error {
	t, err := time.Parse(dayKeyLayout, string(b))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimestamp, string(b))
	}
	*k = KeyOf(t)
	return nil
}

// ParseDayKey parses "YYYY-MM-DD".
func ParseDayKey(s string) (DayKey, error) {
	var k DayKey
	err := k.UnmarshalText([]byte(strings.TrimSpace(s)))
	return k, err
}

// Layouts carrying an explicit offset. The result is converted into the
// reference location.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

// Layouts without offset. They are interpreted in the reference location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	dayKeyLayout,
}

// Normalize converts a timestamp into the civil day it falls on in loc.
// A nil loc means UTC.
func Normalize(ts string, loc *time.Location) (DayKey, error) {
	t, err := ParseTimestamp(ts, loc)
	if err != nil {
		return DayKey{}, err
	}
	return KeyOf(t), nil
}

// ParseTimestamp parses ts and returns it expressed in loc.
func ParseTimestamp(ts string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, ts, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
}
