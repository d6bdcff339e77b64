package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Cursor points at one calendar month. Month is 1-based.
type Cursor struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// Valid reports whether Month is within January..December.
func (c Cursor) Valid() bool {
	return c.Month >= time.January && c.Month <= time.December
}

// Next moves one month forward, rolling December into January.
func (c Cursor) Next() Cursor {
	if c.Month == time.December {
		return Cursor{Year: c.Year + 1, Month: time.January}
	}
	return Cursor{Year: c.Year, Month: c.Month + 1}
}

// Prev moves one month back, rolling January into December.
func (c Cursor) Prev() Cursor {
	if c.Month == time.January {
		return Cursor{Year: c.Year - 1, Month: time.December}
	}
	return Cursor{Year: c.Year, Month: c.Month - 1}
}

// Today returns the month containing now in loc (UTC when loc is nil).
func Today(now time.Time, loc *time.Location) Cursor {
	if loc == nil {
		loc = time.UTC
	}
	y, m, _ := now.In(loc).Date()
	return Cursor{Year: y, Month: m}
}

// Range returns midnight of the first and of the last day of the month in
// loc. Both ends are inclusive dates.
func (c Cursor) Range(loc *time.Location) (first, last time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	first = time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, loc)
	last = time.Date(c.Year, c.Month, DaysIn(c.Year, c.Month), 0, 0, 0, 0, loc)
	return first, last
}

// Contains reports whether day k lies in the cursor's month.
func (c Cursor) Contains(k DayKey) bool {
	return k.Year == c.Year && k.Month == c.Month
}

func (c Cursor) String() string {
	return fmt.Sprintf("%04d-%02d", c.Year, int(c.Month))
}

// ParseCursor parses "YYYY-MM".
func ParseCursor(s string) (Cursor, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Cursor{}, fmt.Errorf("calendar: invalid month %q (want YYYY-MM)", s)
	}
	return Cursor{Year: t.Year(), Month: t.Month()}, nil
}
