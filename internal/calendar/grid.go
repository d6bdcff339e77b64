package calendar

import (
	"fmt"
	"time"

	"ratskal/internal/model"
)

// DaysPerWeek is the row width of a MonthGrid.
const DaysPerWeek = 7

// DayCell is one cell of the month grid.
type DayCell struct {
	Date           DayKey          `json:"date"`
	IsCurrentMonth bool            `json:"is_current_month"`
	Meetings       []model.Meeting `json:"meetings"`
}

// MonthGrid is the rendered month: whole Monday-first weeks covering every
// day of (Year, Month) plus padding days from the neighbouring months.
type MonthGrid struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Cells []DayCell  `json:"cells"`
}

// Weeks splits the cells into rows of seven.
func (g MonthGrid) Weeks() [][]DayCell {
	rows := make([][]DayCell, 0, len(g.Cells)/DaysPerWeek)
	for i := 0; i+DaysPerWeek <= len(g.Cells); i += DaysPerWeek {
		rows = append(rows, g.Cells[i:i+DaysPerWeek])
	}
	return rows
}

// Cursor returns the month the grid was built for.
func (g MonthGrid) Cursor() Cursor {
	return Cursor{Year: g.Year, Month: g.Month}
}

// DaysIn returns the number of days in the given month, honouring Gregorian
// leap years.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// isoWeekday maps Sunday to 7 so weeks start on Monday (1).
func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// Build lays out the month of c. Each cell carries the meetings bucketed
// under its day, or an empty slice.
//
// c must be valid (month 1..12); anything else is a caller bug and panics.
func Build(c Cursor, b Buckets) MonthGrid {
	if !c.Valid() {
		panic(fmt.Sprintf("calendar: Build called with invalid cursor %d-%d", c.Year, int(c.Month)))
	}

	first := DayKey{Year: c.Year, Month: c.Month, Day: 1}
	days := DaysIn(c.Year, c.Month)
	leading := isoWeekday(first.Weekday()) - 1

	total := leading + days
	trailing := (DaysPerWeek - total%DaysPerWeek) % DaysPerWeek

	cells := make([]DayCell, 0, total+trailing)

	// Previous month, oldest first.
	for i := leading; i > 0; i-- {
		cells = append(cells, newCell(first.AddDays(-i), false, b))
	}
	for d := 1; d <= days; d++ {
		cells = append(cells, newCell(DayKey{Year: c.Year, Month: c.Month, Day: d}, true, b))
	}
	last := DayKey{Year: c.Year, Month: c.Month, Day: days}
	for i := 1; i <= trailing; i++ {
		cells = append(cells, newCell(last.AddDays(i), false, b))
	}

	return MonthGrid{Year: c.Year, Month: c.Month, Cells: cells}
}

func newCell(k DayKey, inMonth bool, b Buckets) DayCell {
	return DayCell{Date: k, IsCurrentMonth: inMonth, Meetings: b.On(k)}
}
