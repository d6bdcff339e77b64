package calendar

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratskal/internal/model"
)

func countFlags(g MonthGrid) (leading, inMonth, trailing int) {
	seenMonth := false
	for _, c := range g.Cells {
		switch {
		case c.IsCurrentMonth:
			inMonth++
			seenMonth = true
		case !seenMonth:
			leading++
		default:
			trailing++
		}
	}
	return leading, inMonth, trailing
}

func TestBuildJanuary2025(t *testing.T) {
	g := Build(Cursor{Year: 2025, Month: time.January}, nil)

	require.Len(t, g.Cells, 35)
	leading, inMonth, trailing := countFlags(g)
	assert.Equal(t, 2, leading)
	assert.Equal(t, 31, inMonth)
	assert.Equal(t, 2, trailing)

	assert.Equal(t, DayKey{2024, time.December, 30}, g.Cells[0].Date)
	assert.Equal(t, DayKey{2024, time.December, 31}, g.Cells[1].Date)
	assert.Equal(t, DayKey{2025, time.January, 1}, g.Cells[2].Date)
	assert.Equal(t, time.Wednesday, g.Cells[2].Date.Weekday())
	assert.Equal(t, DayKey{2025, time.February, 2}, g.Cells[34].Date)
}

func TestBuildLeadingCellsPerStartWeekday(t *testing.T) {
	// 2025 has a month starting on every weekday.
	tests := []struct {
		month   time.Month
		weekday time.Weekday
		leading int
	}{
		{time.September, time.Monday, 0},
		{time.April, time.Tuesday, 1},
		{time.January, time.Wednesday, 2},
		{time.May, time.Thursday, 3},
		{time.August, time.Friday, 4},
		{time.February, time.Saturday, 5},
		{time.June, time.Sunday, 6},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			g := Build(Cursor{Year: 2025, Month: tt.month}, nil)
			leading, _, _ := countFlags(g)
			assert.Equal(t, tt.leading, leading)
			first := g.Cells[leading].Date
			assert.Equal(t, tt.weekday, first.Weekday())
			assert.Equal(t, time.Monday, g.Cells[0].Date.Weekday())
		})
	}
}

func TestBuildTrailingCells(t *testing.T) {
	tests := []struct {
		name     string
		cursor   Cursor
		trailing int
		cells    int
	}{
		{"ends on sunday", Cursor{2025, time.August}, 0, 35},
		{"ends on monday", Cursor{2025, time.March}, 6, 42},
		{"ends on tuesday", Cursor{2023, time.February}, 5, 35},
		{"ends on wednesday", Cursor{2025, time.December}, 4, 35},
		{"ends on saturday", Cursor{2026, time.February}, 1, 35},
		{"four exact weeks", Cursor{2021, time.February}, 0, 28},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Build(tt.cursor, nil)
			_, _, trailing := countFlags(g)
			assert.Equal(t, tt.trailing, trailing)
			assert.Len(t, g.Cells, tt.cells)
		})
	}
}

func TestBuildMonthLengths(t *testing.T) {
	tests := []struct {
		cursor Cursor
		days   int
	}{
		{Cursor{2024, time.February}, 29},
		{Cursor{2023, time.February}, 28},
		{Cursor{2000, time.February}, 29},
		{Cursor{1900, time.February}, 28},
		{Cursor{2025, time.April}, 30},
		{Cursor{2025, time.July}, 31},
	}
	for _, tt := range tests {
		t.Run(tt.cursor.String(), func(t *testing.T) {
			_, inMonth, _ := countFlags(Build(tt.cursor, nil))
			assert.Equal(t, tt.days, inMonth)
			assert.Equal(t, tt.days, DaysIn(tt.cursor.Year, tt.cursor.Month))
		})
	}
}

func TestBuildYearRollover(t *testing.T) {
	jan := Build(Cursor{Year: 2026, Month: time.January}, nil)
	// 2026-01-01 is a Thursday.
	assert.Equal(t, DayKey{2025, time.December, 29}, jan.Cells[0].Date)
	assert.False(t, jan.Cells[0].IsCurrentMonth)

	dec := Build(Cursor{Year: 2025, Month: time.December}, nil)
	last := dec.Cells[len(dec.Cells)-1]
	assert.Equal(t, DayKey{2026, time.January, 4}, last.Date)
	assert.False(t, last.IsCurrentMonth)
}

func TestBuildInvariantsAllMonths(t *testing.T) {
	for year := 1999; year <= 2031; year++ {
		for month := time.January; month <= time.December; month++ {
			c := Cursor{Year: year, Month: month}
			g := Build(c, nil)

			require.Zero(t, len(g.Cells)%DaysPerWeek, c.String())
			require.GreaterOrEqual(t, len(g.Cells), DaysIn(year, month), c.String())
			require.Equal(t, time.Monday, g.Cells[0].Date.Weekday(), c.String())

			seen := make(map[DayKey]bool, len(g.Cells))
			var inMonth []int
			for i, cell := range g.Cells {
				require.False(t, seen[cell.Date], "duplicate %s in %s", cell.Date, c)
				seen[cell.Date] = true
				require.Equal(t, c.Contains(cell.Date), cell.IsCurrentMonth, cell.Date.String())
				if i > 0 {
					require.Equal(t, g.Cells[i-1].Date.AddDays(1), cell.Date, "gap before %s", cell.Date)
				}
				if cell.IsCurrentMonth {
					inMonth = append(inMonth, cell.Date.Day)
				}
				require.NotNil(t, cell.Meetings)
			}
			require.Len(t, inMonth, DaysIn(year, month))
			for i, d := range inMonth {
				require.Equal(t, i+1, d)
			}
		}
	}
}

func TestBuildAttachesBuckets(t *testing.T) {
	meetings := []model.Meeting{
		{ID: "rat", Start: "2025-01-15T17:00:00"},
		{ID: "bau", Start: "2025-01-15T18:30:00"},
		{ID: "prev", Start: "2024-12-31T10:00:00"},
		{ID: "next", Start: "2025-02-01T10:00:00"},
	}
	g := Build(Cursor{Year: 2025, Month: time.January}, Bucket(meetings, time.UTC))

	byDay := map[DayKey][]string{}
	for _, cell := range g.Cells {
		for _, m := range cell.Meetings {
			byDay[cell.Date] = append(byDay[cell.Date], m.ID)
		}
	}
	want := map[DayKey][]string{
		{2025, time.January, 15}:  {"rat", "bau"},
		{2024, time.December, 31}: {"prev"},
		{2025, time.February, 1}:  {"next"},
	}
	if diff := cmp.Diff(want, byDay); diff != "" {
		t.Errorf("meetings per cell mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildInvalidCursorPanics(t *testing.T) {
	assert.Panics(t, func() { Build(Cursor{Year: 2025, Month: 13}, nil) })
	assert.Panics(t, func() { Build(Cursor{Year: 2025, Month: 0}, nil) })
}

func TestWeeks(t *testing.T) {
	g := Build(Cursor{Year: 2025, Month: time.March}, nil)
	weeks := g.Weeks()
	require.Len(t, weeks, 6)
	for _, w := range weeks {
		assert.Len(t, w, DaysPerWeek)
		assert.Equal(t, time.Monday, w[0].Date.Weekday())
	}
}
