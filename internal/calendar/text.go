package calendar

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// WeekdayNames are the Monday-first column headers.
var WeekdayNames = [DaysPerWeek]string{"Mo", "Di", "Mi", "Do", "Fr", "Sa", "So"}

var monthNames = [12]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// MonthName returns the German month name.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return m.String()
	}
	return monthNames[m-1]
}

// Title is the heading shown above a grid, e.g. "Januar 2025".
func (c Cursor) Title() string {
	return fmt.Sprintf("%s %d", MonthName(c.Month), c.Year)
}

// WriteText renders the grid as a plain text table, one week per line.
// Out-of-month days are wrapped in parentheses and a day with meetings is
// suffixed with "*n".
func WriteText(w io.Writer, g MonthGrid) error {
	if _, err := fmt.Fprintln(w, g.Cursor().Title()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintln(tw, strings.Join(WeekdayNames[:], "\t")+"\t"); err != nil {
		return err
	}
	for _, week := range g.Weeks() {
		cols := make([]string, 0, DaysPerWeek)
		for _, cell := range week {
			s := fmt.Sprintf("%d", cell.Date.Day)
			if len(cell.Meetings) > 0 {
				s += fmt.Sprintf("*%d", len(cell.Meetings))
			}
			if !cell.IsCurrentMonth {
				s = "(" + s + ")"
			}
			cols = append(cols, s)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cols, "\t")+"\t"); err != nil {
			return err
		}
	}
	return tw.Flush()
}
