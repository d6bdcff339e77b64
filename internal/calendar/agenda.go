package calendar

import (
	"slices"

	"ratskal/internal/model"
)

// AgendaDay is one entry of the list view: a day with at least one meeting.
type AgendaDay struct {
	Date     DayKey          `json:"date"`
	Meetings []model.Meeting `json:"meetings"`
}

// Agenda returns the days of month c that have meetings, in date order.
// It backs the compact list view used on narrow screens.
func Agenda(c Cursor, b Buckets) []AgendaDay {
	keys := make([]DayKey, 0, len(b))
	for k, ms := range b {
		if len(ms) == 0 || !c.Contains(k) {
			continue
		}
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y DayKey) int {
		switch {
		case x.Before(y):
			return -1
		case y.Before(x):
			return 1
		default:
			return 0
		}
	})

	out := make([]AgendaDay, 0, len(keys))
	for _, k := range keys {
		out = append(out, AgendaDay{Date: k, Meetings: b[k]})
	}
	return out
}
