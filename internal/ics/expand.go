package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "ratskal/internal/log"
	"ratskal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig controls how recurring sessions are unrolled into meetings.
type ExpandConfig struct {
	// DisplayLocation is the zone in which meeting start/end are rendered.
	// If nil, UTC is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway RRULEs. Zero means the default.
	MaxOccurrencesPerEvent int
}

// ExpandMeetings turns parsed feed events into meetings starting inside the
// window. RRULE series are expanded with EXDATE removal and RECURRENCE-ID
// overrides replace the matching instance.
// The output follows the order of events; instances of a series are in
// chronological order.
func ExpandMeetings(events []ParsedEvent, cfg ExpandConfig) ([]model.Meeting, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("ics: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.UTC
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		}
	}

	out := make([]model.Meeting, 0, len(events))
	for _, ev := range events {
		if ev.IsOverride {
			continue
		}
		ov := overridesByUID[ev.UID]
		if ev.RawRRule == "" {
			out = append(out, expandSingle(ev, ov, cfg)...)
			continue
		}
		occ, hitCap := expandRecurring(ev, ov, cfg)
		if hitCap {
			appLog.Error("ics: truncated recurring meeting series",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
		out = append(out, occ...)
	}
	return out, nil
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Meeting {
	if o, ok := findOverride(overrides, ev.Start); ok {
		ev = o
	}
	if ev.Start.Before(cfg.RangeStart) || ev.Start.After(cfg.RangeEnd) {
		return nil
	}
	return []model.Meeting{toMeeting(ev, ev.Start, ev.End, false, cfg.DisplayLocation)}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Meeting, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	occTimes := set.Between(
		cfg.RangeStart.In(ev.Start.Location()),
		cfg.RangeEnd.In(ev.Start.Location()),
		true,
	)
	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	if ev.End.IsZero() || dur < 0 {
		dur = 0
	}

	out := make([]model.Meeting, 0, len(occTimes))
	for _, occStart := range occTimes {
		base, start, end := ev, occStart, occStart.Add(dur)
		if o, ok := findOverride(overrides, occStart); ok {
			base, start, end = o, o.Start, o.End
		}
		out = append(out, toMeeting(base, start, end, true, cfg.DisplayLocation))
	}
	return out, hitCap
}

// findOverride returns the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// statusToState maps iCalendar STATUS back to meeting states; it is the
// inverse of the mapping used by the export feed.
func statusToState(status string) model.MeetingState {
	switch status {
	case "CANCELLED":
		return model.StateCancelled
	case "CONFIRMED":
		return model.StateCompleted
	default:
		return model.StateScheduled
	}
}

func toMeeting(ev ParsedEvent, start, end time.Time, instance bool, loc *time.Location) model.Meeting {
	startLocal := start.In(loc)
	id := ev.UID
	if instance {
		// Series share a UID; the start makes each instance unique.
		id = ev.UID + "/" + startLocal.Format("20060102T1504")
	}

	m := model.Meeting{
		ID:               id,
		Name:             ev.Summary,
		Start:            startLocal.Format(time.RFC3339),
		State:            statusToState(ev.Status),
		Cancelled:        ev.Status == "CANCELLED",
		OrganizationName: ev.Categories,
		Location:         ev.Location,
		Web:              ev.URL,
	}
	if ev.AllDay {
		m.Start = startLocal.Format(time.DateOnly)
	}
	if !end.IsZero() && !ev.AllDay {
		m.End = end.In(loc).Format(time.RFC3339)
	}
	if m.Name == "" {
		m.Name = "Sitzung"
	}
	return m
}
