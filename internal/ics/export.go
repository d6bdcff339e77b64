package ics

import (
	"io"
	"net/url"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"ratskal/internal/calendar"
	"ratskal/internal/model"
)

// defaultDuration is assumed when a meeting has no end.
const defaultDuration = 2 * time.Hour

// ExportOptions describes the published subscription feed.
type ExportOptions struct {
	// Name is shown by calendar clients (X-WR-CALNAME).
	Name string
	// Location is the municipal zone announced via X-WR-TIMEZONE and used
	// for naive timestamps.
	Location *time.Location
	// BaseURL, when set, produces URL:{BaseURL}/sitzungen/{id} with the
	// short route id of the meeting.
	BaseURL string
	// UIDDomain is appended to meeting ids to form globally unique UIDs.
	UIDDomain string
	// Now stamps DTSTAMP; zero means time.Now.
	Now time.Time
}

// BuildFeed renders meetings as a PUBLISH calendar. Meetings whose start
// cannot be parsed are left out, matching the calendar grid.
func BuildFeed(meetings []model.Meeting, opts ExportOptions) *ical.Calendar {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.UIDDomain == "" {
		opts.UIDDomain = "ratskal"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cal := ical.NewCalendarFor("ratskal")
	cal.SetMethod(ical.MethodPublish)
	cal.SetCalscale("GREGORIAN")
	cal.SetXWRCalName(opts.Name)
	cal.SetXWRTimezone(opts.Location.String())
	cal.SetRefreshInterval("PT1H")

	for _, m := range meetings {
		start, err := calendar.ParseTimestamp(m.Start, opts.Location)
		if err != nil {
			continue
		}

		ev := cal.AddEvent(m.ID + "@" + opts.UIDDomain)
		ev.SetDtStampTime(opts.Now)
		if isDateOnly(m.Start) {
			// DTEND is exclusive for dates.
			ev.SetAllDayStartAt(start)
			ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		} else {
			end, err := calendar.ParseTimestamp(m.End, opts.Location)
			if err != nil || !end.After(start) {
				end = start.Add(defaultDuration)
			}
			ev.SetStartAt(start)
			ev.SetEndAt(end)
		}
		ev.SetSummary(m.Name)
		if m.Location != "" {
			ev.SetLocation(m.Location)
		}
		if m.OrganizationName != "" {
			ev.AddCategory(m.OrganizationName)
		}
		if opts.BaseURL != "" {
			ev.SetURL(strings.TrimRight(opts.BaseURL, "/") + "/sitzungen/" + url.PathEscape(model.ShortID(m.ID)))
		}

		switch {
		case m.Cancelled || m.State == model.StateCancelled:
			ev.SetStatus(ical.ObjectStatusCancelled)
			ev.SetDescription("ABGESAGT")
		case m.State == model.StateCompleted:
			ev.SetStatus(ical.ObjectStatusConfirmed)
		default:
			ev.SetStatus(ical.ObjectStatusTentative)
		}
	}
	return cal
}

func isDateOnly(ts string) bool {
	return len(strings.TrimSpace(ts)) == len(time.DateOnly)
}

// WriteFeed serializes the feed with CRLF line endings.
func WriteFeed(w io.Writer, meetings []model.Meeting, opts ExportOptions) error {
	return BuildFeed(meetings, opts).SerializeTo(w, ical.WithNewLine("\r\n"))
}
