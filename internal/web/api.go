package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"ratskal/internal/calendar"
	"ratskal/internal/ics"
	appLog "ratskal/internal/log"
	"ratskal/internal/model"
)

// maxFeedMonths bounds /export/calendar.ics so one request cannot fan out
// into years of backend calls.
const maxFeedMonths = 24

// calendarResponse is the JSON response shape for /api/calendar.
type calendarResponse struct {
	Month    string               `json:"month"`
	Title    string               `json:"title"`
	Timezone string               `json:"timezone"`
	Prev     string               `json:"prev"`
	Next     string               `json:"next"`
	Weekdays []string             `json:"weekdays"`
	Weeks    [][]calendar.DayCell `json:"weeks"`
}

// agendaResponse is the JSON response shape for /api/agenda.
type agendaResponse struct {
	Month    string               `json:"month"`
	Timezone string               `json:"timezone"`
	Days     []calendar.AgendaDay `json:"days"`
}

// handleCalendarAPI returns the month grid.
//
// GET /api/calendar?month=2025-03
func (s *Server) handleCalendarAPI(w http.ResponseWriter, r *http.Request) {
	c, err := s.cursorParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ms, err := s.Meetings(r.Context(), c)
	if err != nil {
		appLog.Error("api calendar: loading meetings failed", err, "month", c.String())
		writeError(w, http.StatusBadGateway, "failed to load meetings")
		return
	}

	g := calendar.Build(c, s.bucket(ms))
	writeJSON(w, http.StatusOK, calendarResponse{
		Month:    c.String(),
		Title:    c.Title(),
		Timezone: s.loc.String(),
		Prev:     c.Prev().String(),
		Next:     c.Next().String(),
		Weekdays: calendar.WeekdayNames[:],
		Weeks:    g.Weeks(),
	})
}

// handleAgendaAPI returns the days of a month that have meetings, sorted
// by date and by start within each day.
//
// GET /api/agenda?month=2025-03
func (s *Server) handleAgendaAPI(w http.ResponseWriter, r *http.Request) {
	c, err := s.cursorParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ms, err := s.Meetings(r.Context(), c)
	if err != nil {
		appLog.Error("api agenda: loading meetings failed", err, "month", c.String())
		writeError(w, http.StatusBadGateway, "failed to load meetings")
		return
	}

	days := calendar.Agenda(c, s.bucket(ms).SortByStart(s.loc))
	writeJSON(w, http.StatusOK, agendaResponse{
		Month:    c.String(),
		Timezone: s.loc.String(),
		Days:     days,
	})
}

// handleFeed serves the iCalendar subscription feed.
//
// GET /export/calendar.ics?from=2025-01&to=2025-06
//   - from: first month (default: previous month)
//   - to:   last month, inclusive (default: six months ahead)
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := calendar.Today(s.now(), s.loc)

	from := now.Prev()
	if raw := q.Get("from"); raw != "" {
		c, err := calendar.ParseCursor(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		from = c
	}
	to := now
	for range 6 {
		to = to.Next()
	}
	if raw := q.Get("to"); raw != "" {
		c, err := calendar.ParseCursor(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		to = c
	}

	ms, err := s.MeetingsBetween(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, ErrMonthRange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		appLog.Error("feed: loading meetings failed", err, "from", from.String(), "to", to.String())
		http.Error(w, "failed to load meetings", http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	err = ics.WriteFeed(&buf, ms, ics.ExportOptions{
		Name:     s.cfg.CalendarName,
		Location: s.loc,
		BaseURL:  s.cfg.PublicURL,
		Now:      s.now(),
	})
	if err != nil {
		appLog.Error("feed: serialization failed", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	_, _ = w.Write(buf.Bytes())
}

// ErrMonthRange is returned by MeetingsBetween for empty or oversized ranges.
var ErrMonthRange = errors.New("web: invalid month range")

// MeetingsBetween collects the meetings of months from..to (inclusive) in
// date order. Each month contributes only meetings falling on its own days,
// so sources that ignore the requested window do not produce duplicates.
func (s *Server) MeetingsBetween(ctx context.Context, from, to calendar.Cursor) ([]model.Meeting, error) {
	months := (to.Year-from.Year)*12 + int(to.Month) - int(from.Month) + 1
	if months < 1 || months > maxFeedMonths {
		return nil, fmt.Errorf("%w: %s..%s (at most %d months)", ErrMonthRange, from, to, maxFeedMonths)
	}

	var out []model.Meeting
	var errs []error
	c := from
	for range months {
		ms, err := s.Meetings(ctx, c)
		if err != nil {
			errs = append(errs, err)
		} else {
			for _, day := range calendar.Agenda(c, s.bucket(ms).SortByStart(s.loc)) {
				out = append(out, day.Meetings...)
			}
		}
		c = c.Next()
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
