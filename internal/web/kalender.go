package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ratskal/internal/calendar"
	appLog "ratskal/internal/log"
	"ratskal/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/kalender.html"))

type pageData struct {
	CalendarName string
	Title        string
	Month        string

	PrevHref  string
	NextHref  string
	TodayHref string
	GridHref  string
	ListHref  string
	FeedHref  string

	List     bool
	Weekdays []string
	Weeks    [][]cellView
	Agenda   []dayView
	Selected *dayView

	Error string
}

type cellView struct {
	Day      int
	Date     string
	InMonth  bool
	Today    bool
	Selected bool
	Href     string
	Meetings []meetingView
	More     int
}

type dayView struct {
	Date     string
	Heading  string
	Meetings []meetingView
}

type meetingView struct {
	Name      string
	Time      string
	Org       string
	Location  string
	Label     string
	Color     string
	Href      string
	Cancelled bool
}

// handleKalender renders the month page.
//
// GET /kalender?month=2025-03&day=2025-03-05&view=list
//   - month: displayed month (default: current month in the municipal zone)
//   - day:   selected day for the sidebar; ignored outside the month
//   - view:  "list" switches to the agenda layout
func (s *Server) handleKalender(w http.ResponseWriter, r *http.Request) {
	c, err := s.cursorParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	list := q.Get("view") == "list"

	var selected *calendar.DayKey
	if k, err := calendar.ParseDayKey(q.Get("day")); err == nil && c.Contains(k) {
		selected = &k
	}

	status := http.StatusOK
	var data pageData
	ms, err := s.Meetings(r.Context(), c)
	if err != nil {
		appLog.Error("calendar page: loading meetings failed", err, "month", c.String())
		status = http.StatusBadGateway
		data.Error = "Die Sitzungen konnten nicht geladen werden."
	}
	b := s.bucket(ms).SortByStart(s.loc)

	s.fillPage(&data, c, b, list, selected)

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		appLog.Error("calendar page: template failed", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) fillPage(d *pageData, c calendar.Cursor, b calendar.Buckets, list bool, selected *calendar.DayKey) {
	today := calendar.KeyOf(s.now().In(s.loc))

	d.CalendarName = s.cfg.CalendarName
	d.Title = c.Title()
	d.Month = c.String()
	d.List = list
	// Navigation never carries the selected day over.
	d.PrevHref = monthHref(c.Prev(), list)
	d.NextHref = monthHref(c.Next(), list)
	d.TodayHref = monthHref(calendar.Cursor{}, list)
	d.GridHref = monthHref(c, false)
	d.ListHref = monthHref(c, true)
	d.FeedHref = "/export/calendar.ics"
	d.Weekdays = calendar.WeekdayNames[:]

	if list {
		for _, day := range calendar.Agenda(c, b) {
			d.Agenda = append(d.Agenda, s.dayView(day.Date, day.Meetings))
		}
		return
	}

	g := calendar.Build(c, b)
	limit := s.cfg.MaxPerDay
	for _, week := range g.Weeks() {
		row := make([]cellView, 0, calendar.DaysPerWeek)
		for _, cell := range week {
			cv := cellView{
				Day:     cell.Date.Day,
				Date:    cell.Date.String(),
				InMonth: cell.IsCurrentMonth,
				Today:   cell.Date == today,
			}
			if cell.IsCurrentMonth {
				cv.Href = dayHref(c, cell.Date)
				cv.Selected = selected != nil && *selected == cell.Date
			}
			shown := cell.Meetings
			if limit > 0 && len(shown) > limit {
				cv.More = len(shown) - limit
				shown = shown[:limit]
			}
			for _, m := range shown {
				cv.Meetings = append(cv.Meetings, s.meetingView(m))
			}
			row = append(row, cv)
		}
		d.Weeks = append(d.Weeks, row)
	}

	if selected != nil {
		dv := s.dayView(*selected, b.On(*selected))
		d.Selected = &dv
	}
}

func (s *Server) dayView(k calendar.DayKey, ms []model.Meeting) dayView {
	dv := dayView{Date: k.String(), Heading: dayHeading(k)}
	for _, m := range ms {
		dv.Meetings = append(dv.Meetings, s.meetingView(m))
	}
	return dv
}

func (s *Server) meetingView(m model.Meeting) meetingView {
	st := m.EffectiveState()
	return meetingView{
		Name:      m.Name,
		Time:      s.startLabel(m.Start),
		Org:       m.OrganizationName,
		Location:  m.Location,
		Label:     st.Label(),
		Color:     st.Color(),
		Href:      s.meetingHref(m),
		Cancelled: st == model.StateCancelled,
	}
}

// startLabel is "17:00" for timed meetings and "ganztägig" for date-only
// starts.
func (s *Server) startLabel(raw string) string {
	if len(strings.TrimSpace(raw)) == len(time.DateOnly) {
		return "ganztägig"
	}
	t, err := calendar.ParseTimestamp(raw, s.loc)
	if err != nil {
		return ""
	}
	return t.In(s.loc).Format("15:04")
}

// meetingHref links to the portal's meeting detail page.
func (s *Server) meetingHref(m model.Meeting) string {
	if m.Web != "" {
		return m.Web
	}
	base := strings.TrimRight(s.cfg.PublicURL, "/")
	return base + "/sitzungen/" + url.PathEscape(model.ShortID(m.ID))
}

// monthHref links to the page for c; a zero cursor means the current month.
func monthHref(c calendar.Cursor, list bool) string {
	v := url.Values{}
	if c.Valid() {
		v.Set("month", c.String())
	}
	if list {
		v.Set("view", "list")
	}
	if len(v) == 0 {
		return "/kalender"
	}
	return "/kalender?" + v.Encode()
}

func dayHref(c calendar.Cursor, k calendar.DayKey) string {
	v := url.Values{"month": {c.String()}, "day": {k.String()}}
	return "/kalender?" + v.Encode()
}

// dayHeading formats e.g. "Mi, 5. März 2025".
func dayHeading(k calendar.DayKey) string {
	wd := (int(k.Weekday()) + 6) % calendar.DaysPerWeek
	return fmt.Sprintf("%s, %d. %s %d", calendar.WeekdayNames[wd], k.Day, calendar.MonthName(k.Month), k.Year)
}
