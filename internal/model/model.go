package model

import (
	"fmt"
	"strings"
)

// MeetingState is the lifecycle state of a council meeting as reported by
// the backend.
type MeetingState string

const (
	StateScheduled MeetingState = "scheduled"
	StateInvited   MeetingState = "invited"
	StateRunning   MeetingState = "running"
	StateCompleted MeetingState = "completed"
	StateCancelled MeetingState = "cancelled"
)

var stateLabels = map[MeetingState]string{
	StateScheduled: "Geplant",
	StateInvited:   "Eingeladen",
	StateRunning:   "Laufend",
	StateCompleted: "Abgeschlossen",
	StateCancelled: "Abgesagt",
}

var stateColors = map[MeetingState]string{
	StateScheduled: "#3b82f6",
	StateInvited:   "#8b5cf6",
	StateRunning:   "#f59e0b",
	StateCompleted: "#16a34a",
	StateCancelled: "#dc2626",
}

const fallbackColor = "#6b7280"

// ParseMeetingState validates a raw state string. Empty input yields
// StateScheduled, which is what the backend assumes for fresh meetings.
func ParseMeetingState(s string) (MeetingState, error) {
	st := MeetingState(strings.ToLower(strings.TrimSpace(s)))
	if st == "" {
		return StateScheduled, nil
	}
	if _, ok := stateLabels[st]; !ok {
		return "", fmt.Errorf("model: unknown meeting state %q", s)
	}
	return st, nil
}

// Label returns the German display label, or the raw value when unknown.
func (s MeetingState) Label() string {
	if l, ok := stateLabels[s]; ok {
		return l
	}
	return string(s)
}

// Color returns the CSS color used for the state badge.
func (s MeetingState) Color() string {
	if c, ok := stateColors[s]; ok {
		return c
	}
	return fallbackColor
}

// Meeting is a single council meeting (OParl "Meeting") as consumed by the
// calendar. Start and End are kept as the raw timestamps delivered by the
// source; day bucketing parses them and tolerates malformed values.
type Meeting struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Start string `json:"start"`
	End   string `json:"end,omitempty"`

	State MeetingState `json:"meeting_state"`
	// Cancelled may be set independently of State.
	Cancelled bool `json:"cancelled"`

	Organization     string `json:"organization,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
	Location         string `json:"location,omitempty"`
	Web              string `json:"web,omitempty"`
}

// EffectiveState folds the Cancelled flag into the state.
func (m Meeting) EffectiveState() MeetingState {
	if m.Cancelled {
		return StateCancelled
	}
	return m.State
}

// ShortID returns the id used in detail page routes. OParl ids are object
// URLs; their trailing path segment is the route id.
func ShortID(id string) string {
	if !strings.HasPrefix(id, "http://") && !strings.HasPrefix(id, "https://") {
		return id
	}
	id = strings.TrimRight(id, "/")
	return id[strings.LastIndex(id, "/")+1:]
}
