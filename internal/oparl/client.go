// Package oparl reads council meetings from the portal backend's meeting
// listing and validates them into model.Meeting values.
package oparl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ratskal/internal/httpcache"
	appLog "ratskal/internal/log"
	"ratskal/internal/model"
)

// maxPages bounds how many "links.next" pages are followed per request.
const maxPages = 20

// ErrMalformedResponse is returned when the listing body is not the
// expected JSON envelope.
var ErrMalformedResponse = errors.New("oparl: malformed meeting listing")

// Getter is the subset of httpcache.Fetcher used by Client.
type Getter interface {
	Get(ctx context.Context, rawURL, accept string) (httpcache.Result, error)
}

// Client lists meetings from {BaseURL}/api/meetings.
type Client struct {
	baseURL string
	bodyID  string
	getter  Getter
}

// NewClient constructs a Client. bodyID is optional and narrows the listing
// to one council body.
func NewClient(baseURL, bodyID string, getter Getter) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		bodyID:  bodyID,
		getter:  getter,
	}
}

// listing is the paginated JSON envelope returned by the backend.
type listing struct {
	Data  []meetingDTO `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// meetingDTO mirrors the loosely typed JSON. IDs arrive as strings or
// numbers depending on the backend version.
type meetingDTO struct {
	ID               flexString `json:"id"`
	Name             string     `json:"name"`
	Start            string     `json:"start"`
	End              string     `json:"end"`
	MeetingState     string     `json:"meeting_state"`
	Cancelled        bool       `json:"cancelled"`
	Organization     flexString `json:"organization"`
	OrganizationName string     `json:"organizationName"`
	Location         string     `json:"location"`
	Web              string     `json:"web"`
}

type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// Meetings returns the meetings whose start date lies in [from, to]
// (dates, inclusive). Records without an id are dropped; unknown states
// are reported and downgraded to "scheduled". Start timestamps are passed
// through untouched.
func (c *Client) Meetings(ctx context.Context, from, to time.Time) ([]model.Meeting, error) {
	next, err := c.listURL(from, to)
	if err != nil {
		return nil, err
	}

	var out []model.Meeting
	for page := 0; next != "" && page < maxPages; page++ {
		res, err := c.getter.Get(ctx, next, "application/json")
		if err != nil {
			return nil, fmt.Errorf("oparl: fetch meetings: %w", err)
		}

		var l listing
		if err := json.Unmarshal(res.Body, &l); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		for _, dto := range l.Data {
			m, err := dto.toModel()
			if err != nil {
				appLog.Error("oparl: dropping meeting", err, "name", dto.Name)
				continue
			}
			out = append(out, m)
		}
		next = l.Links.Next
	}

	appLog.Debug("oparl meetings listed", "from", from.Format(time.DateOnly), "to", to.Format(time.DateOnly), "count", len(out))
	return out, nil
}

func (c *Client) listURL(from, to time.Time) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("oparl: backend URL is empty")
	}
	u, err := url.Parse(c.baseURL + "/api/meetings")
	if err != nil {
		return "", fmt.Errorf("oparl: invalid backend URL: %w", err)
	}
	q := u.Query()
	q.Set("start", from.Format(time.DateOnly))
	q.Set("end", to.Format(time.DateOnly))
	if c.bodyID != "" {
		q.Set("body", c.bodyID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d meetingDTO) toModel() (model.Meeting, error) {
	id := strings.TrimSpace(string(d.ID))
	if id == "" {
		return model.Meeting{}, errors.New("missing id")
	}

	state, err := model.ParseMeetingState(d.MeetingState)
	if err != nil {
		appLog.Error("oparl: unknown meeting state, assuming scheduled", err, "id", id)
		state = model.StateScheduled
	}

	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = "Sitzung"
	}

	return model.Meeting{
		ID:               id,
		Name:             name,
		Start:            d.Start,
		End:              d.End,
		State:            state,
		Cancelled:        d.Cancelled || state == model.StateCancelled,
		Organization:     string(d.Organization),
		OrganizationName: d.OrganizationName,
		Location:         d.Location,
		Web:              d.Web,
	}, nil
}
