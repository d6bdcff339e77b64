package ics

import (
	"context"
	"fmt"
	"time"

	"ratskal/internal/httpcache"
	"ratskal/internal/model"
)

// Getter is the subset of httpcache.Fetcher used by FeedSource.
type Getter interface {
	Get(ctx context.Context, rawURL, accept string) (httpcache.Result, error)
}

// FeedSource reads meetings from an iCalendar subscription feed, e.g. the
// portal's /export/meetings/feed.ics.
type FeedSource struct {
	url    string
	getter Getter
	loc    *time.Location
}

// NewFeedSource builds a FeedSource rendering meetings in loc.
func NewFeedSource(url string, getter Getter, loc *time.Location) *FeedSource {
	if loc == nil {
		loc = time.UTC
	}
	return &FeedSource{url: url, getter: getter, loc: loc}
}

// Meetings returns meetings starting on any date in [from, to].
func (s *FeedSource) Meetings(ctx context.Context, from, to time.Time) ([]model.Meeting, error) {
	res, err := s.getter.Get(ctx, s.url, "text/calendar")
	if err != nil {
		return nil, fmt.Errorf("ics: fetch feed: %w", err)
	}

	events, err := ParseFeed(res.Body, s.loc)
	if err != nil {
		return nil, fmt.Errorf("ics: parse feed: %w", err)
	}

	// to is a date; include everything that starts before the next midnight.
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, s.loc)
	return ExpandMeetings(events, ExpandConfig{
		DisplayLocation: s.loc,
		RangeStart:      from,
		RangeEnd:        end,
	})
}
