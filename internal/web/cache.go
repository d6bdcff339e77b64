package web

import (
	"context"
	"fmt"
	"time"

	"ratskal/internal/calendar"
	appLog "ratskal/internal/log"
	"ratskal/internal/model"
)

const (
	// monthCacheTTL bounds how stale a month may be before a page request
	// fetches it again. The refresh job normally keeps it warm.
	monthCacheTTL = 5 * time.Minute

	// monthCacheMaxAge is how long an entry is kept as a stale fallback.
	monthCacheMaxAge = 24 * time.Hour

	// monthCacheLimit caps the number of cached months.
	monthCacheLimit = 36
)

type monthEntry struct {
	meetings  []model.Meeting
	updatedAt time.Time
}

// Meetings returns the meetings of month c. A cached copy younger than
// monthCacheTTL is served as is; when a refetch fails, a stale copy is
// preferred over an error. Concurrent misses for the same month share one
// source request.
func (s *Server) Meetings(ctx context.Context, c calendar.Cursor) ([]model.Meeting, error) {
	e, ok := s.cached(c)
	if ok && s.now().Sub(e.updatedAt) < monthCacheTTL {
		return e.meetings, nil
	}

	v, err, _ := s.group.Do(c.String(), func() (any, error) {
		// A flight that just finished may have filled the entry.
		if e, ok := s.cached(c); ok && s.now().Sub(e.updatedAt) < monthCacheTTL {
			return e.meetings, nil
		}
		return s.fetchMonth(ctx, c)
	})
	if err != nil {
		if ok {
			appLog.Error("meeting refresh failed, serving stale month", err, "month", c.String())
			return e.meetings, nil
		}
		return nil, err
	}
	return v.([]model.Meeting), nil
}

// Refresh fetches month c from the source regardless of cache age.
func (s *Server) Refresh(ctx context.Context, c calendar.Cursor) error {
	_, err, _ := s.group.Do("refresh/"+c.String(), func() (any, error) {
		return s.fetchMonth(ctx, c)
	})
	return err
}

func (s *Server) cached(c calendar.Cursor) (monthEntry, bool) {
	s.monthsMu.RLock()
	defer s.monthsMu.RUnlock()
	e, ok := s.months[c]
	return e, ok
}

func (s *Server) fetchMonth(ctx context.Context, c calendar.Cursor) ([]model.Meeting, error) {
	first, last := c.Range(s.loc)
	ms, err := s.src.Meetings(ctx, first, last)
	if err != nil {
		return nil, fmt.Errorf("web: meetings for %s: %w", c, err)
	}

	now := s.now()
	s.monthsMu.Lock()
	s.months[c] = monthEntry{meetings: ms, updatedAt: now}
	evicted := s.evictLocked(c, now)
	s.monthsMu.Unlock()

	appLog.Debug("month refreshed", "month", c.String(), "meetings", len(ms), "evicted", evicted)
	return ms, nil
}

// evictLocked drops entries older than monthCacheMaxAge, then the least
// recently updated ones until monthCacheLimit holds. keep is never dropped.
// s.monthsMu must be held for writing.
func (s *Server) evictLocked(keep calendar.Cursor, now time.Time) int {
	n := 0
	for c, e := range s.months {
		if c != keep && now.Sub(e.updatedAt) >= monthCacheMaxAge {
			delete(s.months, c)
			n++
		}
	}
	for len(s.months) > monthCacheLimit {
		var (
			oldest calendar.Cursor
			found  bool
		)
		for c, e := range s.months {
			if c == keep {
				continue
			}
			if !found || e.updatedAt.Before(s.months[oldest].updatedAt) {
				oldest, found = c, true
			}
		}
		if !found {
			break
		}
		delete(s.months, oldest)
		n++
	}
	return n
}

// bucket groups meetings by municipal day and reports those without a
// usable start.
func (s *Server) bucket(ms []model.Meeting) calendar.Buckets {
	b := calendar.Bucket(ms, s.loc)
	if skipped := len(ms) - b.Len(); skipped > 0 {
		appLog.Debug("skipped meetings without valid start", "count", skipped)
	}
	return b
}
