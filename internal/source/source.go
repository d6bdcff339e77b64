// Package source selects where council meetings come from.
package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ratskal/internal/config"
	"ratskal/internal/httpcache"
	"ratskal/internal/ics"
	"ratskal/internal/model"
	"ratskal/internal/oparl"
)

// Source lists meetings whose start date lies within [from, to].
type Source interface {
	Meetings(ctx context.Context, from, to time.Time) ([]model.Meeting, error)
}

// New builds the Source configured in cfg.
func New(cfg *config.Config, loc *time.Location, client *http.Client) (Source, error) {
	fetcher := httpcache.NewFetcher(cfg.CacheDir, client)

	switch cfg.Source {
	case config.SourceOParl:
		if cfg.BackendURL == "" {
			return nil, fmt.Errorf("source: backend_url is required for source %q", cfg.Source)
		}
		return oparl.NewClient(cfg.BackendURL, cfg.BodyID, fetcher), nil
	case config.SourceICS:
		if cfg.FeedURL == "" {
			return nil, fmt.Errorf("source: feed_url is required for source %q", cfg.Source)
		}
		return ics.NewFeedSource(cfg.FeedURL, fetcher, loc), nil
	default:
		return nil, fmt.Errorf("source: unknown source %q", cfg.Source)
	}
}

// Static serves a fixed meeting list, e.g. loaded from a JSON file.
type Static []model.Meeting

// Meetings returns all meetings; the grid builder ignores days outside the
// month anyway.
func (s Static) Meetings(_ context.Context, _, _ time.Time) ([]model.Meeting, error) {
	return s, nil
}
