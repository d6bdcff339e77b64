// Package schedule keeps the month cache warm and refreshes the PNG
// snapshot on a cron schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ratskal/internal/calendar"
	appLog "ratskal/internal/log"
)

// Refresher re-fetches one month of meetings.
type Refresher interface {
	Refresh(ctx context.Context, c calendar.Cursor) error
}

// SnapshotFunc captures the calendar page after a refresh.
type SnapshotFunc func(ctx context.Context) error

// Scheduler runs refresh jobs on a standard five-field cron spec
// (or a descriptor such as "@hourly").
type Scheduler struct {
	spec      string
	loc       *time.Location
	refresher Refresher
	snapshot  SnapshotFunc

	// now is replaced in tests.
	now func() time.Time

	// runMu serializes ticks; cron skips a tick while one is running.
	runMu sync.Mutex
}

// New validates spec and returns a Scheduler. snapshot may be nil.
func New(spec string, loc *time.Location, r Refresher, snapshot SnapshotFunc) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("schedule: invalid refresh spec %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		spec:      spec,
		loc:       loc,
		refresher: r,
		snapshot:  snapshot,
		now:       time.Now,
	}, nil
}

// RunOnce refreshes the current and the next month, then takes a snapshot
// if configured. Errors of the individual steps are joined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	cur := calendar.Today(s.now(), s.loc)
	var errs []error
	for _, c := range []calendar.Cursor{cur, cur.Next()} {
		if err := s.refresher.Refresh(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	if s.snapshot != nil && ctx.Err() == nil {
		if err := s.snapshot(ctx); err != nil {
			errs = append(errs, fmt.Errorf("schedule: snapshot: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Run performs an immediate refresh, then follows the cron spec until ctx
// is cancelled. It waits for a running tick before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	s.tick(ctx)

	c.Start()
	appLog.Info("refresh scheduler started", "spec", s.spec, "timezone", s.loc.String())

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("refresh scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.RunOnce(ctx); err != nil {
		appLog.Error("scheduled refresh failed", err)
		return
	}
	appLog.Debug("scheduled refresh done", "took", time.Since(start).String())
}

// cronLogger routes cron's internal messages through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
