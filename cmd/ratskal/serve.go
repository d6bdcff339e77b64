package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ratskal/internal/calendar"
	"ratskal/internal/capture"
	"ratskal/internal/config"
	appLog "ratskal/internal/log"
	"ratskal/internal/schedule"
	"ratskal/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calendar and refresh it on schedule",
	Long: `Start the web server (/kalender, /api/calendar, /api/agenda,
/export/calendar.ics, /preview.png) together with the refresh scheduler.

The scheduler re-fetches the current and the next month on the configured
cron spec and, if snapshot.enabled is set, captures /kalender to PNG.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc := cfg.Location()

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"source", cfg.Source,
		"refresh", cfg.RefreshCron,
		"snapshot", cfg.Snapshot.Enabled,
	)

	src, err := openSource(cfg, "")
	if err != nil {
		return err
	}
	srv := web.NewServer(cfg, src)

	var snap schedule.SnapshotFunc
	if cfg.Snapshot.Enabled {
		snap = func(ctx context.Context) error {
			return capture.Snapshot(ctx, snapshotOptions(cfg, calendar.Today(srv.Now(), loc), ""))
		}
	}
	sched, err := schedule.New(cfg.RefreshCron, loc, srv, snap)
	if err != nil {
		return err
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })

	err = g.Wait()
	appLog.Info("ratskal exiting")
	return err
}

// snapshotOptions derives capture options from config. An empty pageURL
// means the locally served page for month c.
func snapshotOptions(cfg *config.Config, c calendar.Cursor, pageURL string) capture.Options {
	if pageURL == "" {
		pageURL = capture.PageURL(cfg.Listen, c)
	}
	return capture.Options{
		URL:        pageURL,
		OutputPath: cfg.Snapshot.Path,
		Width:      cfg.Snapshot.Width,
		Height:     cfg.Snapshot.Height,
		BasicAuth:  cfg.BasicAuth,
	}
}
