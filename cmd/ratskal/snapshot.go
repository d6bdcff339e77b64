package main

import (
	"time"

	"github.com/spf13/cobra"

	"ratskal/internal/calendar"
	"ratskal/internal/capture"
	appLog "ratskal/internal/log"
)

var (
	snapshotMonth  string
	snapshotURL    string
	snapshotOutput string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture the calendar page to PNG once",
	Long: `Capture /kalender of a running "ratskal serve" with headless Chromium and
write the PNG to snapshot.path (or --output).`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotMonth, "month", "", "Month as YYYY-MM (default: current month)")
	snapshotCmd.Flags().StringVar(&snapshotURL, "url", "", "Page URL (default: /kalender on the listen address)")
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "", "Output PNG (default: snapshot.path)")
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := calendar.Today(time.Now(), cfg.Location())
	if snapshotMonth != "" {
		if c, err = calendar.ParseCursor(snapshotMonth); err != nil {
			return err
		}
	}

	opts := snapshotOptions(cfg, c, snapshotURL)
	if snapshotOutput != "" {
		opts.OutputPath = snapshotOutput
	}
	if err := capture.Snapshot(cmd.Context(), opts); err != nil {
		return err
	}
	appLog.Info("snapshot written", "url", opts.URL, "path", opts.OutputPath)
	return nil
}
