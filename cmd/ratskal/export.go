package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"ratskal/internal/calendar"
	"ratskal/internal/ics"
	"ratskal/internal/web"
)

var (
	exportFrom   string
	exportTo     string
	exportInput  string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the iCalendar feed for a range of months",
	Example: `  ratskal export --from 2025-01 --to 2025-06 > rat.ics
  ratskal export --input meetings.json --output rat.ics`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First month as YYYY-MM (default: previous month)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last month as YYYY-MM, inclusive (default: six months ahead)")
	exportCmd.Flags().StringVar(&exportInput, "input", "", "Read meetings from a JSON file instead of the source")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc := cfg.Location()

	now := calendar.Today(time.Now(), loc)
	from, to := now.Prev(), now
	for range 6 {
		to = to.Next()
	}
	if exportFrom != "" {
		if from, err = calendar.ParseCursor(exportFrom); err != nil {
			return err
		}
	}
	if exportTo != "" {
		if to, err = calendar.ParseCursor(exportTo); err != nil {
			return err
		}
	}

	src, err := openSource(cfg, exportInput)
	if err != nil {
		return err
	}
	ms, err := web.NewServer(cfg, src).MeetingsBetween(cmd.Context(), from, to)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return ics.WriteFeed(out, ms, ics.ExportOptions{
		Name:     cfg.CalendarName,
		Location: loc,
		BaseURL:  cfg.PublicURL,
	})
}
