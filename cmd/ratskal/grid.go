package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ratskal/internal/calendar"
	appLog "ratskal/internal/log"
)

var (
	gridMonth  string
	gridInput  string
	gridAgenda bool
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print a month grid as text",
	Long: `Print the Monday-first month grid. Days of the neighbouring months are
shown in parentheses, days with meetings carry "*n".

Meetings come from the configured source, or from --input (a JSON array of
meetings as served by the backend).`,
	Example: `  ratskal grid --month 2025-03
  ratskal grid --month 2025-03 --input meetings.json --agenda`,
	Args: cobra.NoArgs,
	RunE: runGrid,
}

func init() {
	gridCmd.Flags().StringVar(&gridMonth, "month", "", "Month as YYYY-MM (default: current month)")
	gridCmd.Flags().StringVar(&gridInput, "input", "", "Read meetings from a JSON file instead of the source")
	gridCmd.Flags().BoolVar(&gridAgenda, "agenda", false, "Also list the meetings per day")
}

func runGrid(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc := cfg.Location()

	c := calendar.Today(time.Now(), loc)
	if gridMonth != "" {
		if c, err = calendar.ParseCursor(gridMonth); err != nil {
			return err
		}
	}

	src, err := openSource(cfg, gridInput)
	if err != nil {
		return err
	}
	first, last := c.Range(loc)
	ms, err := src.Meetings(cmd.Context(), first, last)
	if err != nil {
		return err
	}

	b := calendar.Bucket(ms, loc)
	if skipped := len(ms) - b.Len(); skipped > 0 {
		appLog.Debug("skipped meetings without valid start", "count", skipped)
	}

	out := cmd.OutOrStdout()
	if err := calendar.WriteText(out, calendar.Build(c, b)); err != nil {
		return err
	}
	if !gridAgenda {
		return nil
	}

	for _, day := range calendar.Agenda(c, b.SortByStart(loc)) {
		fmt.Fprintf(out, "\n%s\n", day.Date)
		for _, m := range day.Meetings {
			when := "ganztägig"
			if t, err := calendar.ParseTimestamp(m.Start, loc); err == nil && len(m.Start) > len(time.DateOnly) {
				when = t.In(loc).Format("15:04")
			}
			fmt.Fprintf(out, "  %-9s %s [%s]\n", when, m.Name, m.EffectiveState().Label())
		}
	}
	return nil
}
