package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "time/tzdata"

	"github.com/spf13/cobra"

	"ratskal/internal/config"
	appLog "ratskal/internal/log"
	"ratskal/internal/model"
	"ratskal/internal/source"
)

var (
	configPath string
	listenAddr string
	debug      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ratskal",
	Short: "Council meeting calendar",
	Long: `ratskal renders the meetings of a council information system as a
Monday-first month calendar.

Meetings are read from the portal backend (source "oparl") or from an
iCalendar feed (source "ics") and grouped by day in the municipal time zone.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug {
			appLog.SetLevel(appLog.LevelDebug)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		appLog.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/ratskal/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(gridCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if !debug {
		appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSource returns the configured meeting source, or the meetings stored
// in input (a JSON array) when input is set.
func openSource(cfg *config.Config, input string) (source.Source, error) {
	if input == "" {
		return source.New(cfg, cfg.Location(), &http.Client{Timeout: 15 * time.Second})
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}
	var ms []model.Meeting
	if err := json.Unmarshal(data, &ms); err != nil {
		return nil, fmt.Errorf("parse %s: %w", input, err)
	}
	return source.Static(ms), nil
}
