package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratskal/internal/calendar"
	"ratskal/internal/config"
)

const meetingsJSON = `[
  {"id": "1", "name": "Ratssitzung", "start": "2025-01-15T17:00", "meeting_state": "invited"},
  {"id": "2", "name": "Hauptausschuss", "start": "2025-01-15T09:30:00+01:00", "meeting_state": "scheduled"},
  {"id": "3", "name": "Neujahrsempfang", "start": "2025-01-01"},
  {"id": "4", "name": "kaputt", "start": "bald"},
  {"id": "5", "name": "Februar", "start": "2025-02-01T10:00", "cancelled": true}
]`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "meetings.json")
	require.NoError(t, os.WriteFile(input, []byte(meetingsJSON), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	full := append([]string{"--config", filepath.Join(dir, "config.yaml")}, args...)
	for i, a := range full {
		full[i] = strings.ReplaceAll(a, "$INPUT", input)
	}
	rootCmd.SetArgs(full)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestGridCommand(t *testing.T) {
	out := execute(t, "grid", "--month", "2025-01", "--input", "$INPUT", "--agenda")

	lines := strings.Split(out, "\n")
	assert.Equal(t, "Januar 2025", lines[0])
	// Header plus five weeks.
	assert.Contains(t, lines[1], "Mo")
	assert.Contains(t, lines[2], "(30)")
	assert.Contains(t, lines[2], "1*1")
	assert.Contains(t, out, "15*2")
	assert.Contains(t, out, "(1*1)")

	// Agenda is sorted by start within the day.
	assert.Less(t, strings.Index(out, "09:30"), strings.Index(out, "17:00"))
	assert.Contains(t, out, "Ratssitzung [Eingeladen]")
	assert.Contains(t, out, "ganztägig")
	assert.NotContains(t, out, "kaputt")
}

func TestExportCommand(t *testing.T) {
	out := execute(t, "export", "--from", "2025-01", "--to", "2025-02", "--input", "$INPUT")

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "UID:1@ratskal")
	assert.Contains(t, out, "UID:5@ratskal")
	assert.Contains(t, out, "STATUS:CANCELLED")
	assert.NotContains(t, out, "UID:4@ratskal")
	assert.Equal(t, 1, strings.Count(out, "UID:2@ratskal"))
}

func TestSnapshotOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Listen = ":8080"
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "rat", Password: "geheim"}

	opts := snapshotOptions(cfg, calendar.Cursor{Year: 2025, Month: time.March}, "")
	assert.Equal(t, "http://127.0.0.1:8080/kalender?month=2025-03", opts.URL)
	assert.Equal(t, cfg.Snapshot.Path, opts.OutputPath)
	require.NotNil(t, opts.BasicAuth)
	assert.Equal(t, "rat", opts.BasicAuth.Username)
	assert.Equal(t, "geheim", opts.BasicAuth.Password)

	opts = snapshotOptions(cfg, calendar.Cursor{Year: 2025, Month: time.March}, "http://rat.local/kalender")
	assert.Equal(t, "http://rat.local/kalender", opts.URL)
}
