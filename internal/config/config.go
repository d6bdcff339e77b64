package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Meeting source kinds.
const (
	SourceOParl = "oparl"
	SourceICS   = "ics"
)

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "Europe/Berlin"
	defaultRefresh      = "*/15 * * * *"
	defaultCacheDir     = "/var/lib/ratskal/http-cache"
	defaultCalendarName = "Sitzungskalender"
	defaultMaxPerDay    = 3
	defaultSnapshotPath = "/var/lib/ratskal/preview.png"
	defaultSnapshotW    = 1280
	defaultSnapshotH    = 960
)

// SnapshotConfig controls the periodic PNG capture of the calendar page.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web UI.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the municipal IANA zone. Meetings are bucketed into
	// calendar days in this zone regardless of where the viewer is.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Source selects the meeting source: "oparl" (backend JSON listing)
	// or "ics" (subscription feed).
	Source string `yaml:"source" json:"source"`

	// BackendURL is the portal backend base URL for the oparl source.
	BackendURL string `yaml:"backend_url" json:"backend_url"`
	// BodyID optionally restricts the listing to one council body.
	BodyID string `yaml:"body_id" json:"body_id"`

	// FeedURL is the iCalendar feed for the ics source.
	FeedURL string `yaml:"feed_url" json:"feed_url"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") for
	// re-fetching the current and next month.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir stores conditional-request metadata and last good bodies.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// CalendarName titles the page and the exported feed.
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`

	// PublicURL is the externally visible base URL, used for links in the
	// exported feed. Optional.
	PublicURL string `yaml:"public_url" json:"public_url"`

	// MaxPerDay is how many meetings a grid cell lists before "+N".
	MaxPerDay int `yaml:"max_per_day" json:"max_per_day"`

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// envOverrides lists the settings that may be overridden from the
// environment, e.g. in container deployments.
type envOverrides struct {
	Listen     string `env:"RATSKAL_LISTEN"`
	Timezone   string `env:"RATSKAL_TIMEZONE"`
	LogLevel   string `env:"RATSKAL_LOG_LEVEL"`
	Source     string `env:"RATSKAL_SOURCE"`
	BackendURL string `env:"RATSKAL_BACKEND_URL"`
	BodyID     string `env:"RATSKAL_BODY_ID"`
	FeedURL    string `env:"RATSKAL_FEED_URL"`
	Refresh    string `env:"RATSKAL_REFRESH"`
	CacheDir   string `env:"RATSKAL_CACHE_DIR"`
	PublicURL  string `env:"RATSKAL_PUBLIC_URL"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		Source:     SourceOParl,
		BackendURL: "http://localhost:8000",
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	if c.Source == "" {
		if c.FeedURL != "" && c.BackendURL == "" {
			c.Source = SourceICS
		} else {
			c.Source = SourceOParl
		}
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.CalendarName == "" {
		c.CalendarName = defaultCalendarName
	}
	if c.MaxPerDay <= 0 {
		c.MaxPerDay = defaultMaxPerDay
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = defaultSnapshotPath
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = defaultSnapshotW
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = defaultSnapshotH
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	switch c.Source {
	case SourceOParl:
		if c.BackendURL == "" {
			errs = append(errs, errors.New("backend_url is required for source oparl"))
		}
	case SourceICS:
		if c.FeedURL == "" {
			errs = append(errs, errors.New("feed_url is required for source ics"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "") != (c.BasicAuth.Password == "") {
		errs = append(errs, errors.New("basic_auth needs both username and password"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ApplyEnv overlays RATSKAL_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	o, err := env.ParseAs[envOverrides]()
	if err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Listen, o.Listen)
	set(&c.Timezone, o.Timezone)
	set(&c.LogLevel, o.LogLevel)
	set(&c.Source, o.Source)
	set(&c.BackendURL, o.BackendURL)
	set(&c.BodyID, o.BodyID)
	set(&c.FeedURL, o.FeedURL)
	set(&c.RefreshCron, o.Refresh)
	set(&c.CacheDir, o.CacheDir)
	set(&c.PublicURL, o.PublicURL)
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created as needed) and returned.
//   - Otherwise the YAML is read and unmarshalled.
//   - RATSKAL_* environment variables are applied on top, then defaults
//     are normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the configuration atomically: temp file in the same directory,
// chmod 0600, then rename over path.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".ratskal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
