package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by DefaultConfig and Normalize.
const (
	DefaultListen              = "127.0.0.1:8080"
	DefaultTimezone            = "Local"
	DefaultRefreshCron         = "*/5 * * * *"
	DefaultCacheDir            = "/var/lib/agendacal/ics-cache"
	DefaultMaximumEntries      = 10
	DefaultMaximumNumberOfDays = 365
	DefaultMaxTitleLength      = 25
	DefaultSymbol              = "calendar"
	DefaultColor               = "#fff"
	DefaultBroadcastChannel    = "agendacal:calendar_events"
	DefaultBroadcastKey        = "agendacal:calendar_events:latest"
)

// BasicAuthConfig holds HTTP Basic Auth credentials, used both for the
// Web API and for authenticated calendar feeds.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// CustomEvent overrides the first symbol (and optionally the color) of any
// event whose title matches Keyword, a case-insensitive regular expression.
type CustomEvent struct {
	Keyword string `yaml:"keyword" json:"keyword"`
	Symbol  string `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	Color   string `yaml:"color,omitempty" json:"color,omitempty"`
}

// BroadcastConfig describes where the built event list is published.
// An empty RedisAddress means broadcasts only go to the log.
type BroadcastConfig struct {
	RedisAddress  string `yaml:"redis_address,omitempty" json:"redis_address,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty" json:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty" json:"redis_db,omitempty"`
	Channel       string `yaml:"channel" json:"channel"`
	Key           string `yaml:"key" json:"key"`
}

// Calendar describes a single calendar source. The URL identifies the
// source; every other field is an optional override of a global default.
// A nil pointer means "not set", a non-nil pointer is honored even when it
// points at a zero value.
type Calendar struct {
	URL string `yaml:"url" json:"url"`

	Name                *string  `yaml:"name,omitempty" json:"name,omitempty"`
	Symbol              *Symbols `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	RecurringSymbol     *Symbols `yaml:"recurring_symbol,omitempty" json:"recurring_symbol,omitempty"`
	FullDaySymbol       *Symbols `yaml:"full_day_symbol,omitempty" json:"full_day_symbol,omitempty"`
	SymbolClassName     *string  `yaml:"symbol_class_name,omitempty" json:"symbol_class_name,omitempty"`
	Color               *string  `yaml:"color,omitempty" json:"color,omitempty"`
	TitleClass          *string  `yaml:"title_class,omitempty" json:"title_class,omitempty"`
	SymbolClass         *string  `yaml:"symbol_class,omitempty" json:"symbol_class,omitempty"`
	TimeClass           *string  `yaml:"time_class,omitempty" json:"time_class,omitempty"`
	MaximumEntries      *int     `yaml:"maximum_entries,omitempty" json:"maximum_entries,omitempty"`
	PastDaysCount       *int     `yaml:"past_days_count,omitempty" json:"past_days_count,omitempty"`
	RepeatingCountTitle *string  `yaml:"repeating_count_title,omitempty" json:"repeating_count_title,omitempty"`

	// ExcludedEvents are case-insensitive title substrings dropped at
	// ingestion time. When set it replaces Config.ExcludedEvents.
	ExcludedEvents []string `yaml:"excluded_events,omitempty" json:"excluded_events,omitempty"`

	// Auth, if set, is sent as HTTP Basic Auth when fetching URL.
	Auth *BasicAuthConfig `yaml:"auth,omitempty" json:"auth,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone whose midnights define "today".
	// "Local" (the default) uses the host clock.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/5 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir holds per-URL ICS bodies and HTTP cache metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	MaximumEntries      int  `yaml:"maximum_entries" json:"maximum_entries"`
	MaximumNumberOfDays int  `yaml:"maximum_number_of_days" json:"maximum_number_of_days"`
	PastDaysCount       int  `yaml:"past_days_count" json:"past_days_count"`
	HidePrivate         bool `yaml:"hide_private" json:"hide_private"`
	HideOngoing         bool `yaml:"hide_ongoing" json:"hide_ongoing"`
	SliceMultiDayEvents bool `yaml:"slice_multi_day_events" json:"slice_multi_day_events"`

	// UniformHorizon applies the maximum_number_of_days window to events
	// that are not sliced as well. Off by default.
	UniformHorizon bool `yaml:"uniform_horizon" json:"uniform_horizon"`

	DefaultSymbol              string `yaml:"default_symbol" json:"default_symbol"`
	DefaultSymbolClassName     string `yaml:"default_symbol_class_name" json:"default_symbol_class_name"`
	DefaultColor               string `yaml:"default_color" json:"default_color"`
	DisplayRepeatingCountTitle bool   `yaml:"display_repeating_count_title" json:"display_repeating_count_title"`
	DefaultRepeatingCountTitle string `yaml:"default_repeating_count_title" json:"default_repeating_count_title"`

	MaxTitleLength int          `yaml:"max_title_length" json:"max_title_length"`
	WrapEvents     bool         `yaml:"wrap_events" json:"wrap_events"`
	TitleReplace   TitleReplace `yaml:"title_replace" json:"title_replace"`

	CustomEvents   []CustomEvent `yaml:"custom_events" json:"custom_events"`
	ExcludedEvents []string      `yaml:"excluded_events" json:"excluded_events"`

	BroadcastEvents bool            `yaml:"broadcast_events" json:"broadcast_events"`
	Broadcast       BroadcastConfig `yaml:"broadcast" json:"broadcast"`

	Calendars []Calendar `yaml:"calendars" json:"calendars"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              DefaultListen,
		Timezone:            DefaultTimezone,
		RefreshCron:         DefaultRefreshCron,
		LogLevel:            "info",
		CacheDir:            DefaultCacheDir,
		MaximumEntries:      DefaultMaximumEntries,
		MaximumNumberOfDays: DefaultMaximumNumberOfDays,
		DefaultSymbol:       DefaultSymbol,
		DefaultColor:        DefaultColor,
		MaxTitleLength:      DefaultMaxTitleLength,
		TitleReplace: TitleReplace{
			{Search: "De verjaardag van ", Replace: ""},
			{Search: "'s birthday", Replace: ""},
		},
		CustomEvents:    []CustomEvent{},
		ExcludedEvents:  []string{},
		BroadcastEvents: true,
		Broadcast: BroadcastConfig{
			Channel: DefaultBroadcastChannel,
			Key:     DefaultBroadcastKey,
		},
		Calendars: []Calendar{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.MaximumEntries <= 0 {
		c.MaximumEntries = DefaultMaximumEntries
	}
	if c.MaximumNumberOfDays <= 0 {
		c.MaximumNumberOfDays = DefaultMaximumNumberOfDays
	}
	if c.PastDaysCount < 0 {
		c.PastDaysCount = 0
	}
	if c.MaxTitleLength <= 0 {
		c.MaxTitleLength = DefaultMaxTitleLength
	}
	if c.DefaultSymbol == "" {
		c.DefaultSymbol = DefaultSymbol
	}
	if c.DefaultColor == "" {
		c.DefaultColor = DefaultColor
	}
	if c.Broadcast.Channel == "" {
		c.Broadcast.Channel = DefaultBroadcastChannel
	}
	if c.Broadcast.Key == "" {
		c.Broadcast.Key = DefaultBroadcastKey
	}
	if c.CustomEvents == nil {
		c.CustomEvents = []CustomEvent{}
	}
	if c.ExcludedEvents == nil {
		c.ExcludedEvents = []string{}
	}
	if c.Calendars == nil {
		c.Calendars = []Calendar{}
	}
	for i := range c.Calendars {
		c.Calendars[i].URL = NormalizeURL(c.Calendars[i].URL)
	}
}

// NormalizeURL trims whitespace and rewrites webcal:// to http://.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if rest, ok := strings.CutPrefix(u, "webcal://"); ok {
		return "http://" + rest
	}
	return u
}

// HasCalendarURL reports whether url belongs to a configured calendar.
func (c *Config) HasCalendarURL(url string) bool {
	for _, cal := range c.Calendars {
		if cal.URL == url {
			return true
		}
	}
	return false
}

// Location resolves Timezone. An unknown name falls back to time.Local
// and is reported in the error.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == DefaultTimezone {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created as needed) and returned.
//   - Otherwise the YAML is read, unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
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

	tmp, err := os.CreateTemp(dir, ".agendacal-config-*.tmp")
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

// Save is a convenience method on Config that delegates to Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
