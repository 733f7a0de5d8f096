package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// The written file loads back to the same config.
	again, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, again); diff != "" {
		t.Errorf("reloaded config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCalendarsAndOverrides(t *testing.T) {
	path := writeFile(t, `
maximum_entries: 5
slice_multi_day_events: true
title_replace:
  "Inc.": ""
  "/meet(ing)?/gi": "call"
  "Zzz": "z"
custom_events:
  - keyword: "birthday"
    symbol: "birthday-cake"
    color: "#f00"
calendars:
  - url: webcal://example.com/home.ics
    symbol: home
    color: ""
    maximum_entries: 0
  - url: https://example.com/work.ics
    symbol: [briefcase, building]
    recurring_symbol: []
    auth:
      username: alice
      password: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MaximumEntries)
	assert.True(t, cfg.SliceMultiDayEvents)
	assert.Equal(t, DefaultMaximumNumberOfDays, cfg.MaximumNumberOfDays)

	wantReplace := TitleReplace{
		{Search: "Inc.", Replace: ""},
		{Search: "/meet(ing)?/gi", Replace: "call"},
		{Search: "Zzz", Replace: "z"},
	}
	if diff := cmp.Diff(wantReplace, cfg.TitleReplace); diff != "" {
		t.Errorf("title_replace mismatch (-want +got):\n%s", diff)
	}

	wantCalendars := []Calendar{
		{
			URL:            "http://example.com/home.ics",
			Symbol:         ptr(Symbols{"home"}),
			Color:          ptr(""),
			MaximumEntries: ptr(0),
		},
		{
			URL:             "https://example.com/work.ics",
			Symbol:          ptr(Symbols{"briefcase", "building"}),
			RecurringSymbol: ptr(Symbols{}),
			Auth:            &BasicAuthConfig{Username: "alice", Password: "secret"},
		},
	}
	if diff := cmp.Diff(wantCalendars, cfg.Calendars); diff != "" {
		t.Errorf("calendars mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, cfg.HasCalendarURL("http://example.com/home.ics"))
	assert.False(t, cfg.HasCalendarURL("webcal://example.com/home.ics"))
}

func TestLoadRejectsInvalidShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "title_replace as list", body: "title_replace: [a, b]\n"},
		{name: "symbol as mapping", body: "calendars:\n  - url: x\n    symbol: {a: b}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestSaveKeepsTitleReplaceOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.TitleReplace = TitleReplace{{Search: "b", Replace: "1"}, {Search: "a", Replace: "2"}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.TitleReplace, loaded.TitleReplace)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "http://host/cal.ics", NormalizeURL(" webcal://host/cal.ics "))
	assert.Equal(t, "https://host/cal.ics", NormalizeURL("https://host/cal.ics"))
}

func TestSaveRejectsEmptyInput(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Timezone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	cfg.Timezone = "Mars/Olympus_Mons"
	loc, err = cfg.Location()
	assert.Error(t, err)
	assert.Equal(t, time.Local, loc)
}
