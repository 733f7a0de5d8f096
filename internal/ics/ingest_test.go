package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendacal/internal/calprop"
	"agendacal/internal/config"
	"agendacal/internal/model"
	"agendacal/internal/store"
)

func ptr[T any](v T) *T { return &v }

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/family") {
			w.Write(familyICS)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func eventTitles(events []model.RawEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

func TestIngestorRefreshAll(t *testing.T) {
	srv := feedServer(t)
	family := srv.URL + "/family.ics"
	limited := srv.URL + "/family-limited.ics"
	missing := srv.URL + "/missing.ics"

	cfg := config.DefaultConfig()
	cfg.ExcludedEvents = []string{"TRIP"}
	cfg.Calendars = []config.Calendar{
		{URL: family},
		{URL: limited, PastDaysCount: ptr(2), MaximumEntries: ptr(3), ExcludedEvents: []string{}},
		{URL: missing},
		{URL: family, Name: ptr("duplicate entry is ignored")},
	}
	cfg.Normalize()

	urls := []string{family, limited, missing}
	st := store.New(urls)
	in := NewIngestor(cfg, calprop.New(cfg), st, NewFetcher(t.TempDir(), srv.Client()), time.UTC)

	now := utc(2025, 3, 12, 14, 0)
	updated, errs := in.RefreshAll(context.Background(), now)

	assert.Equal(t, 2, updated)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "404")

	snap := st.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Equal(t, missing, snap.ErrSource)
	require.Error(t, snap.Err)

	assert.Equal(t,
		[]string{"Standup", "Standup (moved)", "Anna's birthday", "Standup"},
		eventTitles(snap.Events[family]),
		"global exclusion drops the trip")

	// Two past days bring back the 10th; the override list disables the
	// global exclusion; the cap keeps the first three.
	got := snap.Events[limited]
	require.Len(t, got, 3)
	assert.True(t, got[0].StartDate.Equal(utc(2025, 3, 10, 8, 0)))
	assert.True(t, got[1].StartDate.Equal(utc(2025, 3, 12, 8, 0)))
	assert.Equal(t, "Standup (moved)", got[2].Title)
}

func TestIngestorStopsOnCanceledContext(t *testing.T) {
	srv := feedServer(t)
	cfg := config.DefaultConfig()
	cfg.Calendars = []config.Calendar{{URL: srv.URL + "/family.ics"}}
	cfg.Normalize()

	st := store.New([]string{srv.URL + "/family.ics"})
	in := NewIngestor(cfg, calprop.New(cfg), st, NewFetcher(t.TempDir(), srv.Client()), time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	updated, errs := in.RefreshAll(ctx, time.Now())
	assert.Zero(t, updated)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
	assert.False(t, st.Snapshot().Loaded)
}

func TestIsExcluded(t *testing.T) {
	assert.True(t, isExcluded("Trip to Lisbon", []string{"trip"}))
	assert.False(t, isExcluded("Trip to Lisbon", []string{"", "porto"}))
	assert.False(t, isExcluded("Trip", nil))
}
