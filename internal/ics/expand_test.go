package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendacal/internal/model"
)

func utc(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func expandFamily(t *testing.T, cfg ExpandConfig) []model.RawEvent {
	t.Helper()
	parsed, err := ParseICS("https://example.com/family.ics", familyICS)
	require.NoError(t, err)
	res, err := ExpandEvents(parsed, cfg)
	require.NoError(t, err)
	assert.Empty(t, res.TruncatedEvents)
	return res.Events
}

func TestExpandEvents(t *testing.T) {
	events := expandFamily(t, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      utc(2025, 3, 12, 0, 0),
		RangeEnd:        utc(2025, 4, 12, 0, 0),
	})

	require.Len(t, events, 5)

	standups := events[:3]
	assert.Equal(t, "Standup", standups[0].Title)
	assert.True(t, standups[0].StartDate.Equal(utc(2025, 3, 12, 8, 0)))
	assert.True(t, standups[0].EndDate.Equal(utc(2025, 3, 12, 8, 15)))
	assert.True(t, standups[0].RecurringEvent)
	assert.Equal(t, 2025, standups[0].FirstYear)
	assert.Equal(t, "PUBLIC", standups[0].Class)

	assert.Equal(t, "Standup (moved)", standups[1].Title)
	assert.True(t, standups[1].StartDate.Equal(utc(2025, 3, 13, 9, 0)))
	assert.True(t, standups[1].RecurringEvent)

	assert.True(t, standups[2].StartDate.Equal(utc(2025, 3, 14, 8, 0)))

	anna := events[3]
	assert.Equal(t, "Anna's birthday", anna.Title)
	assert.True(t, anna.FullDayEvent)
	assert.True(t, anna.RecurringEvent)
	assert.Equal(t, 1990, anna.FirstYear)
	assert.Equal(t, "PRIVATE", anna.Class)
	assert.True(t, anna.StartDate.Equal(utc(2025, 3, 14, 0, 0)))
	assert.True(t, anna.EndDate.Equal(utc(2025, 3, 15, 0, 0)))

	trip := events[4]
	assert.False(t, trip.RecurringEvent)
	assert.Zero(t, trip.FirstYear)
	assert.True(t, trip.StartDate.Equal(utc(2025, 3, 20, 0, 0)))
	assert.True(t, trip.EndDate.Equal(utc(2025, 3, 23, 0, 0)))
	assert.Equal(t, "Lisbon", trip.Location)
}

func TestExpandEventsExcludesExDate(t *testing.T) {
	events := expandFamily(t, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      utc(2025, 3, 10, 0, 0),
		RangeEnd:        utc(2025, 3, 11, 23, 0),
	})

	require.Len(t, events, 1)
	assert.True(t, events[0].StartDate.Equal(utc(2025, 3, 10, 8, 0)))
}

func TestExpandEventsKeepsRunningOccurrence(t *testing.T) {
	// The window opens in the middle of the 08:00-08:15 standup.
	events := expandFamily(t, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      utc(2025, 3, 12, 8, 10),
		RangeEnd:        utc(2025, 3, 12, 12, 0),
	})

	require.Len(t, events, 1)
	assert.True(t, events[0].StartDate.Equal(utc(2025, 3, 12, 8, 0)))
}

func TestExpandEventsAnchorsAllDayInDisplayLocation(t *testing.T) {
	auckland, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)

	events := expandFamily(t, ExpandConfig{
		DisplayLocation: auckland,
		RangeStart:      utc(2025, 3, 19, 0, 0),
		RangeEnd:        utc(2025, 3, 25, 0, 0),
	})

	require.Len(t, events, 1)
	trip := events[0]
	assert.True(t, trip.StartDate.Equal(time.Date(2025, 3, 20, 0, 0, 0, 0, auckland)))
	assert.True(t, trip.EndDate.Equal(time.Date(2025, 3, 23, 0, 0, 0, 0, auckland)))
	assert.Equal(t, auckland, trip.StartDate.Location())
}

func TestExpandEventsCap(t *testing.T) {
	parsed := []ParsedEvent{{
		UID:      "tick@example",
		Summary:  "Tick",
		Start:    utc(2025, 1, 1, 0, 0),
		End:      utc(2025, 1, 1, 0, 30),
		RawRRule: "FREQ=HOURLY",
	}}
	res, err := ExpandEvents(parsed, ExpandConfig{
		DisplayLocation:        time.UTC,
		RangeStart:             utc(2025, 1, 1, 0, 0),
		RangeEnd:               utc(2025, 1, 10, 0, 0),
		MaxOccurrencesPerEvent: 10,
	})
	require.NoError(t, err)
	assert.Len(t, res.Events, 10)
	assert.Equal(t, []string{"tick@example"}, res.TruncatedEvents)
}

func TestExpandEventsRejectsInvertedRange(t *testing.T) {
	_, err := ExpandEvents(nil, ExpandConfig{RangeStart: utc(2025, 2, 1, 0, 0), RangeEnd: utc(2025, 1, 1, 0, 0)})
	assert.Error(t, err)
}

func TestOccurrenceBoundsDefaults(t *testing.T) {
	timed := ParsedEvent{Start: utc(2025, 3, 1, 9, 0)}
	start, end := occurrenceBounds(timed, timed.Start, time.UTC)
	assert.True(t, start.Equal(end), "missing DTEND gives a zero-length event")

	allDay := ParsedEvent{Start: utc(2025, 3, 1, 0, 0), AllDay: true}
	start, end = occurrenceBounds(allDay, allDay.Start, time.UTC)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}
