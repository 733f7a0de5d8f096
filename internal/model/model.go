package model

import "time"

// ClassPrivate is the only visibility class the agenda treats specially.
const ClassPrivate = "PRIVATE"

// RawEvent is a single event as delivered by the ingestion side, after
// recurrence expansion. Records are treated as immutable once handed over.
type RawEvent struct {
	Title string

	// StartDate / EndDate form the half-open interval [StartDate, EndDate).
	StartDate time.Time
	EndDate   time.Time

	FullDayEvent   bool
	RecurringEvent bool

	// Class is the iCalendar CLASS value (PUBLIC, PRIVATE, CONFIDENTIAL, ...).
	Class string

	// FirstYear is the year of the first occurrence of a recurring event.
	FirstYear int

	// Pass-through fields; the agenda never interprets these.
	UID         string
	Location    string
	Description string
	Extra       map[string]any
}

// Buckets marks where an event starts relative to the current local day.
type Buckets struct {
	Today              bool
	Yesterday          bool
	DayBeforeYesterday bool
	Tomorrow           bool
	DayAfterTomorrow   bool
}

// Name returns the first set bucket in display precedence order, or "".
func (b Buckets) Name() string {
	switch {
	case b.Today:
		return "today"
	case b.DayBeforeYesterday:
		return "dayBeforeYesterday"
	case b.Yesterday:
		return "yesterday"
	case b.Tomorrow:
		return "tomorrow"
	case b.DayAfterTomorrow:
		return "dayAfterTomorrow"
	}
	return ""
}

// Count reports how many bucket flags are set.
func (b Buckets) Count() int {
	n := 0
	for _, v := range []bool{b.Today, b.Yesterday, b.DayBeforeYesterday, b.Tomorrow, b.DayAfterTomorrow} {
		if v {
			n++
		}
	}
	return n
}

// EnrichedEvent is a RawEvent placed on the agenda: it knows which source
// it came from and which relative-day bucket it falls in. Slice fragments
// carry a " (k/N)" suffix in Title.
type EnrichedEvent struct {
	RawEvent
	Buckets

	SourceID string
}

// BroadcastEvent is the shape handed to other modules. It drops the source
// URL and carries the resolved symbols, color and calendar name instead.
// Instants are epoch milliseconds.
type BroadcastEvent struct {
	Title          string `json:"title"`
	StartDate      int64  `json:"startDate"`
	EndDate        int64  `json:"endDate"`
	FullDayEvent   bool   `json:"fullDayEvent"`
	RecurringEvent bool   `json:"recurringEvent"`
	Class          string `json:"class,omitempty"`
	FirstYear      int    `json:"firstYear,omitempty"`
	UID            string `json:"uid,omitempty"`
	Location       string `json:"location,omitempty"`
	Description    string `json:"description,omitempty"`

	Today              bool `json:"today"`
	Yesterday          bool `json:"yesterday"`
	DayBeforeYesterday bool `json:"dayBeforeYesterday"`
	Tomorrow           bool `json:"tomorrow"`
	DayAfterTomorrow   bool `json:"dayAfterTomorrow"`

	Symbol       []string `json:"symbol"`
	CalendarName string   `json:"calendarName"`
	Color        string   `json:"color"`
}
