package agenda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testLoc = time.FixedZone("UTC+2", 2*60*60)

// now is Wednesday 2025-03-12 14:00 in testLoc.
var now = time.Date(2025, 3, 12, 14, 0, 0, 0, testLoc)

// at returns the instant dayOffset days from now's date at hh:mm.
func at(dayOffset, hh, mm int) time.Time {
	return time.Date(2025, 3, 12+dayOffset, hh, mm, 0, 0, testLoc)
}

func TestClassify(t *testing.T) {
	today := startOfDay(now)

	tests := []struct {
		name  string
		start time.Time
		want  string
	}{
		{name: "three days ago", start: at(-3, 12, 0), want: ""},
		{name: "day before yesterday start", start: at(-2, 0, 0), want: "dayBeforeYesterday"},
		{name: "yesterday late", start: at(-1, 23, 59), want: "yesterday"},
		{name: "today midnight", start: at(0, 0, 0), want: "today"},
		{name: "today evening", start: at(0, 23, 59), want: "today"},
		{name: "tomorrow midnight", start: at(1, 0, 0), want: "tomorrow"},
		{name: "day after tomorrow", start: at(2, 9, 0), want: "dayAfterTomorrow"},
		{name: "three days ahead", start: at(3, 0, 0), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := classify(tt.start, today)
			assert.Equal(t, tt.want, b.Name())
			if tt.want == "" {
				assert.Zero(t, b.Count())
			} else {
				assert.Equal(t, 1, b.Count())
			}
		})
	}
}

func TestSpannedDays(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{name: "short meeting", start: at(0, 9, 0), end: at(0, 9, 30), want: 1},
		{name: "zero length", start: at(0, 9, 0), end: at(0, 9, 0), want: 1},
		{name: "ends exactly at midnight", start: at(0, 9, 0), end: at(1, 0, 0), want: 1},
		{name: "full day event", start: at(0, 0, 0), end: at(1, 0, 0), want: 1},
		{name: "crosses one midnight", start: at(0, 22, 0), end: at(1, 1, 0), want: 2},
		{name: "three local days", start: at(1, 10, 0), end: at(3, 15, 0), want: 3},
		{name: "two full days", start: at(0, 0, 0), end: at(2, 0, 0), want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, spannedDays(tt.start, tt.end))
		})
	}
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, int64(2), ceilDiv(5, 3))
	assert.Equal(t, int64(2), ceilDiv(6, 3))
	assert.Equal(t, int64(0), ceilDiv(-2, 3))
	assert.Equal(t, int64(-1), ceilDiv(-3, 3))
	assert.Equal(t, int64(0), ceilDiv(0, 3))
}

func TestEndOfDay(t *testing.T) {
	assert.True(t, endOfDay(now).Equal(time.Date(2025, 3, 12, 23, 59, 59, int(999*time.Millisecond), testLoc)))
	assert.True(t, nextMidnight(now).Equal(at(1, 0, 0)))
}
