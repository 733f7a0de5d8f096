package agenda

import (
	"time"

	"agendacal/internal/model"
)

// day is a fixed 24h step. Bucket ranges use it as-is; slicing walks real
// local midnights instead.
const day = 24 * time.Hour

const dayMillis = int64(day / time.Millisecond)

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func nextMidnight(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1)
}

// endOfDay is the last millisecond of t's local day.
func endOfDay(t time.Time) time.Time {
	return nextMidnight(t).Add(-time.Millisecond)
}

// within reports whether t lies in [today+lo, today+hi).
func within(t, today time.Time, lo, hi time.Duration) bool {
	return !t.Before(today.Add(lo)) && t.Before(today.Add(hi))
}

func isToday(start, today time.Time) bool {
	return within(start, today, 0, day)
}

func isTomorrow(start, today time.Time) bool {
	return within(start, today, day, 2*day)
}

// classify places start relative to today, the local midnight of "now".
func classify(start, today time.Time) model.Buckets {
	var b model.Buckets
	b.Today = isToday(start, today)
	b.DayBeforeYesterday = within(start, today, -2*day, -day)
	b.Yesterday = within(start, today, -day, 0)
	b.Tomorrow = !b.Today && isTomorrow(start, today)
	b.DayAfterTomorrow = !b.Tomorrow && within(start, today, 2*day, 3*day)
	return b
}

// spannedDays counts the local days touched by [start, end). Both
// instants must already be in the display location.
func spannedDays(start, end time.Time) int {
	n := end.UnixMilli() - 1 - endOfDay(start).UnixMilli()
	return int(ceilDiv(n, dayMillis)) + 1
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}
