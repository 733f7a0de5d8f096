package agenda

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"agendacal/internal/config"
	appLog "agendacal/internal/log"
	"agendacal/internal/model"
)

// Options controls how the event list is built.
type Options struct {
	// MaximumEntries caps the length of the built list.
	MaximumEntries int

	// MaximumNumberOfDays sets the horizon: now + N*24h.
	MaximumNumberOfDays int

	HidePrivate bool
	HideOngoing bool

	// SliceMultiDayEvents splits events spanning several local days into
	// one fragment per day.
	SliceMultiDayEvents bool

	// UniformHorizon also applies the horizon window to events that are
	// not sliced. Without it only slice fragments are windowed.
	UniformHorizon bool

	// SourceOrder lists source URLs in the order they are merged. Sources
	// not listed follow in lexical order.
	SourceOrder []string
}

// OptionsFromConfig derives build options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	order := make([]string, 0, len(cfg.Calendars))
	for _, c := range cfg.Calendars {
		order = append(order, c.URL)
	}
	return Options{
		MaximumEntries:      cfg.MaximumEntries,
		MaximumNumberOfDays: cfg.MaximumNumberOfDays,
		HidePrivate:         cfg.HidePrivate,
		HideOngoing:         cfg.HideOngoing,
		SliceMultiDayEvents: cfg.SliceMultiDayEvents,
		UniformHorizon:      cfg.UniformHorizon,
		SourceOrder:         order,
	}
}

// dedupKey identifies an event for de-duplication.
type dedupKey struct {
	title string
	start int64 // epoch ms
}

func keyOf(title string, start time.Time) dedupKey {
	return dedupKey{title: title, start: start.UnixMilli()}
}

// Build merges the raw events of all sources into a single list sorted by
// start time and capped at opts.MaximumEntries.
//
// Day boundaries are those of now's location. Build does not modify its
// input and returns the same list for the same input and now.
func Build(events map[string][]model.RawEvent, opts Options, now time.Time) []model.EnrichedEvent {
	loc := now.Location()
	today := startOfDay(now)
	horizon := now.Add(time.Duration(opts.MaximumNumberOfDays) * day)

	inWindow := func(end time.Time) bool {
		return end.After(now) && !end.After(horizon)
	}

	out := make([]model.EnrichedEvent, 0)
	seen := make(map[dedupKey]struct{})

	for _, url := range mergeOrder(events, opts.SourceOrder) {
		for _, raw := range events[url] {
			if !valid(raw) {
				appLog.Debug("agenda: skipping event with invalid timestamps",
					"source", url, "title", raw.Title, "start", raw.StartDate, "end", raw.EndDate)
				continue
			}
			if opts.HidePrivate && strings.EqualFold(raw.Class, model.ClassPrivate) {
				continue
			}
			if opts.HideOngoing && raw.StartDate.Before(now) {
				continue
			}

			key := keyOf(raw.Title, raw.StartDate)
			if _, dup := seen[key]; dup {
				continue
			}

			ev := model.EnrichedEvent{RawEvent: raw, SourceID: url}
			ev.StartDate = raw.StartDate.In(loc)
			ev.EndDate = raw.EndDate.In(loc)
			ev.Buckets = classify(ev.StartDate, today)

			if opts.SliceMultiDayEvents && spannedDays(ev.StartDate, ev.EndDate) > 1 {
				admitted := false
				for _, frag := range sliceByDay(ev, today) {
					if !inWindow(frag.EndDate) {
						continue
					}
					fk := keyOf(frag.Title, frag.StartDate)
					if _, dup := seen[fk]; dup {
						continue
					}
					out = append(out, frag)
					seen[fk] = struct{}{}
					admitted = true
				}
				if admitted {
					seen[key] = struct{}{}
				}
				continue
			}

			if opts.UniformHorizon && !inWindow(ev.EndDate) {
				continue
			}
			out = append(out, ev)
			seen[key] = struct{}{}
		}
	}

	slices.SortStableFunc(out, func(a, b model.EnrichedEvent) int {
		return a.StartDate.Compare(b.StartDate)
	})

	limit := max(opts.MaximumEntries, 0)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// valid rejects records whose timestamps are missing or inverted.
func valid(ev model.RawEvent) bool {
	if ev.StartDate.IsZero() || ev.EndDate.IsZero() {
		return false
	}
	return !ev.EndDate.Before(ev.StartDate)
}

func mergeOrder(events map[string][]model.RawEvent, preferred []string) []string {
	order := make([]string, 0, len(events))
	listed := make(map[string]struct{}, len(preferred))
	for _, url := range preferred {
		if _, dup := listed[url]; dup {
			continue
		}
		listed[url] = struct{}{}
		if _, ok := events[url]; ok {
			order = append(order, url)
		}
	}
	for _, url := range slices.Sorted(maps.Keys(events)) {
		if _, ok := listed[url]; !ok {
			order = append(order, url)
		}
	}
	return order
}

// sliceByDay cuts ev at every local midnight it crosses. Each fragment's
// Today/Tomorrow flags are re-derived from its own start; the remaining
// bucket flags are inherited from ev unchanged.
func sliceByDay(ev model.EnrichedEvent, today time.Time) []model.EnrichedEvent {
	total := spannedDays(ev.StartDate, ev.EndDate)
	frags := make([]model.EnrichedEvent, 0, total)

	cur := ev
	midnight := nextMidnight(cur.StartDate)
	count := 1
	for cur.EndDate.After(midnight) {
		frag := cur
		frag.Today = isToday(frag.StartDate, today)
		frag.Tomorrow = !frag.Today && isTomorrow(frag.StartDate, today)
		frag.EndDate = midnight
		frag.Title = sliceTitle(ev.Title, count, total)
		frags = append(frags, frag)

		cur.StartDate = midnight
		count++
		midnight = midnight.AddDate(0, 0, 1)
	}

	last := cur
	last.Title = sliceTitle(ev.Title, count, total)
	last.Today = ev.Today || isToday(last.StartDate, today)
	last.Tomorrow = !last.Today && isTomorrow(last.StartDate, today)
	return append(frags, last)
}

func sliceTitle(title string, k, n int) string {
	return fmt.Sprintf("%s (%d/%d)", title, k, n)
}
