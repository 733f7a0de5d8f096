package ics

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"agendacal/internal/calprop"
	"agendacal/internal/config"
	appLog "agendacal/internal/log"
	"agendacal/internal/model"
	"agendacal/internal/store"
)

// Ingestor refreshes every configured calendar into the store:
// fetch, parse, expand, filter, cap.
type Ingestor struct {
	fetcher *Fetcher
	store   *store.Store
	props   *calprop.Resolver
	loc     *time.Location

	calendars []config.Calendar
	excluded  []string
	maxDays   int
}

// NewIngestor wires an Ingestor. loc is the display location whose
// midnights define the past-days window.
func NewIngestor(cfg *config.Config, props *calprop.Resolver, st *store.Store, f *Fetcher, loc *time.Location) *Ingestor {
	if loc == nil {
		loc = time.Local
	}
	return &Ingestor{
		fetcher:   f,
		store:     st,
		props:     props,
		loc:       loc,
		calendars: uniqueCalendars(cfg.Calendars),
		excluded:  cfg.ExcludedEvents,
		maxDays:   cfg.MaximumNumberOfDays,
	}
}

// uniqueCalendars keeps the first calendar per URL.
func uniqueCalendars(cals []config.Calendar) []config.Calendar {
	out := make([]config.Calendar, 0, len(cals))
	seen := make(map[string]struct{}, len(cals))
	for _, c := range cals {
		if c.URL == "" {
			continue
		}
		if _, dup := seen[c.URL]; dup {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}

// RefreshAll refreshes each calendar in turn. Failures are recorded in the
// store and returned; they do not stop the remaining calendars. The count
// is the number of calendars whose events were replaced.
func (in *Ingestor) RefreshAll(ctx context.Context, now time.Time) (int, []error) {
	updated := 0
	var errs []error

	for _, cal := range in.calendars {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		events, err := in.refreshOne(ctx, cal, now)
		if err != nil {
			appLog.Error("calendar refresh failed", err, "url", redactURL(cal.URL))
			errs = append(errs, err)
			if ferr := in.store.Fail(cal.URL, err, now); ferr != nil {
				errs = append(errs, ferr)
			}
			continue
		}
		if err := in.store.Replace(cal.URL, events, now); err != nil {
			errs = append(errs, err)
			continue
		}
		updated++
		appLog.Info("calendar refreshed", "url", redactURL(cal.URL), "events", len(events))
	}
	return updated, errs
}

func (in *Ingestor) refreshOne(ctx context.Context, cal config.Calendar, now time.Time) ([]model.RawEvent, error) {
	src := Source{URL: cal.URL}
	if cal.Auth != nil {
		src.Username = cal.Auth.Username
		src.Password = cal.Auth.Password
	}

	res, err := in.fetcher.FetchOne(ctx, src)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseICS(cal.URL, res.Body)
	if err != nil {
		return nil, fmt.Errorf("ics: parse %s: %w", redactURL(cal.URL), err)
	}

	start, end := in.window(cal.URL, now)
	expanded, err := ExpandEvents(parsed, ExpandConfig{
		DisplayLocation: in.loc,
		RangeStart:      start,
		RangeEnd:        end,
	})
	if err != nil {
		return nil, err
	}

	excluded := in.excluded
	if cal.ExcludedEvents != nil {
		excluded = cal.ExcludedEvents
	}

	events := make([]model.RawEvent, 0, len(expanded.Events))
	for _, ev := range expanded.Events {
		if isExcluded(ev.Title, excluded) {
			continue
		}
		events = append(events, ev)
	}

	slices.SortStableFunc(events, func(a, b model.RawEvent) int {
		return a.StartDate.Compare(b.StartDate)
	})
	if limit := max(in.props.MaximumEntries(cal.URL), 0); len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// window is [midnight - pastDays, now + maxDays*24h] in the display
// location.
func (in *Ingestor) window(url string, now time.Time) (time.Time, time.Time) {
	local := now.In(in.loc)
	y, m, d := local.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, in.loc).AddDate(0, 0, -in.props.PastDaysCount(url))
	end := local.Add(time.Duration(in.maxDays) * 24 * time.Hour)
	return start, end
}

func isExcluded(title string, excluded []string) bool {
	lower := strings.ToLower(title)
	for _, ex := range excluded {
		if ex == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(ex)) {
			return true
		}
	}
	return false
}

