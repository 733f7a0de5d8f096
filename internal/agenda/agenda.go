// Package agenda turns the raw events of all calendar sources into the
// capped, sorted list shown on the display, and decorates that list for
// presentation and for broadcast to other modules.
package agenda

import (
	"slices"
	"time"

	"agendacal/internal/calprop"
	"agendacal/internal/config"
	appLog "agendacal/internal/log"
	"agendacal/internal/model"
	"agendacal/internal/title"
)

// Agenda bundles build options with the compiled per-calendar and
// title rules. It is immutable after New and safe for concurrent use.
type Agenda struct {
	opts   Options
	props  *calprop.Resolver
	custom []customRule
	titles []title.Rule

	wrapEvents          bool
	maxTitleLength      int
	displayRepeatingCnt bool
}

// New compiles the configuration. Malformed title_replace or
// custom_events patterns are logged and skipped.
func New(cfg *config.Config, props *calprop.Resolver) *Agenda {
	a := &Agenda{
		opts:                OptionsFromConfig(cfg),
		props:               props,
		wrapEvents:          cfg.WrapEvents,
		maxTitleLength:      cfg.MaxTitleLength,
		displayRepeatingCnt: cfg.DisplayRepeatingCountTitle,
	}

	var err error
	a.titles, err = title.Compile(cfg.TitleReplace)
	logRuleErrors("skipping title_replace rule", err)

	a.custom, err = compileCustomEvents(cfg.CustomEvents)
	logRuleErrors("skipping custom_events rule", err)

	return a
}

func logRuleErrors(msg string, err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			appLog.Warn(msg, "reason", e.Error())
		}
		return
	}
	appLog.Warn(msg, "reason", err.Error())
}

// Options returns the build options in effect.
func (a *Agenda) Options() Options {
	return a.opts
}

// Build runs Build with the agenda's options.
func (a *Agenda) Build(events map[string][]model.RawEvent, now time.Time) []model.EnrichedEvent {
	return Build(events, a.opts, now)
}

// SymbolsForEvent resolves the symbols shown next to ev: the calendar's
// symbols, preceded by its recurring/full-day symbols where they apply,
// with the first slot replaced by the first matching custom event.
func (a *Agenda) SymbolsForEvent(ev model.EnrichedEvent) []string {
	url := ev.SourceID
	symbols := a.props.Symbols(url, calprop.Symbol)

	if ev.RecurringEvent && a.props.HasSymbols(url, calprop.RecurringSymbol) {
		symbols = mergeUnique(a.props.Symbols(url, calprop.RecurringSymbol), symbols)
	}
	if ev.FullDayEvent && a.props.HasSymbols(url, calprop.FullDaySymbol) {
		symbols = mergeUnique(a.props.Symbols(url, calprop.FullDaySymbol), symbols)
	}

	for _, r := range a.custom {
		if r.symbol == "" || !r.re.MatchString(ev.Title) {
			continue
		}
		sym := a.props.SymbolClassName(url) + r.symbol
		if len(symbols) == 0 {
			symbols = []string{sym}
		} else {
			symbols[0] = sym
		}
		break
	}
	return symbols
}

// ColorForEvent is the color of the first custom event with a color whose
// keyword matches, else the calendar's color.
func (a *Agenda) ColorForEvent(ev model.EnrichedEvent) string {
	for _, r := range a.custom {
		if r.color != "" && r.re.MatchString(ev.Title) {
			return r.color
		}
	}
	return a.props.Color(ev.SourceID)
}

// TransformTitle applies title_replace and then wraps or truncates.
func (a *Agenda) TransformTitle(s string) string {
	return title.Transform(s, a.titles, a.wrapEvents, a.maxTitleLength)
}

// Broadcast converts a built list into the shape sent to other modules.
func (a *Agenda) Broadcast(events []model.EnrichedEvent) []model.BroadcastEvent {
	out := make([]model.BroadcastEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, model.BroadcastEvent{
			Title:              ev.Title,
			StartDate:          ev.StartDate.UnixMilli(),
			EndDate:            ev.EndDate.UnixMilli(),
			FullDayEvent:       ev.FullDayEvent,
			RecurringEvent:     ev.RecurringEvent,
			Class:              ev.Class,
			FirstYear:          ev.FirstYear,
			UID:                ev.UID,
			Location:           ev.Location,
			Description:        ev.Description,
			Today:              ev.Today,
			Yesterday:          ev.Yesterday,
			DayBeforeYesterday: ev.DayBeforeYesterday,
			Tomorrow:           ev.Tomorrow,
			DayAfterTomorrow:   ev.DayAfterTomorrow,
			Symbol:             a.SymbolsForEvent(ev),
			CalendarName:       a.props.Name(ev.SourceID),
			Color:              a.ColorForEvent(ev),
		})
	}
	return out
}

// mergeUnique returns first followed by the items of second that first
// does not already contain.
func mergeUnique(first, second []string) []string {
	out := slices.Clone(first)
	for _, s := range second {
		if !slices.Contains(first, s) {
			out = append(out, s)
		}
	}
	return out
}
