// Package calprop answers per-calendar questions (symbol, color, entry
// limits, ...) by looking up a calendar's override and falling back to the
// global default.
package calprop

import (
	"agendacal/internal/config"
)

// SymbolProperty selects one of the symbol-family overrides.
type SymbolProperty int

const (
	Symbol SymbolProperty = iota
	RecurringSymbol
	FullDaySymbol
)

func (p SymbolProperty) String() string {
	switch p {
	case Symbol:
		return "symbol"
	case RecurringSymbol:
		return "recurringSymbol"
	case FullDaySymbol:
		return "fullDaySymbol"
	}
	return "unknown"
}

func (p SymbolProperty) field(c *config.Calendar) *config.Symbols {
	switch p {
	case RecurringSymbol:
		return c.RecurringSymbol
	case FullDaySymbol:
		return c.FullDaySymbol
	default:
		return c.Symbol
	}
}

// Resolver resolves calendar properties against a fixed configuration.
// It keeps no state beyond the configuration it was built from.
type Resolver struct {
	calendars []config.Calendar
	defaults  Defaults
}

// Defaults are the global fallbacks used when no calendar overrides a
// property.
type Defaults struct {
	Symbol              string
	SymbolClassName     string
	Color               string
	RepeatingCountTitle string
	MaximumEntries      int
	PastDaysCount       int
}

// New builds a Resolver from the loaded configuration.
func New(cfg *config.Config) *Resolver {
	return &Resolver{
		calendars: cfg.Calendars,
		defaults: Defaults{
			Symbol:              cfg.DefaultSymbol,
			SymbolClassName:     cfg.DefaultSymbolClassName,
			Color:               cfg.DefaultColor,
			RepeatingCountTitle: cfg.DefaultRepeatingCountTitle,
			MaximumEntries:      cfg.MaximumEntries,
			PastDaysCount:       cfg.PastDaysCount,
		},
	}
}

// ResolveWithDefault returns the value of the first calendar with the given
// URL that sets the field picked by pick, or def if there is none. A set
// field wins even if it holds the zero value.
func ResolveWithDefault[T any](r *Resolver, url string, pick func(*config.Calendar) *T, def T) T {
	if v, ok := lookup(r, url, pick); ok {
		return v
	}
	return def
}

func lookup[T any](r *Resolver, url string, pick func(*config.Calendar) *T) (T, bool) {
	for i := range r.calendars {
		c := &r.calendars[i]
		if c.URL != url {
			continue
		}
		if p := pick(c); p != nil {
			return *p, true
		}
	}
	var zero T
	return zero, false
}

// Symbols resolves a symbol-family property as a list, each entry prefixed
// with the calendar's symbol class name. A calendar without the override
// yields the default symbol.
func (r *Resolver) Symbols(url string, prop SymbolProperty) []string {
	className := r.SymbolClassName(url)

	raw := []string{r.defaults.Symbol}
	if v, ok := lookup(r, url, prop.field); ok {
		raw = v
	}

	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = className + s
	}
	return out
}

// HasSymbols reports whether the calendar sets prop to a non-empty value.
func (r *Resolver) HasSymbols(url string, prop SymbolProperty) bool {
	v, ok := lookup(r, url, prop.field)
	if !ok {
		return false
	}
	for _, s := range v {
		if s != "" {
			return true
		}
	}
	return false
}

func (r *Resolver) SymbolClassName(url string) string {
	return ResolveWithDefault(r, url, func(c *config.Calendar) *string { return c.SymbolClassName }, r.defaults.SymbolClassName)
}

func (r *Resolver) Color(url string) string {
	return ResolveWithDefault(r, url, func(c *config.Calendar) *string { return c.Color }, r.defaults.Color)
}

// Name is the calendar's display name, "" if unnamed.
func (r *Resolver) Name(url string) string {
	return ResolveWithDefault(r, url, func(c *config.Calendar) *string { return c.Name }, "")
}

func (r *Resolver) TitleClass(url string) string {
	return ResolveWithDefault(r, url, func(c *config.Calendar) *string { return c.TitleClass }, "")
}

func (r *Resolver) SymbolClass(url string) string {
	return ResolveWithDefault(r, url, func(c *config.Calendar) *string { return c.SymbolClass }, "")
}

func (r *Resolver) TimeClass(url string) string {
	return ResolveWithDefault(r, url, func(c *config.Calendar) *string { return c.TimeClass }, "")
}

func (r *Resolver) RepeatingCountTitle(url string) string {
	return ResolveWithDefault(r, url, func(c *config.Calendar) *string { return c.RepeatingCountTitle }, r.defaults.RepeatingCountTitle)
}

func (r *Resolver) MaximumEntries(url string) int {
	return ResolveWithDefault(r, url, func(c *config.Calendar) *int { return c.MaximumEntries }, r.defaults.MaximumEntries)
}

func (r *Resolver) PastDaysCount(url string) int {
	return ResolveWithDefault(r, url, func(c *config.Calendar) *int { return c.PastDaysCount }, r.defaults.PastDaysCount)
}
