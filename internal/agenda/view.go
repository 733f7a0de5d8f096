package agenda

import (
	"fmt"
	"time"

	"agendacal/internal/model"
	"agendacal/internal/store"
)

// State is what the display should show as a whole.
type State string

const (
	// StateLoading: no source has reported yet.
	StateLoading State = "loading"
	// StateError: the last ingestion failed; the list is suppressed.
	StateError State = "error"
	// StateEmpty: data arrived but nothing is on the agenda.
	StateEmpty State = "empty"
	StateReady State = "ok"
)

// View is the presentation-ready agenda.
type View struct {
	State       State       `json:"state"`
	Error       string      `json:"error,omitempty"`
	ErrorSource string      `json:"error_source,omitempty"`
	Events      []ViewEvent `json:"events"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// ViewEvent is a single display row.
type ViewEvent struct {
	Title        string    `json:"title"`
	RawTitle     string    `json:"raw_title"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	FullDay      bool      `json:"full_day"`
	Recurring    bool      `json:"recurring"`
	Bucket       string    `json:"bucket,omitempty"`
	Symbols      []string  `json:"symbols"`
	Color        string    `json:"color"`
	CalendarName string    `json:"calendar_name,omitempty"`
	TitleClass   string    `json:"title_class,omitempty"`
	SymbolClass  string    `json:"symbol_class,omitempty"`
	TimeClass    string    `json:"time_class,omitempty"`
}

// View builds the agenda from snap and decorates it for display.
func (a *Agenda) View(snap *store.Snapshot, now time.Time) View {
	v := View{Events: []ViewEvent{}, GeneratedAt: now}

	if snap.Err != nil {
		v.State = StateError
		v.Error = snap.Err.Error()
		v.ErrorSource = snap.ErrSource
		return v
	}

	events := a.Build(snap.Events, now)
	if len(events) == 0 {
		v.State = StateEmpty
		if !snap.Loaded {
			v.State = StateLoading
		}
		return v
	}

	v.State = StateReady
	for _, ev := range events {
		v.Events = append(v.Events, a.viewEvent(ev))
	}
	return v
}

func (a *Agenda) viewEvent(ev model.EnrichedEvent) ViewEvent {
	url := ev.SourceID
	return ViewEvent{
		Title:        a.TransformTitle(ev.Title) + a.repeatingCountSuffix(ev),
		RawTitle:     ev.Title,
		Start:        ev.StartDate,
		End:          ev.EndDate,
		FullDay:      ev.FullDayEvent,
		Recurring:    ev.RecurringEvent,
		Bucket:       ev.Buckets.Name(),
		Symbols:      a.SymbolsForEvent(ev),
		Color:        a.ColorForEvent(ev),
		CalendarName: a.props.Name(url),
		TitleClass:   a.props.TitleClass(url),
		SymbolClass:  a.props.SymbolClass(url),
		TimeClass:    a.props.TimeClass(url),
	}
}

// repeatingCountSuffix renders ", <n>. <title>" for anniversaries, where n
// is the number of years since the first occurrence.
func (a *Agenda) repeatingCountSuffix(ev model.EnrichedEvent) string {
	if !a.displayRepeatingCnt || ev.FirstYear == 0 {
		return ""
	}
	countTitle := a.props.RepeatingCountTitle(ev.SourceID)
	if countTitle == "" {
		return ""
	}
	return fmt.Sprintf(", %d. %s", ev.StartDate.Year()-ev.FirstYear, countTitle)
}
