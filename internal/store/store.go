// Package store holds the latest raw events of every calendar source.
//
// Writers replace a whole source at a time; readers get an immutable
// Snapshot. A snapshot is never modified after it has been published, so
// it can be handed to the agenda builder without locking.
package store

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"agendacal/internal/model"
)

// ErrUnknownSource is returned for writes to a URL that is not configured.
var ErrUnknownSource = errors.New("store: unknown calendar source")

// Snapshot is a point-in-time view of all sources. Callers must treat
// Events and the slices inside it as read-only.
type Snapshot struct {
	// Events maps source URL to that source's raw events.
	Events map[string][]model.RawEvent

	// Loaded is true once any source has delivered data or an error.
	Loaded bool

	// Err is the most recent ingestion error. It is cleared by the next
	// successful Replace of any source.
	Err       error
	ErrSource string

	UpdatedAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	mu    sync.Mutex // serializes writers
	known map[string]struct{}
	cur   atomic.Pointer[Snapshot]
}

// New creates a store that accepts data for the given source URLs only.
func New(urls []string) *Store {
	s := &Store{known: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.known[u] = struct{}{}
	}
	s.cur.Store(&Snapshot{Events: map[string][]model.RawEvent{}})
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.cur.Load()
}

// Replace swaps in a new event list for url.
func (s *Store) Replace(url string, events []model.RawEvent, at time.Time) error {
	if _, ok := s.known[url]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, url)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cur.Load()
	next := &Snapshot{
		Events:    maps.Clone(prev.Events),
		Loaded:    true,
		UpdatedAt: at,
	}
	next.Events[url] = slices.Clone(events)
	s.cur.Store(next)
	return nil
}

// Fail records an ingestion error for url. Previously stored events are
// kept; the error state tells the presentation side not to show them.
func (s *Store) Fail(url string, err error, at time.Time) error {
	if _, ok := s.known[url]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, url)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cur.Load()
	s.cur.Store(&Snapshot{
		Events:    prev.Events,
		Loaded:    true,
		Err:       err,
		ErrSource: url,
		UpdatedAt: at,
	})
	return nil
}
