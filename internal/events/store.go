// Package events accumulates detected events in two independent bounded
// sequences, most-recent-first, with identity dedup for first-sight events.
package events

import (
	"github.com/awatari/storewatch/internal/models"
)

// Store wraps the two bounded event lists of the crawl state. It operates
// on the slices in place and returns the updated heads, so the caller keeps
// ownership of the persisted value.
type Store struct {
	maxNew     int
	maxChanged int

	newEvents    []models.Event
	changeEvents []models.Event
	emitted      []models.Event
}

// NewStore wraps the existing bounded lists loaded from state, truncating
// them to the caps so a lowered cap takes effect without waiting for the
// next insert. Caps of zero or less leave the lists unbounded.
func NewStore(newEvents, changeEvents []models.Event, maxNew, maxChanged int) *Store {
	return &Store{
		maxNew:       maxNew,
		maxChanged:   maxChanged,
		newEvents:    truncate(newEvents, maxNew),
		changeEvents: truncate(changeEvents, maxChanged),
	}
}

// AddNew inserts a first-sight event unless the identifier already has one
// in the current bounded list. Reports whether the event was inserted.
// The scan can reach the same identifier through both the new-arrival path
// and the pending-retry path within one run; this check keeps exactly one
// event.
func (s *Store) AddNew(ev models.Event) bool {
	for _, existing := range s.newEvents {
		if existing.AppID == ev.AppID {
			return false
		}
	}

	s.newEvents = prepend(s.newEvents, ev, s.maxNew)
	s.emitted = append(s.emitted, ev)

	return true
}

// AddChanged inserts a change event. Change events carry no cross-run
// identity dedup: each non-empty diff against the last persisted snapshot
// is its own event.
func (s *Store) AddChanged(ev models.Event) {
	s.changeEvents = prepend(s.changeEvents, ev, s.maxChanged)
	s.emitted = append(s.emitted, ev)
}

// NewEvents returns the bounded first-sight list, most-recent-first.
func (s *Store) NewEvents() []models.Event {
	return s.newEvents
}

// ChangeEvents returns the bounded change list, most-recent-first.
func (s *Store) ChangeEvents() []models.Event {
	return s.changeEvents
}

// Emitted returns every event inserted during this run, in insertion order.
func (s *Store) Emitted() []models.Event {
	return s.emitted
}

// prepend inserts at the head and truncates the tail to the cap.
func prepend(list []models.Event, ev models.Event, maxLen int) []models.Event {
	return truncate(append([]models.Event{ev}, list...), maxLen)
}

// truncate drops the oldest tail entries beyond the cap.
func truncate(list []models.Event, maxLen int) []models.Event {
	if maxLen > 0 && len(list) > maxLen {
		return list[:maxLen]
	}
	return list
}
