// Package state holds the durable crawl aggregate and its atomic
// file-backed persistence.
package state

import (
	"github.com/awatari/storewatch/internal/models"
)

// Stats carries run bookkeeping persisted alongside the crawl state.
type Stats struct {
	LastRun       int64 `json:"last_run,omitempty"`
	TotalApps     int   `json:"total_apps,omitempty"`
	LastPublished int   `json:"last_published,omitempty"`
}

// CrawlState is the durable aggregate: cursor, seen-set, pending queue,
// snapshots, bounded event history and the cached identifier ordering.
// It is loaded once at run start, mutated freely during the run, and
// persisted exactly once at run end.
type CrawlState struct {
	Cursor       int                                `json:"cursor"`
	Seen         map[models.AppID]models.SeenEntry  `json:"-"`
	Pending      []models.AppID                     `json:"pending,omitempty"`
	Snapshots    map[models.AppID]models.Snapshot   `json:"snapshots,omitempty"`
	NewEvents    []models.Event                     `json:"new_events,omitempty"`
	ChangeEvents []models.Event                     `json:"change_events,omitempty"`
	Ordering     []models.AppID                     `json:"ordering,omitempty"`
	Stats        Stats                              `json:"stats"`
}

// Default returns the zero-valued state used when no store exists yet.
func Default() *CrawlState {
	return &CrawlState{
		Seen:      make(map[models.AppID]models.SeenEntry),
		Snapshots: make(map[models.AppID]models.Snapshot),
	}
}

// ClampCursor resets the cursor to zero when it falls outside the current
// ordering, e.g. after the ordering shrank or was freshly fetched.
func (s *CrawlState) ClampCursor() {
	if s.Cursor < 0 || s.Cursor >= len(s.Ordering) {
		s.Cursor = 0
	}
}

// IsPending reports whether the identifier is queued for retry.
func (s *CrawlState) IsPending(id models.AppID) bool {
	for _, p := range s.Pending {
		if p == id {
			return true
		}
	}
	return false
}

// EnqueuePending adds the identifier to the retry queue, keeping entries
// unique.
func (s *CrawlState) EnqueuePending(id models.AppID) {
	if s.IsPending(id) {
		return
	}
	s.Pending = append(s.Pending, id)
}

// ResolvePending removes the identifier from the retry queue permanently.
func (s *CrawlState) ResolvePending(id models.AppID) {
	for i, p := range s.Pending {
		if p == id {
			s.Pending = append(s.Pending[:i], s.Pending[i+1:]...)
			return
		}
	}
}

// MarkSeen records that the identifier has been encountered; detected marks
// it as resolved to a published store page. A detection timestamp is written
// only by the first run that resolves the identifier.
func (s *CrawlState) MarkSeen(id models.AppID, detected bool, now int64) {
	entry, ok := s.Seen[id]
	if detected && !entry.Detected {
		entry.Detected = true
		entry.DetectedAt = now
	}
	if !ok || detected {
		s.Seen[id] = entry
	}
}

// Snapshot returns the stored snapshot for an identifier, if any.
func (s *CrawlState) Snapshot(id models.AppID) (models.Snapshot, bool) {
	snap, ok := s.Snapshots[id]
	return snap, ok
}
