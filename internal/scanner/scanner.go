// Package scanner owns the crawl cursor and decides which identifiers a run
// attempts: fresh arrivals, pending retries and the rolling window.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/awatari/storewatch/internal/models"
	"github.com/awatari/storewatch/internal/state"
)

// Lister is the external listing source for the full identifier ordering.
type Lister interface {
	ListAppIDs(ctx context.Context) ([]models.AppID, error)
}

// Scanner computes per-run batches over the periodically refreshed
// identifier ordering, wrapping around at the end.
type Scanner struct {
	log    *slog.Logger
	lister Lister
	st     *state.CrawlState
	rnd    *rand.Rand
}

// New creates a scanner over the loaded crawl state. The random source
// drives arrival and pending sampling and is injectable for tests.
func New(log *slog.Logger, lister Lister, st *state.CrawlState, rnd *rand.Rand) *Scanner {
	return &Scanner{log: log, lister: lister, st: st, rnd: rnd}
}

// Refresh replaces the cached identifier ordering with a fresh listing.
// A listing failure is not fatal: the scanner keeps the previous cached
// ordering and the run proceeds.
func (s *Scanner) Refresh(ctx context.Context) error {
	const opn = "scanner.Refresh"

	ids, err := s.lister.ListAppIDs(ctx)
	if err != nil || len(ids) == 0 {
		s.log.WarnContext(ctx, "Listing unavailable, keeping cached ordering",
			"op", opn, "cached", len(s.st.Ordering), "err", err)
		s.st.ClampCursor()
		if err != nil {
			return fmt.Errorf("%s: %w", opn, err)
		}
		return nil
	}

	s.st.Ordering = ids
	s.st.ClampCursor()

	s.log.InfoContext(ctx, "Refreshed identifier ordering", "total", len(ids))

	return nil
}

// NewArrivals returns identifiers present in the current ordering but never
// seen before, prioritized ahead of the rolling window. When more than
// limit arrive at once they are sampled uniformly at random, so late
// entries in the raw listing are not systematically starved.
func (s *Scanner) NewArrivals(limit int) []models.AppID {
	if limit <= 0 {
		return nil
	}

	var fresh []models.AppID
	for _, id := range s.st.Ordering {
		if _, seen := s.st.Seen[id]; !seen {
			fresh = append(fresh, id)
		}
	}

	if len(fresh) <= limit {
		return fresh
	}
	return s.sample(fresh, limit)
}

// PendingSample returns up to limit identifiers from the retry queue,
// sampled at random rather than FIFO so a single unresolvable identifier
// cannot block the queue while every entry keeps a bounded expected wait.
func (s *Scanner) PendingSample(limit int) []models.AppID {
	if limit <= 0 || len(s.st.Pending) == 0 {
		return nil
	}
	if len(s.st.Pending) <= limit {
		out := make([]models.AppID, len(s.st.Pending))
		copy(out, s.st.Pending)
		return out
	}
	return s.sample(s.st.Pending, limit)
}

// Window returns the contiguous batch of up to batch identifiers starting
// at the cursor, wrapping past the end of the ordering as a single logical
// window: a 10-item ordering with cursor=8 and batch=5 yields indices
// 8, 9, 0, 1, 2.
func (s *Scanner) Window(batch int) []models.AppID {
	total := len(s.st.Ordering)
	if total == 0 || batch <= 0 {
		return nil
	}
	if batch > total {
		batch = total
	}

	s.st.ClampCursor()

	out := make([]models.AppID, 0, batch)
	for i := range batch {
		out = append(out, s.st.Ordering[(s.st.Cursor+i)%total])
	}
	return out
}

// Advance moves the cursor past the identifiers actually attempted, modulo
// the ordering length. A deadline-truncated batch advances only as far as
// it got.
func (s *Scanner) Advance(attempted int) {
	total := len(s.st.Ordering)
	if total == 0 || attempted <= 0 {
		return
	}
	s.st.Cursor = (s.st.Cursor + attempted) % total
}

// sample picks limit elements uniformly at random without replacement.
// No ordering guarantee.
func (s *Scanner) sample(ids []models.AppID, limit int) []models.AppID {
	picked := make([]models.AppID, len(ids))
	copy(picked, ids)
	s.rnd.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked[:limit]
}
