// Package crawler orchestrates one full scan run: batch assembly, fetching,
// change detection, event folding and durable persistence.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/awatari/storewatch/internal/events"
	"github.com/awatari/storewatch/internal/models"
	"github.com/awatari/storewatch/internal/repository"
	"github.com/awatari/storewatch/internal/scanner"
	"github.com/awatari/storewatch/internal/snapshot"
	"github.com/awatari/storewatch/internal/state"
	"github.com/awatari/storewatch/internal/steam"
)

// Fetcher resolves one identifier against the detail source.
type Fetcher interface {
	FetchDetails(ctx context.Context, id models.AppID) (*models.AppRecord, error)
}

// Saver persists the crawl state. Injected so the orchestrator can attempt
// persistence on both success and failure exit paths without knowing the
// storage location.
type Saver interface {
	Save(st *state.CrawlState) error
}

// Options bounds one run.
type Options struct {
	BatchSize  int           // rolling window size
	ArrivalCap int           // max new arrivals per run
	PendingCap int           // max pending retries per run
	MaxNew     int           // bounded New event window
	MaxChanged int           // bounded Changed event window
	RunBudget  time.Duration // wall-clock deadline; zero disables
	Retain     time.Duration // archive retention; zero disables pruning
}

// RunReport summarizes what a run did; rendered as the final progress log
// and handed to the announcement path.
type RunReport struct {
	Attempted int
	NewFound  int
	Changed   int
	Pending   int
	Cursor    int
	Total     int
	Emitted   []models.Event
}

// Crawler is the single-worker orchestrator of one run.
type Crawler struct {
	log     *slog.Logger
	fetcher Fetcher
	scan    *scanner.Scanner
	st      *state.CrawlState
	saver   Saver
	archive repository.EventArchive
	opts    Options

	now func() time.Time
}

// NewCrawler creates the orchestrator. The archive may be nil, which
// disables event archiving.
func NewCrawler(
	log *slog.Logger,
	fetcher Fetcher,
	scan *scanner.Scanner,
	st *state.CrawlState,
	saver Saver,
	archive repository.EventArchive,
	opts Options,
) *Crawler {
	return &Crawler{
		log:     log,
		fetcher: fetcher,
		scan:    scan,
		st:      st,
		saver:   saver,
		archive: archive,
		opts:    opts,
		now:     time.Now,
	}
}

// Run executes one bounded scan. State persistence is attempted on every
// exit path, so a failing run still commits the progress it made.
func (c *Crawler) Run(ctx context.Context) (report *RunReport, err error) {
	const opn = "crawler.Run"
	log := c.log.With("op", opn)

	started := c.now()
	var deadline time.Time
	if c.opts.RunBudget > 0 {
		deadline = started.Add(c.opts.RunBudget)
	}

	evStore := events.NewStore(c.st.NewEvents, c.st.ChangeEvents, c.opts.MaxNew, c.opts.MaxChanged)
	report = &RunReport{}

	defer func() {
		// Fold the bounded windows back into the aggregate, archive and
		// persist, regardless of how the run ended. The archive uses a
		// detached context so a canceled run still commits its events.
		c.st.NewEvents = evStore.NewEvents()
		c.st.ChangeEvents = evStore.ChangeEvents()
		c.st.Stats.LastRun = c.now().Unix()
		c.st.Stats.TotalApps = len(c.st.Ordering)
		c.st.Stats.LastPublished = len(evStore.Emitted())

		c.archiveRun(context.WithoutCancel(ctx), evStore.Emitted())

		if saveErr := c.saver.Save(c.st); saveErr != nil {
			log.Error("Failed to persist crawl state", "err", saveErr)
			if err == nil {
				err = fmt.Errorf("%s: %w", opn, saveErr)
			}
		}

		report.Pending = len(c.st.Pending)
		report.Cursor = c.st.Cursor
		report.Total = len(c.st.Ordering)
		report.Emitted = evStore.Emitted()
	}()

	// 1. Refresh the identifier ordering; a listing failure keeps the
	// cached copy and the run continues.
	if refreshErr := c.scan.Refresh(ctx); refreshErr != nil {
		log.WarnContext(ctx, "Proceeding with cached ordering", "err", refreshErr)
	}

	// 2. Fresh arrivals run ahead of the rolling window, then a sample of
	// the pending queue. Neither moves the cursor.
	priority := append(c.scan.NewArrivals(c.opts.ArrivalCap), c.scan.PendingSample(c.opts.PendingCap)...)
	for _, id := range priority {
		if expired(deadline, c.now()) {
			log.InfoContext(ctx, "Run budget exhausted during priority batch")
			return report, nil
		}
		if procErr := c.processOne(ctx, id, evStore, report); procErr != nil {
			return report, fmt.Errorf("%s: %w", opn, procErr)
		}
	}

	// 3. The rolling window; the cursor advances only past identifiers
	// actually attempted, so a truncated batch resumes where it stopped.
	window := c.scan.Window(c.opts.BatchSize)
	attempted := 0
	defer func() { c.scan.Advance(attempted) }()

	for _, id := range window {
		if expired(deadline, c.now()) {
			log.InfoContext(ctx, "Run budget exhausted mid-window", "attempted", attempted)
			break
		}
		if procErr := c.processOne(ctx, id, evStore, report); procErr != nil {
			return report, fmt.Errorf("%s: %w", opn, procErr)
		}
		attempted++
	}

	log.InfoContext(ctx, "Run complete",
		"attempted", report.Attempted,
		"new", report.NewFound,
		"changed", report.Changed,
		"pending", len(c.st.Pending),
		"cursor", c.st.Cursor,
		"total", len(c.st.Ordering),
		"elapsed", c.now().Sub(started).Round(time.Millisecond),
	)

	return report, nil
}

// processOne resolves a single identifier and classifies it as new, changed
// or unchanged. Fetch errors are isolated to the identifier; only context
// cancellation aborts the batch.
func (c *Crawler) processOne(ctx context.Context, id models.AppID, evStore *events.Store, report *RunReport) error {
	report.Attempted++
	now := c.now().Unix()

	rec, err := c.fetcher.FetchDetails(ctx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Not yet visible (or degraded retry failure): remember the
		// encounter and queue the identifier for a later run, unless it
		// already resolved once before.
		c.st.MarkSeen(id, false, now)
		if entry := c.st.Seen[id]; !entry.Detected {
			c.st.EnqueuePending(id)
		}
		if !errors.Is(err, steam.ErrNotFound) {
			c.log.WarnContext(ctx, "Fetch failed, identifier stays pending", "appid", id, "err", err)
		}
		return nil
	}

	snap := snapshot.Extract(rec)
	entry := c.st.Seen[id]

	switch {
	case !entry.Detected:
		// First successful resolution: a newly published store page.
		if evStore.AddNew(models.Event{
			AppID:     id,
			Kind:      models.EventNew,
			Title:     snap.Name,
			Link:      id.StoreURL(),
			Image:     snap.HeaderImage,
			Timestamp: now,
		}) {
			report.NewFound++
		}
	default:
		if prev, ok := c.st.Snapshot(id); ok {
			if changes := snapshot.Diff(prev, snap); len(changes) > 0 {
				evStore.AddChanged(models.Event{
					AppID:     id,
					Kind:      models.EventChanged,
					Title:     snap.Name,
					Link:      id.StoreURL(),
					Summary:   snapshot.Summarize(changes),
					Image:     snap.HeaderImage,
					Timestamp: now,
				})
				report.Changed++
			}
		}
	}

	c.st.MarkSeen(id, true, now)
	c.st.ResolvePending(id)
	c.st.Snapshots[id] = snap

	return nil
}

// archiveRun appends the emitted events to the durable archive and prunes
// expired entries. Archive failures are logged, not fatal: the feed windows
// in the crawl state remain the source of truth.
func (c *Crawler) archiveRun(ctx context.Context, emitted []models.Event) {
	if c.archive == nil {
		return
	}

	if err := c.archive.AppendEvents(ctx, emitted); err != nil {
		c.log.WarnContext(ctx, "Failed to archive events", "err", err)
	}

	if c.opts.Retain > 0 {
		cutoff := c.now().Add(-c.opts.Retain).Unix()
		if removed, err := c.archive.PruneEventsBefore(ctx, cutoff); err != nil {
			c.log.WarnContext(ctx, "Failed to prune event archive", "err", err)
		} else if removed > 0 {
			c.log.DebugContext(ctx, "Pruned event archive", "removed", removed)
		}
	}
}

func expired(deadline, now time.Time) bool {
	return !deadline.IsZero() && !now.Before(deadline)
}
