package sqlite

import (
	"context"
	"fmt"

	"github.com/awatari/storewatch/internal/models"
)

// AppendEvents inserts the events emitted by one run into the archive,
// atomically via a transaction.
func (r *Repository) AppendEvents(ctx context.Context, evs []models.Event) error {
	const opn = "repository.sqlite.AppendEvents"

	if len(evs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after a successful commit returns sql.ErrTxDone; nothing useful to act on.

	stmt, err := tx.PrepareContext(
		ctx,
		"INSERT INTO events (appid, kind, title, link, summary, image, ts) VALUES (?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare insert statement: %w", opn, err)
	}
	defer stmt.Close()

	for _, ev := range evs {
		if _, err = stmt.ExecContext(
			ctx, int64(ev.AppID), string(ev.Kind), ev.Title, ev.Link, ev.Summary, ev.Image, ev.Timestamp,
		); err != nil {
			return fmt.Errorf("%s: failed to insert event for app %d: %w", opn, ev.AppID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return nil
}

// RecentEvents returns up to limit archived events of the given kind,
// most recent first.
func (r *Repository) RecentEvents(ctx context.Context, kind models.EventKind, limit int) ([]models.Event, error) {
	const opn = "repository.sqlite.RecentEvents"

	rows, err := r.db.QueryContext(
		ctx,
		"SELECT appid, kind, title, link, summary, image, ts FROM events WHERE kind = ? ORDER BY ts DESC, id DESC LIMIT ?",
		string(kind), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query events: %w", opn, err)
	}
	defer rows.Close()

	var evs []models.Event
	for rows.Next() {
		var (
			ev    models.Event
			appID int64
			k     string
		)
		if err = rows.Scan(&appID, &k, &ev.Title, &ev.Link, &ev.Summary, &ev.Image, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("%s: failed to scan event: %w", opn, err)
		}
		ev.AppID = models.AppID(appID)
		ev.Kind = models.EventKind(k)
		evs = append(evs, ev)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return evs, nil
}

// PruneEventsBefore deletes archived events older than the timestamp and
// returns how many rows were removed.
func (r *Repository) PruneEventsBefore(ctx context.Context, ts int64) (int64, error) {
	const opn = "repository.sqlite.PruneEventsBefore"

	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE ts < ?", ts)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete events: %w", opn, err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to count deleted rows: %w", opn, err)
	}

	return removed, nil
}
