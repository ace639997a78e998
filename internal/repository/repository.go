// Package repository declares the persistence contracts shared by the
// concrete storage backends.
package repository

import (
	"context"

	"github.com/awatari/storewatch/internal/models"
)

// EventArchive is the append-only log of every emitted event, kept beyond
// the bounded feed window for retention and inspection.
type EventArchive interface {
	// AppendEvents records the events emitted by one run.
	AppendEvents(ctx context.Context, evs []models.Event) error
	// RecentEvents returns up to limit archived events of one kind,
	// most recent first.
	RecentEvents(ctx context.Context, kind models.EventKind, limit int) ([]models.Event, error)
	// PruneEventsBefore deletes archived events older than the timestamp
	// and reports how many were removed.
	PruneEventsBefore(ctx context.Context, ts int64) (int64, error)
}

// SubscriberRegistry stores the chats that receive run announcements.
type SubscriberRegistry interface {
	SubscribeChat(ctx context.Context, chatID int64) error
	UnsubscribeChat(ctx context.Context, chatID int64) error
	GetSubscribedChats(ctx context.Context) ([]int64, error)
}
