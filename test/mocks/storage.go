package mocks

import (
	"context"

	"github.com/awatari/storewatch/internal/models"
	"github.com/awatari/storewatch/internal/state"
	"github.com/stretchr/testify/mock"
)

// Saver mocks the state persistence hook of the crawler.
type Saver struct {
	mock.Mock
}

func (m *Saver) Save(st *state.CrawlState) error {
	args := m.Called(st)
	return args.Error(0)
}

// EventArchive mocks the durable emitted-event log.
type EventArchive struct {
	mock.Mock
}

func (m *EventArchive) AppendEvents(ctx context.Context, evs []models.Event) error {
	args := m.Called(ctx, evs)
	return args.Error(0)
}

func (m *EventArchive) RecentEvents(ctx context.Context, kind models.EventKind, limit int) ([]models.Event, error) {
	args := m.Called(ctx, kind, limit)
	if evs, ok := args.Get(0).([]models.Event); ok {
		return evs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventArchive) PruneEventsBefore(ctx context.Context, ts int64) (int64, error) {
	args := m.Called(ctx, ts)
	return args.Get(0).(int64), args.Error(1)
}

// SubscriberRegistry mocks the chat registry used by the notifier.
type SubscriberRegistry struct {
	mock.Mock
}

func (m *SubscriberRegistry) SubscribeChat(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *SubscriberRegistry) UnsubscribeChat(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *SubscriberRegistry) GetSubscribedChats(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if chats, ok := args.Get(0).([]int64); ok {
		return chats, args.Error(1)
	}
	return nil, args.Error(1)
}
