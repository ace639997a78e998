// Package mocks provides testify mocks for the narrow interfaces the
// services depend on.
package mocks

import (
	"context"

	"github.com/awatari/storewatch/internal/models"
	"github.com/stretchr/testify/mock"
)

// Fetcher mocks the detail source consumed by the crawler.
type Fetcher struct {
	mock.Mock
}

func (m *Fetcher) FetchDetails(ctx context.Context, id models.AppID) (*models.AppRecord, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*models.AppRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

// Lister mocks the listing source consumed by the scanner.
type Lister struct {
	mock.Mock
}

func (m *Lister) ListAppIDs(ctx context.Context) ([]models.AppID, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]models.AppID); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}
