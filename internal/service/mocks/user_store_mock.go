package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/models"
)

// MockUserStore is a mock implementation of service.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, userID, orgID string) (*models.User, error) {
	args := m.Called(ctx, userID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) GetByIDWithTx(ctx context.Context, tx *database.Transaction, userID, orgID string) (*models.User, error) {
	args := m.Called(ctx, tx, userID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) GetByEmailHash(ctx context.Context, emailHash, orgID string) (*models.User, error) {
	args := m.Called(ctx, emailHash, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) Anonymize(ctx context.Context, userID, orgID, encryptedSentinel string, deletedAtMillis int64) error {
	args := m.Called(ctx, userID, orgID, encryptedSentinel, deletedAtMillis)
	return args.Error(0)
}
