package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/healthpoint/consent-access-api/internal/models"
)

// MockAuditLogStore is a mock implementation of service.AuditLogStore
type MockAuditLogStore struct {
	mock.Mock
}

func (m *MockAuditLogStore) Create(ctx context.Context, entry *models.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogStore) List(ctx context.Context, orgID string, filters models.AuditLogFilters, limit, offset int) ([]models.AuditLog, int, error) {
	args := m.Called(ctx, orgID, filters, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.AuditLog), args.Int(1), args.Error(2)
}

func (m *MockAuditLogStore) ListByActor(ctx context.Context, actorID, orgID string, limit int) ([]models.AuditLog, error) {
	args := m.Called(ctx, actorID, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditLog), args.Error(1)
}

func (m *MockAuditLogStore) GetStats(ctx context.Context, orgID string, fromMillis int64) (*models.ComplianceStats, error) {
	args := m.Called(ctx, orgID, fromMillis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComplianceStats), args.Error(1)
}
