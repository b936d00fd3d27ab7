package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/models"
)

// MockGrantStore is a mock implementation of service.GrantStore
type MockGrantStore struct {
	mock.Mock
}

func (m *MockGrantStore) CreateWithTx(ctx context.Context, tx *database.Transaction, grant *models.DataAccessGrant) error {
	args := m.Called(ctx, tx, grant)
	return args.Error(0)
}

func (m *MockGrantStore) GetByID(ctx context.Context, grantID, orgID string) (*models.DataAccessGrant, error) {
	args := m.Called(ctx, grantID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DataAccessGrant), args.Error(1)
}

func (m *MockGrantStore) GetNonTerminalForUpdate(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string) (*models.DataAccessGrant, error) {
	args := m.Called(ctx, tx, doctorID, patientID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DataAccessGrant), args.Error(1)
}

func (m *MockGrantStore) GetAuthorizingWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string, nowMillis int64) (*models.DataAccessGrant, error) {
	args := m.Called(ctx, tx, doctorID, patientID, orgID, nowMillis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DataAccessGrant), args.Error(1)
}

func (m *MockGrantStore) UpdateWithTx(ctx context.Context, tx *database.Transaction, grant *models.DataAccessGrant) error {
	args := m.Called(ctx, tx, grant)
	return args.Error(0)
}

func (m *MockGrantStore) RevokeWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string, revokedAtMillis int64) (bool, error) {
	args := m.Called(ctx, tx, doctorID, patientID, orgID, revokedAtMillis)
	return args.Bool(0), args.Error(1)
}

func (m *MockGrantStore) HasTerminalWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string) (bool, error) {
	args := m.Called(ctx, tx, doctorID, patientID, orgID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGrantStore) ListByPatient(ctx context.Context, patientID, orgID string) ([]models.DataAccessGrant, error) {
	args := m.Called(ctx, patientID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DataAccessGrant), args.Error(1)
}
