package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/models"
)

// MockAppointmentStore is a mock implementation of service.AppointmentStore
type MockAppointmentStore struct {
	mock.Mock
}

func (m *MockAppointmentStore) GetByID(ctx context.Context, appointmentID, orgID string) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) GetAuthorizingWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string, nowMillis int64) (*models.Appointment, error) {
	args := m.Called(ctx, tx, doctorID, patientID, orgID, nowMillis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}
