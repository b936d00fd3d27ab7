package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/models"
)

const appointmentColumns = `APPOINTMENT_ID, DOCTOR_ID, PATIENT_ID, CURRENT_STATUS,
	       REQUESTED_TIME, GRANT_ACCESS_TO_HISTORY, ORG_ID`

// AppointmentDAO reads scheduling records. The scheduling subsystem owns the
// APPOINTMENT table; this engine never writes to it.
type AppointmentDAO struct {
	db *database.DB
}

// NewAppointmentDAO creates a new AppointmentDAO instance
func NewAppointmentDAO(db *database.DB) *AppointmentDAO {
	return &AppointmentDAO{db: db}
}

// GetByID retrieves an appointment by ID
func (dao *AppointmentDAO) GetByID(ctx context.Context, appointmentID, orgID string) (*models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM APPOINTMENT
		WHERE APPOINTMENT_ID = ? AND ORG_ID = ?
	`

	var appointment models.Appointment
	err := dao.db.GetContext(ctx, &appointment, query, appointmentID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return &appointment, nil
}

// GetAuthorizingWithTx returns an appointment that implicitly authorizes the
// doctor for the patient at the given time: pending or accepted, with a
// requested date still in the future. Returns nil when no such appointment
// exists. Runs in the caller's transaction so the decision shares the PHI
// read's snapshot.
func (dao *AppointmentDAO) GetAuthorizingWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string, nowMillis int64) (*models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM APPOINTMENT
		WHERE DOCTOR_ID = ? AND PATIENT_ID = ? AND ORG_ID = ?
		  AND CURRENT_STATUS IN ('pending', 'accepted')
		  AND REQUESTED_TIME > ?
		ORDER BY REQUESTED_TIME ASC
		LIMIT 1
	`

	var appointment models.Appointment
	err := tx.GetContext(ctx, &appointment, query, doctorID, patientID, orgID, nowMillis)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get authorizing appointment: %w", err)
	}

	return &appointment, nil
}
