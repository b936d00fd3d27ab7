package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/models"
)

const grantColumns = `GRANT_ID, DOCTOR_ID, PATIENT_ID, CURRENT_STATUS, ACCESS_LEVEL,
	       AI_ACCESS_PERMISSION, GRANTED_TIME, EXPIRY_TIME, REVOKED_TIME,
	       APPOINTMENT_ID, GRANT_REASON, ORG_ID`

// GrantDAO handles database operations for data access grants
type GrantDAO struct {
	db *database.DB
}

// NewGrantDAO creates a new GrantDAO instance
func NewGrantDAO(db *database.DB) *GrantDAO {
	return &GrantDAO{db: db}
}

// CreateWithTx inserts a new grant within a transaction. The PHI_ACCESS_GRANT
// table carries a unique index over (DOCTOR_ID, PATIENT_ID, ACTIVE_KEY) where
// ACTIVE_KEY is non-NULL only for pending/active rows, so a concurrent insert
// of a second non-terminal row for the same pair fails with a duplicate-key
// error instead of violating the at-most-one-effective-grant invariant.
func (dao *GrantDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, grant *models.DataAccessGrant) error {
	query := `
		INSERT INTO PHI_ACCESS_GRANT (
			GRANT_ID, DOCTOR_ID, PATIENT_ID, CURRENT_STATUS, ACCESS_LEVEL,
			AI_ACCESS_PERMISSION, GRANTED_TIME, EXPIRY_TIME, REVOKED_TIME,
			APPOINTMENT_ID, GRANT_REASON, ORG_ID
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		grant.GrantID,
		grant.DoctorID,
		grant.PatientID,
		grant.Status,
		grant.AccessLevel,
		grant.AIAccessPermission,
		grant.GrantedTime,
		grant.ExpiryTime,
		grant.RevokedTime,
		grant.AppointmentID,
		grant.GrantReason,
		grant.OrgID,
	)

	if err != nil {
		return fmt.Errorf("failed to create grant: %w", err)
	}

	return nil
}

// GetByID retrieves a grant by ID
func (dao *GrantDAO) GetByID(ctx context.Context, grantID, orgID string) (*models.DataAccessGrant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM PHI_ACCESS_GRANT
		WHERE GRANT_ID = ? AND ORG_ID = ?
	`

	var grant models.DataAccessGrant
	err := dao.db.GetContext(ctx, &grant, query, grantID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}

	return &grant, nil
}

// GetNonTerminalForUpdate locks and returns the single pending/active row for
// a (doctor, patient) pair, or nil when none exists. Must run inside a
// transaction: the row lock serializes concurrent upserts for the pair.
func (dao *GrantDAO) GetNonTerminalForUpdate(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string) (*models.DataAccessGrant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM PHI_ACCESS_GRANT
		WHERE DOCTOR_ID = ? AND PATIENT_ID = ? AND ORG_ID = ?
		  AND CURRENT_STATUS IN ('pending', 'active')
		FOR UPDATE
	`

	var grant models.DataAccessGrant
	err := tx.GetContext(ctx, &grant, query, doctorID, patientID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get grant for update: %w", err)
	}

	return &grant, nil
}

// GetAuthorizingWithTx returns the active, unexpired grant for a pair within
// the caller's transaction, or nil when none authorizes access. Expiry is
// checked against the supplied timestamp regardless of the stored status
// (lazy expiry).
func (dao *GrantDAO) GetAuthorizingWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string, nowMillis int64) (*models.DataAccessGrant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM PHI_ACCESS_GRANT
		WHERE DOCTOR_ID = ? AND PATIENT_ID = ? AND ORG_ID = ?
		  AND CURRENT_STATUS = 'active'
		  AND (EXPIRY_TIME IS NULL OR EXPIRY_TIME > ?)
	`

	var grant models.DataAccessGrant
	err := tx.GetContext(ctx, &grant, query, doctorID, patientID, orgID, nowMillis)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get authorizing grant: %w", err)
	}

	return &grant, nil
}

// UpdateWithTx rewrites the mutable fields of a grant within a transaction
func (dao *GrantDAO) UpdateWithTx(ctx context.Context, tx *database.Transaction, grant *models.DataAccessGrant) error {
	query := `
		UPDATE PHI_ACCESS_GRANT
		SET CURRENT_STATUS = ?, ACCESS_LEVEL = ?, AI_ACCESS_PERMISSION = ?,
		    GRANTED_TIME = ?, EXPIRY_TIME = ?, REVOKED_TIME = ?, GRANT_REASON = ?
		WHERE GRANT_ID = ? AND ORG_ID = ?
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		grant.Status,
		grant.AccessLevel,
		grant.AIAccessPermission,
		grant.GrantedTime,
		grant.ExpiryTime,
		grant.RevokedTime,
		grant.GrantReason,
		grant.GrantID,
		grant.OrgID,
	)
	if err != nil {
		return fmt.Errorf("failed to update grant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("grant not found: %s", grant.GrantID)
	}

	return nil
}

// RevokeWithTx marks the pending/active row for a pair as revoked. Returns
// false when no such row exists. Revoked rows are terminal and never touched
// again; grants are never hard-deleted.
func (dao *GrantDAO) RevokeWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string, revokedAtMillis int64) (bool, error) {
	query := `
		UPDATE PHI_ACCESS_GRANT
		SET CURRENT_STATUS = 'revoked', REVOKED_TIME = ?
		WHERE DOCTOR_ID = ? AND PATIENT_ID = ? AND ORG_ID = ?
		  AND CURRENT_STATUS IN ('pending', 'active')
	`

	result, err := tx.ExecContext(ctx, query, revokedAtMillis, doctorID, patientID, orgID)
	if err != nil {
		return false, fmt.Errorf("failed to revoke grant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check revoke result: %w", err)
	}

	return rows > 0, nil
}

// HasTerminalWithTx reports whether the pair has any revoked or expired row.
// Used to tell "already revoked" apart from "never granted" when a revoke
// finds no non-terminal row to act on.
func (dao *GrantDAO) HasTerminalWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM PHI_ACCESS_GRANT
			WHERE DOCTOR_ID = ? AND PATIENT_ID = ? AND ORG_ID = ?
			  AND CURRENT_STATUS IN ('revoked', 'expired')
		)
	`

	var exists bool
	if err := tx.GetContext(ctx, &exists, query, doctorID, patientID, orgID); err != nil {
		return false, fmt.Errorf("failed to check for terminal grants: %w", err)
	}

	return exists, nil
}

// ListByPatient returns all grants for a patient, newest first. Terminal
// grants are included: they remain for audit purposes.
func (dao *GrantDAO) ListByPatient(ctx context.Context, patientID, orgID string) ([]models.DataAccessGrant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM PHI_ACCESS_GRANT
		WHERE PATIENT_ID = ? AND ORG_ID = ?
		ORDER BY GRANTED_TIME DESC
	`

	grants := []models.DataAccessGrant{}
	if err := dao.db.SelectContext(ctx, &grants, query, patientID, orgID); err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}

	return grants, nil
}

// IsDuplicateKeyError reports whether err is a MySQL duplicate-key violation
// (error 1062), which the upsert path treats as "another writer inserted the
// pair's row first" and retries by re-reading.
func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
