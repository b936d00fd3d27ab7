package service

import (
	"context"

	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/models"
)

// GrantStore is the persistence contract for data access grants,
// implemented by dao.GrantDAO
type GrantStore interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, grant *models.DataAccessGrant) error
	GetByID(ctx context.Context, grantID, orgID string) (*models.DataAccessGrant, error)
	GetNonTerminalForUpdate(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string) (*models.DataAccessGrant, error)
	GetAuthorizingWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string, nowMillis int64) (*models.DataAccessGrant, error)
	UpdateWithTx(ctx context.Context, tx *database.Transaction, grant *models.DataAccessGrant) error
	RevokeWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string, revokedAtMillis int64) (bool, error)
	HasTerminalWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string) (bool, error)
	ListByPatient(ctx context.Context, patientID, orgID string) ([]models.DataAccessGrant, error)
}

// AppointmentStore is the read-only contract for scheduling records,
// implemented by dao.AppointmentDAO
type AppointmentStore interface {
	GetByID(ctx context.Context, appointmentID, orgID string) (*models.Appointment, error)
	GetAuthorizingWithTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string, nowMillis int64) (*models.Appointment, error)
}

// AuditLogStore is the append-only contract for audit entries,
// implemented by dao.AuditLogDAO
type AuditLogStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, orgID string, filters models.AuditLogFilters, limit, offset int) ([]models.AuditLog, int, error)
	ListByActor(ctx context.Context, actorID, orgID string, limit int) ([]models.AuditLog, error)
	GetStats(ctx context.Context, orgID string, fromMillis int64) (*models.ComplianceStats, error)
}

// UserStore is the persistence contract for actors,
// implemented by dao.UserDAO
type UserStore interface {
	GetByID(ctx context.Context, userID, orgID string) (*models.User, error)
	GetByIDWithTx(ctx context.Context, tx *database.Transaction, userID, orgID string) (*models.User, error)
	GetByEmailHash(ctx context.Context, emailHash, orgID string) (*models.User, error)
	Anonymize(ctx context.Context, userID, orgID, encryptedSentinel string, deletedAtMillis int64) error
}

// TxRunner executes a function inside a database transaction.
// *database.DB satisfies it; tests substitute a fake.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(*database.Transaction) error) error
}
