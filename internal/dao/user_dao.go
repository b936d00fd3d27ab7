package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/models"
)

const userColumns = `USER_ID, ROLE, NAME_ENC, EMAIL_ENC, EMAIL_HASH, PHONE_ENC,
	       MEDICAL_HISTORY_ENC, PASSWORD_HASH, CREATED_TIME, DELETED_TIME, ORG_ID`

// UserDAO handles database operations for actors (doctors, patients, admins)
type UserDAO struct {
	db *database.DB
}

// NewUserDAO creates a new UserDAO instance
func NewUserDAO(db *database.DB) *UserDAO {
	return &UserDAO{db: db}
}

// GetByID retrieves a user by ID
func (dao *UserDAO) GetByID(ctx context.Context, userID, orgID string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM ACTOR
		WHERE USER_ID = ? AND ORG_ID = ?
	`

	var user models.User
	err := dao.db.GetContext(ctx, &user, query, userID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetByIDWithTx retrieves a user inside the caller's transaction, sharing
// its snapshot with the permission check that authorized the read.
func (dao *UserDAO) GetByIDWithTx(ctx context.Context, tx *database.Transaction, userID, orgID string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM ACTOR
		WHERE USER_ID = ? AND ORG_ID = ?
	`

	var user models.User
	err := tx.GetContext(ctx, &user, query, userID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetByEmailHash looks a user up by the deterministic blind index of their
// email. The encrypted email column is never used for equality.
func (dao *UserDAO) GetByEmailHash(ctx context.Context, emailHash, orgID string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM ACTOR
		WHERE EMAIL_HASH = ? AND ORG_ID = ?
	`

	var user models.User
	err := dao.db.GetContext(ctx, &user, query, emailHash, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email hash: %w", err)
	}

	return &user, nil
}

// Anonymize overwrites the PII columns with the supplied encrypted sentinel,
// clears the blind index, disables credentials and stamps DELETED_TIME.
// The row itself and its USER_ID survive so audit entries keep resolving.
func (dao *UserDAO) Anonymize(ctx context.Context, userID, orgID, encryptedSentinel string, deletedAtMillis int64) error {
	query := `
		UPDATE ACTOR
		SET NAME_ENC = ?, EMAIL_ENC = ?, EMAIL_HASH = '', PHONE_ENC = ?,
		    MEDICAL_HISTORY_ENC = NULL, PASSWORD_HASH = NULL, DELETED_TIME = ?
		WHERE USER_ID = ? AND ORG_ID = ?
	`

	result, err := dao.db.ExecContext(
		ctx,
		query,
		encryptedSentinel,
		encryptedSentinel,
		encryptedSentinel,
		deletedAtMillis,
		userID,
		orgID,
	)
	if err != nil {
		return fmt.Errorf("failed to anonymize user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check anonymize result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}

	return nil
}
