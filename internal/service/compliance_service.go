package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/healthpoint/consent-access-api/internal/crypto"
	"github.com/healthpoint/consent-access-api/internal/models"
	"github.com/healthpoint/consent-access-api/pkg/utils"
)

// anonymizedValue replaces every PII field of an erased account. It is
// stored encrypted like real values so the column format stays uniform.
const anonymizedValue = "[deleted]"

// recentActivityLimit caps the activity slice in the self-service export
const recentActivityLimit = 100

// ComplianceService serves data-subject rights: self-service export and
// account erasure.
type ComplianceService struct {
	userDAO  UserStore
	auditDAO AuditLogStore
	audit    *AuditService
	cipher   *crypto.Cipher
	logger   *logrus.Logger
}

// NewComplianceService creates a new compliance service instance
func NewComplianceService(userDAO UserStore, auditDAO AuditLogStore, audit *AuditService, cipher *crypto.Cipher, logger *logrus.Logger) *ComplianceService {
	return &ComplianceService{
		userDAO:  userDAO,
		auditDAO: auditDAO,
		audit:    audit,
		cipher:   cipher,
		logger:   logger,
	}
}

// ExportMyData returns everything stored about the calling user: decrypted
// profile fields plus their recent audit activity. Fields whose ciphertext
// cannot be decrypted carry the placeholder instead of failing the export.
func (s *ComplianceService) ExportMyData(ctx context.Context, userID, orgID string, reqMeta LogParams) (*models.MyDataResponse, error) {
	user, err := s.userDAO.GetByID(ctx, userID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	activity, err := s.auditDAO.ListByActor(ctx, userID, orgID, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	reqMeta.ActorID = userID
	reqMeta.OrgID = orgID
	reqMeta.Action = models.ActionExport
	reqMeta.ResourceType = models.ResourceTypeAccount
	reqMeta.ResourceID = userID
	if _, err := s.audit.LogAction(ctx, reqMeta); err != nil {
		return nil, err
	}

	return &models.MyDataResponse{
		UserID:      user.UserID,
		Role:        string(user.Role),
		Name:        s.cipher.DecryptOrPlaceholder(user.NameEncrypted),
		Email:       s.cipher.DecryptOrPlaceholder(user.EmailEncrypted),
		Phone:       s.cipher.DecryptOrPlaceholder(user.PhoneEncrypted),
		CreatedTime: user.CreatedTime,
		Activity:    activity,
	}, nil
}

// LookupActorByEmail resolves an email address to an actor via the blind
// index. Equality is the only supported lookup: the encrypted email column is
// non-deterministic and cannot be searched.
func (s *ComplianceService) LookupActorByEmail(ctx context.Context, email, orgID string) (*models.ActorLookupResponse, error) {
	user, err := s.userDAO.GetByEmailHash(ctx, s.cipher.BlindIndex(email), orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up actor: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	return &models.ActorLookupResponse{
		UserID:      user.UserID,
		Role:        string(user.Role),
		Deactivated: user.IsDeactivated(),
	}, nil
}

// AnonymizeAndDeactivate erases the calling user's account: PII columns are
// overwritten in place with the encrypted anonymized sentinel, the blind
// index is cleared, and the account is marked deleted. The row itself
// survives so audit entries keep a valid actor reference, and the audit
// trail is never touched. Irreversible.
func (s *ComplianceService) AnonymizeAndDeactivate(ctx context.Context, userID, orgID string, reqMeta LogParams) error {
	user, err := s.userDAO.GetByID(ctx, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return ErrNotFound
	}
	if user.IsDeactivated() {
		return fmt.Errorf("%w: account is already deactivated", ErrInvalidState)
	}

	sentinel, err := s.cipher.Encrypt(anonymizedValue)
	if err != nil {
		return fmt.Errorf("failed to prepare anonymized value: %w", err)
	}

	if err := s.userDAO.Anonymize(ctx, userID, orgID, sentinel, utils.GetCurrentTimeMillis()); err != nil {
		return fmt.Errorf("failed to anonymize account: %w", err)
	}

	reqMeta.ActorID = userID
	reqMeta.OrgID = orgID
	reqMeta.Action = models.ActionAccountDeleted
	reqMeta.ResourceType = models.ResourceTypeAccount
	reqMeta.ResourceID = userID
	if _, err := s.audit.LogAction(ctx, reqMeta); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"org_id":  orgID,
	}).Info("Account anonymized and deactivated")

	return nil
}
