package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/healthpoint/consent-access-api/internal/dao"
	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/models"
	"github.com/healthpoint/consent-access-api/pkg/utils"
)

// upsertRetries bounds the duplicate-key retry loop in the grant upsert.
// One retry suffices: after a 1062 the competing row is committed and the
// re-read under FOR UPDATE finds it.
const upsertRetries = 2

// GrantService owns the data access grant lifecycle
type GrantService struct {
	grantDAO GrantStore
	apptDAO  AppointmentStore
	audit    *AuditService
	tx       TxRunner
	logger   *logrus.Logger
}

// NewGrantService creates a new grant service instance
func NewGrantService(grantDAO GrantStore, apptDAO AppointmentStore, audit *AuditService, tx TxRunner, logger *logrus.Logger) *GrantService {
	return &GrantService{
		grantDAO: grantDAO,
		apptDAO:  apptDAO,
		audit:    audit,
		tx:       tx,
		logger:   logger,
	}
}

// GrantAccess records a patient's consent for a doctor. If a pending or
// active grant already exists for the pair it is updated in place rather
// than duplicated, so the pair never holds more than one effective grant.
func (s *GrantService) GrantAccess(ctx context.Context, patientID, orgID string, req *models.GrantAPIRequest, reqMeta LogParams) (*models.DataAccessGrant, error) {
	if err := utils.ValidateActorID(req.DoctorID); err != nil {
		return nil, err
	}
	if err := utils.ValidateAccessLevel(req.AccessLevel); err != nil {
		return nil, err
	}
	if err := utils.ValidateExpiryDays(req.ExpiryDays); err != nil {
		return nil, err
	}

	var expiry *int64
	if req.ExpiryDays > 0 {
		e := utils.DaysFromNow(req.ExpiryDays)
		expiry = &e
	}

	var reason *string
	if r := utils.SanitizeString(req.Reason); r != "" {
		reason = &r
	}

	grant, err := s.upsertGrant(ctx, upsertParams{
		doctorID:           req.DoctorID,
		patientID:          patientID,
		orgID:              orgID,
		status:             models.GrantStatusActive,
		accessLevel:        models.AccessLevel(req.AccessLevel),
		aiAccessPermission: req.AIAccessPermission,
		expiryTime:         expiry,
		reason:             reason,
	})
	if err != nil {
		return nil, err
	}

	reqMeta.ActorID = patientID
	reqMeta.OrgID = orgID
	reqMeta.Action = models.ActionGrant
	reqMeta.ResourceType = models.ResourceTypeGrant
	reqMeta.ResourceID = grant.GrantID
	reqMeta.Metadata = map[string]interface{}{
		"doctor_id":    grant.DoctorID,
		"access_level": string(grant.AccessLevel),
	}
	if _, err := s.audit.LogAction(ctx, reqMeta); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"grant_id":   grant.GrantID,
		"patient_id": patientID,
		"doctor_id":  grant.DoctorID,
	}).Info("Access granted")

	return grant, nil
}

// RequestAccess records a doctor's request for access to a patient's records.
// The resulting grant is pending until the patient approves it. Repeating a
// request while one is already pending or active is idempotent: the existing
// grant is returned unchanged.
func (s *GrantService) RequestAccess(ctx context.Context, doctorID, orgID string, req *models.AccessRequestAPIRequest, reqMeta LogParams) (*models.DataAccessGrant, error) {
	if err := utils.ValidateActorID(req.PatientID); err != nil {
		return nil, err
	}

	var reason *string
	if r := utils.SanitizeString(req.Reason); r != "" {
		reason = &r
	}

	var grant *models.DataAccessGrant
	err := s.tx.WithTransaction(ctx, func(tx *database.Transaction) error {
		existing, err := s.grantDAO.GetNonTerminalForUpdate(ctx, tx, doctorID, req.PatientID, orgID)
		if err != nil {
			return err
		}
		if existing != nil {
			grant = existing
			return nil
		}

		grant = &models.DataAccessGrant{
			GrantID:     utils.GenerateGrantID(),
			DoctorID:    doctorID,
			PatientID:   req.PatientID,
			Status:      models.GrantStatusPending,
			AccessLevel: models.AccessLevelReadOnly,
			GrantedTime: utils.GetCurrentTimeMillis(),
			GrantReason: reason,
			OrgID:       orgID,
		}
		return s.grantDAO.CreateWithTx(ctx, tx, grant)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request access: %w", err)
	}

	reqMeta.ActorID = doctorID
	reqMeta.OrgID = orgID
	reqMeta.Action = models.ActionRequestAccess
	reqMeta.ResourceType = models.ResourceTypeGrant
	reqMeta.ResourceID = grant.GrantID
	reqMeta.Metadata = map[string]interface{}{"patient_id": req.PatientID}
	if _, err := s.audit.LogAction(ctx, reqMeta); err != nil {
		return nil, err
	}

	return grant, nil
}

// ApproveRequest activates a doctor's pending request. Only the patient the
// grant names may approve it.
func (s *GrantService) ApproveRequest(ctx context.Context, grantID, patientID, orgID string, accessLevel string, aiAccess bool, expiryDays int, reqMeta LogParams) (*models.DataAccessGrant, error) {
	if err := utils.ValidateGrantID(grantID); err != nil {
		return nil, err
	}
	if err := utils.ValidateAccessLevel(accessLevel); err != nil {
		return nil, err
	}
	if err := utils.ValidateExpiryDays(expiryDays); err != nil {
		return nil, err
	}

	var grant *models.DataAccessGrant
	err := s.tx.WithTransaction(ctx, func(tx *database.Transaction) error {
		existing, err := s.grantDAO.GetByID(ctx, grantID, orgID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		if existing.PatientID != patientID {
			return ErrForbidden
		}
		if existing.Status != models.GrantStatusPending {
			return fmt.Errorf("%w: grant %s is not pending", ErrInvalidState, grantID)
		}

		existing.Status = models.GrantStatusActive
		existing.AccessLevel = models.AccessLevel(accessLevel)
		existing.AIAccessPermission = aiAccess
		existing.GrantedTime = utils.GetCurrentTimeMillis()
		if expiryDays > 0 {
			e := utils.DaysFromNow(expiryDays)
			existing.ExpiryTime = &e
		} else {
			existing.ExpiryTime = nil
		}

		if err := s.grantDAO.UpdateWithTx(ctx, tx, existing); err != nil {
			return err
		}
		grant = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	reqMeta.ActorID = patientID
	reqMeta.OrgID = orgID
	reqMeta.Action = models.ActionGrant
	reqMeta.ResourceType = models.ResourceTypeGrant
	reqMeta.ResourceID = grant.GrantID
	reqMeta.Metadata = map[string]interface{}{
		"doctor_id": grant.DoctorID,
		"approved":  true,
	}
	if _, err := s.audit.LogAction(ctx, reqMeta); err != nil {
		return nil, err
	}

	return grant, nil
}

// RevokeAccess terminates the effective grant between a patient and a doctor.
// Revocation is immediate and permanent; the row stays behind in revoked
// status for the audit trail. Returns ErrNoActiveGrant when the pair has no
// pending or active grant.
func (s *GrantService) RevokeAccess(ctx context.Context, patientID, doctorID, orgID string, reqMeta LogParams) error {
	if err := utils.ValidateActorID(doctorID); err != nil {
		return err
	}

	now := utils.GetCurrentTimeMillis()
	var revoked, alreadyTerminal bool
	err := s.tx.WithTransaction(ctx, func(tx *database.Transaction) error {
		var err error
		revoked, err = s.grantDAO.RevokeWithTx(ctx, tx, doctorID, patientID, orgID, now)
		if err != nil || revoked {
			return err
		}
		alreadyTerminal, err = s.grantDAO.HasTerminalWithTx(ctx, tx, doctorID, patientID, orgID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to revoke access: %w", err)
	}
	if !revoked {
		if alreadyTerminal {
			return fmt.Errorf("%w: access already revoked for this doctor", ErrInvalidState)
		}
		return ErrNoActiveGrant
	}

	reqMeta.ActorID = patientID
	reqMeta.OrgID = orgID
	reqMeta.Action = models.ActionRevoke
	reqMeta.ResourceType = models.ResourceTypeGrant
	reqMeta.Metadata = map[string]interface{}{"doctor_id": doctorID}
	if _, err := s.audit.LogAction(ctx, reqMeta); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"doctor_id":  doctorID,
	}).Info("Access revoked")

	return nil
}

// GrantOnBooking creates the consultation grant that accompanies a booked
// appointment: active, read-only by default, carrying the appointment ID as
// provenance. Only the patient the appointment names may share their history
// through it, and only while the appointment is still pending or accepted.
func (s *GrantService) GrantOnBooking(ctx context.Context, appointmentID, patientID, orgID string, reqMeta LogParams) (*models.DataAccessGrant, error) {
	appt, err := s.apptDAO.GetByID(ctx, appointmentID, orgID)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, ErrNotFound
	}
	if appt.PatientID != patientID {
		return nil, ErrForbidden
	}
	if appt.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: appointment %s is %s", ErrInvalidState, appointmentID, appt.Status)
	}
	if !appt.GrantAccessToHistory {
		return nil, fmt.Errorf("%w: appointment %s does not share history", ErrInvalidState, appointmentID)
	}

	grant, err := s.upsertGrant(ctx, upsertParams{
		doctorID:      appt.DoctorID,
		patientID:     appt.PatientID,
		orgID:         orgID,
		status:        models.GrantStatusActive,
		accessLevel:   models.AccessLevelReadOnly,
		appointmentID: &appt.AppointmentID,
	})
	if err != nil {
		return nil, err
	}

	reqMeta.ActorID = appt.PatientID
	reqMeta.OrgID = orgID
	reqMeta.Action = models.ActionGrant
	reqMeta.ResourceType = models.ResourceTypeGrant
	reqMeta.ResourceID = grant.GrantID
	reqMeta.Metadata = map[string]interface{}{
		"doctor_id":      appt.DoctorID,
		"appointment_id": appt.AppointmentID,
	}
	if _, err := s.audit.LogAction(ctx, reqMeta); err != nil {
		return nil, err
	}

	return grant, nil
}

// GetGrantsForPatient lists all of a patient's grants, terminal ones included
func (s *GrantService) GetGrantsForPatient(ctx context.Context, patientID, orgID string) ([]models.DataAccessGrant, error) {
	return s.grantDAO.ListByPatient(ctx, patientID, orgID)
}

type upsertParams struct {
	doctorID           string
	patientID          string
	orgID              string
	status             models.GrantStatus
	accessLevel        models.AccessLevel
	aiAccessPermission bool
	expiryTime         *int64
	appointmentID      *string
	reason             *string
}

// upsertGrant writes the pair's single non-terminal grant: update in place
// when one exists, insert otherwise. A duplicate-key error on insert means a
// concurrent writer won the race; the retry re-reads under FOR UPDATE and
// takes the update path.
func (s *GrantService) upsertGrant(ctx context.Context, p upsertParams) (*models.DataAccessGrant, error) {
	var grant *models.DataAccessGrant

	for attempt := 0; attempt < upsertRetries; attempt++ {
		err := s.tx.WithTransaction(ctx, func(tx *database.Transaction) error {
			existing, err := s.grantDAO.GetNonTerminalForUpdate(ctx, tx, p.doctorID, p.patientID, p.orgID)
			if err != nil {
				return err
			}

			if existing != nil {
				existing.Status = p.status
				existing.AccessLevel = p.accessLevel
				existing.AIAccessPermission = p.aiAccessPermission
				existing.GrantedTime = utils.GetCurrentTimeMillis()
				existing.ExpiryTime = p.expiryTime
				existing.RevokedTime = nil
				if p.reason != nil {
					existing.GrantReason = p.reason
				}
				if err := s.grantDAO.UpdateWithTx(ctx, tx, existing); err != nil {
					return err
				}
				grant = existing
				return nil
			}

			grant = &models.DataAccessGrant{
				GrantID:            utils.GenerateGrantID(),
				DoctorID:           p.doctorID,
				PatientID:          p.patientID,
				Status:             p.status,
				AccessLevel:        p.accessLevel,
				AIAccessPermission: p.aiAccessPermission,
				GrantedTime:        utils.GetCurrentTimeMillis(),
				ExpiryTime:         p.expiryTime,
				AppointmentID:      p.appointmentID,
				GrantReason:        p.reason,
				OrgID:              p.orgID,
			}
			return s.grantDAO.CreateWithTx(ctx, tx, grant)
		})

		if err == nil {
			return grant, nil
		}
		if dao.IsDuplicateKeyError(err) && attempt < upsertRetries-1 {
			s.logger.WithFields(logrus.Fields{
				"doctor_id":  p.doctorID,
				"patient_id": p.patientID,
			}).Warn("Concurrent grant insert detected, retrying upsert")
			continue
		}
		return nil, fmt.Errorf("failed to upsert grant: %w", err)
	}

	return nil, fmt.Errorf("failed to upsert grant for doctor %s and patient %s", p.doctorID, p.patientID)
}
