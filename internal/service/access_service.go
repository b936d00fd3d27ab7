package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/healthpoint/consent-access-api/internal/crypto"
	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/models"
	"github.com/healthpoint/consent-access-api/pkg/utils"
)

// Decision sources
const (
	SourceGrant       = "grant"
	SourceAppointment = "appointment"
	SourceNone        = "none"
)

// Decision is the outcome of one permission evaluation
type Decision struct {
	HasPermission      bool
	AIAccessPermission bool
	Source             string
	Reason             string
}

// AccessService evaluates permissions and serves the PHI read path
type AccessService struct {
	grantDAO GrantStore
	apptDAO  AppointmentStore
	userDAO  UserStore
	audit    *AuditService
	cipher   *crypto.Cipher
	tx       TxRunner
	logger   *logrus.Logger
}

// NewAccessService creates a new access service instance
func NewAccessService(grantDAO GrantStore, apptDAO AppointmentStore, userDAO UserStore, audit *AuditService, cipher *crypto.Cipher, tx TxRunner, logger *logrus.Logger) *AccessService {
	return &AccessService{
		grantDAO: grantDAO,
		apptDAO:  apptDAO,
		userDAO:  userDAO,
		audit:    audit,
		cipher:   cipher,
		tx:       tx,
		logger:   logger,
	}
}

// CheckAccessTx evaluates whether a doctor may read a patient's records, in
// strict order: an active unexpired grant wins; failing that, a pending or
// accepted appointment with a future requested time authorizes implicitly;
// otherwise access is denied. Runs inside the caller's transaction so a
// caller that goes on to read PHI sees the same snapshot the decision saw.
func (s *AccessService) CheckAccessTx(ctx context.Context, tx *database.Transaction, doctorID, patientID, orgID string) (*Decision, error) {
	now := utils.GetCurrentTimeMillis()

	grant, err := s.grantDAO.GetAuthorizingWithTx(ctx, tx, doctorID, patientID, orgID, now)
	if err != nil {
		return nil, err
	}
	if grant != nil {
		return &Decision{
			HasPermission:      true,
			AIAccessPermission: grant.AIAccessPermission,
			Source:             SourceGrant,
		}, nil
	}

	appt, err := s.apptDAO.GetAuthorizingWithTx(ctx, tx, doctorID, patientID, orgID, now)
	if err != nil {
		return nil, err
	}
	if appt != nil {
		// Appointment-derived access never carries AI permission.
		return &Decision{
			HasPermission: true,
			Source:        SourceAppointment,
		}, nil
	}

	return &Decision{
		Source: SourceNone,
		Reason: "no active grant and no qualifying appointment",
	}, nil
}

// CheckAccess runs the permission evaluation in its own read transaction and
// audits the outcome: the decision branch on allow, access_denied with the
// deny reason otherwise. The evaluation itself stays a pure read; the audit
// entry is this caller's responsibility.
func (s *AccessService) CheckAccess(ctx context.Context, doctorID, patientID, orgID string, reqMeta LogParams) (*Decision, error) {
	var decision *Decision
	err := s.tx.WithTransaction(ctx, func(tx *database.Transaction) error {
		var err error
		decision, err = s.CheckAccessTx(ctx, tx, doctorID, patientID, orgID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate access: %w", err)
	}

	reqMeta.ActorID = doctorID
	reqMeta.OrgID = orgID
	reqMeta.ResourceType = models.ResourceTypePatient
	reqMeta.ResourceID = patientID
	if decision.HasPermission {
		reqMeta.Action = models.ActionCheckAccess
		reqMeta.Metadata = map[string]interface{}{"source": decision.Source}
	} else {
		reqMeta.Action = models.ActionAccessDenied
		reqMeta.Metadata = map[string]interface{}{"reason": decision.Reason}
	}
	if _, err := s.audit.LogAction(ctx, reqMeta); err != nil {
		return nil, err
	}

	return decision, nil
}

// GetPatientRecord serves the PHI read path: evaluate permission and read the
// patient row in one transaction, then decrypt outside it. Exactly one audit
// entry is written per attempt, allowed or denied, and the denial response
// never reveals whether the patient exists.
func (s *AccessService) GetPatientRecord(ctx context.Context, doctorID, patientID, orgID string, reqMeta LogParams) (*models.PatientRecordResponse, error) {
	var (
		decision *Decision
		patient  *models.User
	)

	err := s.tx.WithTransaction(ctx, func(tx *database.Transaction) error {
		var err error
		decision, err = s.CheckAccessTx(ctx, tx, doctorID, patientID, orgID)
		if err != nil {
			return err
		}
		if !decision.HasPermission {
			return nil
		}

		patient, err = s.userDAO.GetByIDWithTx(ctx, tx, patientID, orgID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read patient record: %w", err)
	}

	reqMeta.ActorID = doctorID
	reqMeta.OrgID = orgID
	reqMeta.ResourceType = models.ResourceTypePatient
	reqMeta.ResourceID = patientID

	if !decision.HasPermission || patient == nil || patient.IsDeactivated() {
		reqMeta.Action = models.ActionAccessDenied
		reason := decision.Reason
		if reason == "" {
			reason = "no active grant and no qualifying appointment"
		}
		reqMeta.Metadata = map[string]interface{}{"reason": reason}
		if _, err := s.audit.LogAction(ctx, reqMeta); err != nil {
			return nil, err
		}
		return nil, ErrAccessDenied
	}

	reqMeta.Action = models.ActionView
	reqMeta.Metadata = map[string]interface{}{"source": decision.Source}
	if _, err := s.audit.LogAction(ctx, reqMeta); err != nil {
		return nil, err
	}

	record := &models.PatientRecordResponse{
		PatientID: patient.UserID,
		Name:      s.cipher.DecryptOrPlaceholder(patient.NameEncrypted),
		Phone:     s.cipher.DecryptOrPlaceholder(patient.PhoneEncrypted),
	}
	if patient.HistoryEncrypted != nil {
		record.MedicalHistory = s.cipher.DecryptOrPlaceholder(*patient.HistoryEncrypted)
	}

	return record, nil
}
