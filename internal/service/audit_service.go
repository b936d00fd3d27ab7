package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/healthpoint/consent-access-api/internal/models"
	"github.com/healthpoint/consent-access-api/pkg/utils"
)

// LogParams carries the fields of one audit entry. ActorID is empty for
// system-initiated actions.
type LogParams struct {
	ActorID      string
	OrgID        string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
	Metadata     map[string]interface{}
}

// AuditService writes and reads the append-only audit trail. Writes go to
// the base connection pool, never a caller transaction, so a denial entry
// survives a rollback of the operation that produced it.
type AuditService struct {
	auditDAO AuditLogStore
	logger   *logrus.Logger
}

// NewAuditService creates a new audit service instance
func NewAuditService(auditDAO AuditLogStore, logger *logrus.Logger) *AuditService {
	return &AuditService{
		auditDAO: auditDAO,
		logger:   logger,
	}
}

// LogAction appends one audit entry. There is no business-rule rejection:
// only an infrastructure failure can make it fail, and that failure is
// escalated to the caller because an un-logged PHI access is itself a
// compliance violation. Metadata must never contain plaintext PII.
func (s *AuditService) LogAction(ctx context.Context, params LogParams) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		LogID:        utils.GenerateAuditID(),
		Timestamp:    utils.GetCurrentTimeMillis(),
		Action:       params.Action,
		ResourceType: params.ResourceType,
		IPAddress:    params.IPAddress,
		UserAgent:    params.UserAgent,
	}

	if params.ActorID != "" {
		entry.ActorID = &params.ActorID
	}
	if params.OrgID != "" {
		entry.OrgID = &params.OrgID
	}
	if params.ResourceID != "" {
		entry.ResourceID = &params.ResourceID
	}
	if len(params.Metadata) > 0 {
		raw, err := json.Marshal(params.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
		entry.Metadata = models.JSON(raw)
	}

	if err := s.auditDAO.Create(ctx, entry); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":        params.Action,
			"resource_type": params.ResourceType,
		}).Error("Audit log write failed")
		return nil, fmt.Errorf("%w: %v", ErrAuditWriteFailed, err)
	}

	return entry, nil
}

// GetLogs returns a filtered, paginated page of an organization's audit
// trail. Reading the audit log is itself an auditable event, so the access
// is recorded before the query runs (meta-audit).
func (s *AuditService) GetLogs(ctx context.Context, orgID string, filters models.AuditLogFilters, limit, offset int, viewer LogParams) (*models.AuditLogSearchResponse, error) {
	viewer.OrgID = orgID
	viewer.Action = models.ActionAuditViewed
	viewer.ResourceType = models.ResourceTypeAuditLog
	if _, err := s.LogAction(ctx, viewer); err != nil {
		return nil, err
	}

	limit = utils.ValidateLimit(limit)
	offset = utils.ValidateOffset(offset)

	entries, total, err := s.auditDAO.List(ctx, orgID, filters, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	return &models.AuditLogSearchResponse{
		Data: entries,
		Metadata: models.AuditSearchMetadata{
			Total:  total,
			Limit:  limit,
			Offset: offset,
		},
	}, nil
}

// ExportLogs returns all matching entries flattened to tabular rows.
// The export itself is meta-audited like GetLogs.
func (s *AuditService) ExportLogs(ctx context.Context, orgID string, filters models.AuditLogFilters, viewer LogParams) ([]models.AuditExportRow, error) {
	viewer.OrgID = orgID
	viewer.Action = models.ActionAuditViewed
	viewer.ResourceType = models.ResourceTypeAuditLog
	viewer.Metadata = map[string]interface{}{"export": true}
	if _, err := s.LogAction(ctx, viewer); err != nil {
		return nil, err
	}

	const exportPageSize = 1000
	rows := []models.AuditExportRow{}
	offset := 0

	for {
		entries, total, err := s.auditDAO.List(ctx, orgID, filters, exportPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to export audit logs: %w", err)
		}
		for i := range entries {
			rows = append(rows, entries[i].ToExportRow())
		}
		offset += len(entries)
		if offset >= total || len(entries) == 0 {
			break
		}
	}

	return rows, nil
}

// GetComplianceStats aggregates audit counters over a lookback window
func (s *AuditService) GetComplianceStats(ctx context.Context, orgID string, windowDays int) (*models.ComplianceStats, error) {
	if windowDays <= 0 {
		windowDays = 30
	}

	stats, err := s.auditDAO.GetStats(ctx, orgID, utils.WindowStartMillis(windowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to compute compliance stats: %w", err)
	}

	stats.WindowDays = windowDays
	return stats, nil
}
