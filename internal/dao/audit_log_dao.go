package dao

import (
	"context"
	"fmt"
	"strings"

	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/models"
)

const auditColumns = `LOG_ID, LOG_TIME, ACTOR_ID, ORG_ID, ACTION, RESOURCE_TYPE,
	       RESOURCE_ID, IP_ADDRESS, USER_AGENT, METADATA`

// placeholders builds a comma-separated "?, ?, ..." list of length n
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// AuditLogDAO handles the append-only PHI_AUDIT_LOG table. There is no
// update or delete method on purpose: rows are immutable once written.
type AuditLogDAO struct {
	db *database.DB
}

// NewAuditLogDAO creates a new AuditLogDAO instance
func NewAuditLogDAO(db *database.DB) *AuditLogDAO {
	return &AuditLogDAO{db: db}
}

// Create appends an audit entry. It deliberately writes on the base
// connection pool rather than any caller transaction, so a denied-access
// entry survives even when the surrounding business operation rolls back.
func (dao *AuditLogDAO) Create(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO PHI_AUDIT_LOG (
			LOG_ID, LOG_TIME, ACTOR_ID, ORG_ID, ACTION, RESOURCE_TYPE,
			RESOURCE_ID, IP_ADDRESS, USER_AGENT, METADATA
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := dao.db.ExecContext(
		ctx,
		query,
		entry.LogID,
		entry.Timestamp,
		entry.ActorID,
		entry.OrgID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.IPAddress,
		entry.UserAgent,
		entry.Metadata,
	)

	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}

	return nil
}

// buildFilterClause translates optional filters into a WHERE fragment
func buildFilterClause(filters models.AuditLogFilters) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	if filters.ActorID != "" {
		conditions = append(conditions, "ACTOR_ID = ?")
		args = append(args, filters.ActorID)
	}
	if filters.Action != "" {
		conditions = append(conditions, "ACTION = ?")
		args = append(args, filters.Action)
	}
	if filters.FromTime > 0 {
		conditions = append(conditions, "LOG_TIME >= ?")
		args = append(args, filters.FromTime)
	}
	if filters.ToTime > 0 {
		conditions = append(conditions, "LOG_TIME <= ?")
		args = append(args, filters.ToTime)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " AND " + strings.Join(conditions, " AND "), args
}

// List returns a filtered page of audit entries plus the total match count
func (dao *AuditLogDAO) List(ctx context.Context, orgID string, filters models.AuditLogFilters, limit, offset int) ([]models.AuditLog, int, error) {
	filterClause, filterArgs := buildFilterClause(filters)

	countQuery := "SELECT COUNT(*) FROM PHI_AUDIT_LOG WHERE ORG_ID = ?" + filterClause
	countArgs := append([]interface{}{orgID}, filterArgs...)

	var total int
	if err := dao.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit log entries: %w", err)
	}

	listQuery := `
		SELECT ` + auditColumns + `
		FROM PHI_AUDIT_LOG
		WHERE ORG_ID = ?` + filterClause + `
		ORDER BY LOG_TIME DESC
		LIMIT ? OFFSET ?
	`
	listArgs := append(countArgs, limit, offset)

	entries := []models.AuditLog{}
	if err := dao.db.SelectContext(ctx, &entries, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit log entries: %w", err)
	}

	return entries, total, nil
}

// ListByActor returns an actor's own audit trail, newest first
func (dao *AuditLogDAO) ListByActor(ctx context.Context, actorID, orgID string, limit int) ([]models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM PHI_AUDIT_LOG
		WHERE ACTOR_ID = ? AND ORG_ID = ?
		ORDER BY LOG_TIME DESC
		LIMIT ?
	`

	entries := []models.AuditLog{}
	if err := dao.db.SelectContext(ctx, &entries, query, actorID, orgID, limit); err != nil {
		return nil, fmt.Errorf("failed to list audit log entries by actor: %w", err)
	}

	return entries, nil
}

// GetStats aggregates compliance counters for an organization over a window
// starting at fromMillis: total events, PHI-access events (view/download/
// export against patient/document/consultation), and distinct active actors.
func (dao *AuditLogDAO) GetStats(ctx context.Context, orgID string, fromMillis int64) (*models.ComplianceStats, error) {
	stats := &models.ComplianceStats{}

	totalQuery := "SELECT COUNT(*) FROM PHI_AUDIT_LOG WHERE ORG_ID = ? AND LOG_TIME >= ?"
	if err := dao.db.GetContext(ctx, &stats.TotalEvents, totalQuery, orgID, fromMillis); err != nil {
		return nil, fmt.Errorf("failed to count audit events: %w", err)
	}

	phiQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM PHI_AUDIT_LOG
		WHERE ORG_ID = ? AND LOG_TIME >= ?
		  AND ACTION IN (%s)
		  AND RESOURCE_TYPE IN (%s)
	`, placeholders(len(models.PHIAccessActions)), placeholders(len(models.PHIResourceTypes)))

	phiArgs := []interface{}{orgID, fromMillis}
	for _, action := range models.PHIAccessActions {
		phiArgs = append(phiArgs, action)
	}
	for _, resourceType := range models.PHIResourceTypes {
		phiArgs = append(phiArgs, resourceType)
	}
	if err := dao.db.GetContext(ctx, &stats.PHIAccessEvents, phiQuery, phiArgs...); err != nil {
		return nil, fmt.Errorf("failed to count PHI access events: %w", err)
	}

	actorsQuery := `
		SELECT COUNT(DISTINCT ACTOR_ID) FROM PHI_AUDIT_LOG
		WHERE ORG_ID = ? AND LOG_TIME >= ? AND ACTOR_ID IS NOT NULL
	`
	if err := dao.db.GetContext(ctx, &stats.ActiveActors, actorsQuery, orgID, fromMillis); err != nil {
		return nil, fmt.Errorf("failed to count active actors: %w", err)
	}

	return stats, nil
}
