package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthpoint/consent-access-api/internal/models"
)

func TestAuditLogDAO_Create(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewAuditLogDAO(db)

	actorID := "doctor-1"
	resourceID := "patient-1"
	entry := &models.AuditLog{
		LogID:        "AUDIT-1",
		Timestamp:    1000,
		ActorID:      &actorID,
		Action:       models.ActionAccessDenied,
		ResourceType: models.ResourceTypePatient,
		ResourceID:   &resourceID,
		IPAddress:    "10.0.0.1",
		UserAgent:    "test-agent",
		Metadata:     models.JSON(`{"reason":"no active grant and no qualifying appointment"}`),
	}

	// No ExpectBegin: audit writes always go to the base pool, never a
	// caller transaction, so a business rollback cannot erase them.
	mock.ExpectExec("INSERT INTO PHI_AUDIT_LOG").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := dao.Create(context.Background(), entry)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogDAO_List_WithFilters(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewAuditLogDAO(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM PHI_AUDIT_LOG").
		WithArgs("org-1", "doctor-1", int64(100), int64(200)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	actorID := "doctor-1"
	mock.ExpectQuery("SELECT (.+) FROM PHI_AUDIT_LOG").
		WithArgs("org-1", "doctor-1", int64(100), int64(200), 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"LOG_ID", "LOG_TIME", "ACTOR_ID", "ORG_ID", "ACTION", "RESOURCE_TYPE",
			"RESOURCE_ID", "IP_ADDRESS", "USER_AGENT", "METADATA",
		}).AddRow("AUDIT-1", int64(150), actorID, "org-1", "view", "patient", "patient-1", "10.0.0.1", "agent", nil))

	filters := models.AuditLogFilters{
		ActorID:  "doctor-1",
		FromTime: 100,
		ToTime:   200,
	}

	entries, total, err := dao.List(context.Background(), "org-1", filters, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "AUDIT-1", entries[0].LogID)
	assert.Equal(t, "view", entries[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogDAO_GetStats(t *testing.T) {
	db, mock := newMockDB(t)
	dao := NewAuditLogDAO(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM PHI_AUDIT_LOG WHERE ORG_ID = \\? AND LOG_TIME >= \\?$").
		WithArgs("org-1", int64(500)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(42))

	mock.ExpectQuery("ACTION IN \\(\\?, \\?, \\?\\)").
		WithArgs("org-1", int64(500),
			"view", "download", "export",
			"patient", "document", "consultation").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(17))

	mock.ExpectQuery("SELECT COUNT\\(DISTINCT ACTOR_ID\\)").
		WithArgs("org-1", int64(500)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(DISTINCT ACTOR_ID)"}).AddRow(5))

	stats, err := dao.GetStats(context.Background(), "org-1", 500)
	require.NoError(t, err)
	assert.Equal(t, 42, stats.TotalEvents)
	assert.Equal(t, 17, stats.PHIAccessEvents)
	assert.Equal(t, 5, stats.ActiveActors)
	assert.NoError(t, mock.ExpectationsWereMet())
}
