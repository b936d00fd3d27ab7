package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/healthpoint/consent-access-api/internal/models"
	"github.com/healthpoint/consent-access-api/internal/service/mocks"
)

func TestLogAction_PopulatesEntry(t *testing.T) {
	auditStore := new(mocks.MockAuditLogStore)
	svc := NewAuditService(auditStore, newTestLogger())

	var captured *models.AuditLog
	auditStore.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*models.AuditLog)
		}).
		Return(nil)

	entry, err := svc.LogAction(context.Background(), LogParams{
		ActorID:      "doctor-1",
		OrgID:        "org-1",
		Action:       models.ActionView,
		ResourceType: models.ResourceTypePatient,
		ResourceID:   "patient-1",
		IPAddress:    "10.0.0.5",
		UserAgent:    "test-agent",
		Metadata:     map[string]interface{}{"source": "grant"},
	})

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.True(t, strings.HasPrefix(captured.LogID, "AUDIT-"))
	assert.Positive(t, captured.Timestamp)
	require.NotNil(t, captured.ActorID)
	assert.Equal(t, "doctor-1", *captured.ActorID)
	assert.Equal(t, models.ActionView, captured.Action)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(captured.Metadata, &meta))
	assert.Equal(t, "grant", meta["source"])
	assert.Equal(t, captured, entry)
}

func TestLogAction_SystemEntryHasNoActor(t *testing.T) {
	auditStore := new(mocks.MockAuditLogStore)
	svc := NewAuditService(auditStore, newTestLogger())

	auditStore.On("Create", mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.ActorID == nil
	})).Return(nil)

	_, err := svc.LogAction(context.Background(), LogParams{
		Action:       models.ActionAccessDenied,
		ResourceType: models.ResourceTypePatient,
	})

	require.NoError(t, err)
	auditStore.AssertExpectations(t)
}

func TestLogAction_WriteFailureEscalates(t *testing.T) {
	auditStore := new(mocks.MockAuditLogStore)
	svc := NewAuditService(auditStore, newTestLogger())

	auditStore.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

	_, err := svc.LogAction(context.Background(), LogParams{
		Action:       models.ActionView,
		ResourceType: models.ResourceTypePatient,
	})

	assert.ErrorIs(t, err, ErrAuditWriteFailed)
}

func TestGetLogs_MetaAuditsBeforeQuerying(t *testing.T) {
	auditStore := new(mocks.MockAuditLogStore)
	svc := NewAuditService(auditStore, newTestLogger())

	auditStore.On("Create", mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.Action == models.ActionAuditViewed && e.ResourceType == models.ResourceTypeAuditLog
	})).Return(nil).Once()
	auditStore.On("List", mock.Anything, "org-1", mock.Anything, 20, 0).
		Return([]models.AuditLog{{LogID: "AUDIT-1"}}, 1, nil)

	resp, err := svc.GetLogs(context.Background(), "org-1", models.AuditLogFilters{}, 0, 0, LogParams{ActorID: "admin-1"})

	require.NoError(t, err)
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, 1, resp.Metadata.Total)
	assert.Equal(t, 20, resp.Metadata.Limit)
	auditStore.AssertExpectations(t)
}

func TestGetLogs_FailsWhenMetaAuditFails(t *testing.T) {
	auditStore := new(mocks.MockAuditLogStore)
	svc := NewAuditService(auditStore, newTestLogger())

	auditStore.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

	_, err := svc.GetLogs(context.Background(), "org-1", models.AuditLogFilters{}, 20, 0, LogParams{ActorID: "admin-1"})

	assert.ErrorIs(t, err, ErrAuditWriteFailed)
	auditStore.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExportLogs_FlattensEntries(t *testing.T) {
	auditStore := new(mocks.MockAuditLogStore)
	svc := NewAuditService(auditStore, newTestLogger())

	actor := "doctor-1"
	entries := []models.AuditLog{
		{LogID: "AUDIT-1", Timestamp: 1000, ActorID: &actor, Action: models.ActionView, ResourceType: models.ResourceTypePatient},
		{LogID: "AUDIT-2", Timestamp: 2000, Action: models.ActionAccessDenied, ResourceType: models.ResourceTypePatient},
	}
	auditStore.On("Create", mock.Anything, mock.Anything).Return(nil)
	auditStore.On("List", mock.Anything, "org-1", mock.Anything, 1000, 0).Return(entries, 2, nil)

	rows, err := svc.ExportLogs(context.Background(), "org-1", models.AuditLogFilters{}, LogParams{ActorID: "admin-1"})

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "doctor-1", rows[0].ActorID)
	assert.Empty(t, rows[1].ActorID)
}

func TestGetComplianceStats_DefaultsWindow(t *testing.T) {
	auditStore := new(mocks.MockAuditLogStore)
	svc := NewAuditService(auditStore, newTestLogger())

	auditStore.On("GetStats", mock.Anything, "org-1", mock.Anything).
		Return(&models.ComplianceStats{TotalEvents: 42, PHIAccessEvents: 7, ActiveActors: 3}, nil)

	stats, err := svc.GetComplianceStats(context.Background(), "org-1", 0)

	require.NoError(t, err)
	assert.Equal(t, 42, stats.TotalEvents)
	assert.Equal(t, 30, stats.WindowDays)
}
