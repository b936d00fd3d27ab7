package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/healthpoint/consent-access-api/internal/crypto"
	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/models"
	"github.com/healthpoint/consent-access-api/internal/service"
	"github.com/healthpoint/consent-access-api/internal/service/mocks"
	"github.com/healthpoint/consent-access-api/internal/utils"
)

type directTxRunner struct{}

func (directTxRunner) WithTransaction(_ context.Context, fn func(*database.Transaction) error) error {
	return fn(nil)
}

type handlerFixture struct {
	grantStore *mocks.MockGrantStore
	apptStore  *mocks.MockAppointmentStore
	userStore  *mocks.MockUserStore
	auditStore *mocks.MockAuditLogStore
	engine     *gin.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &handlerFixture{
		grantStore: new(mocks.MockGrantStore),
		apptStore:  new(mocks.MockAppointmentStore),
		userStore:  new(mocks.MockUserStore),
		auditStore: new(mocks.MockAuditLogStore),
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	key := make([]byte, 32)
	cipher, err := crypto.NewCipher(key, "handler-test")
	require.NoError(t, err)

	audit := service.NewAuditService(f.auditStore, logger)
	grantService := service.NewGrantService(f.grantStore, f.apptStore, audit, directTxRunner{}, logger)
	accessService := service.NewAccessService(f.grantStore, f.apptStore, f.userStore, audit, cipher, directTxRunner{}, logger)

	handler := NewAccessHandler(grantService, accessService)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			utils.SetContextValue(c, "userID", userID)
		}
		if role := c.GetHeader("X-User-Role"); role != "" {
			utils.SetContextValue(c, "userRole", role)
		}
		if orgID := c.GetHeader("X-Org-ID"); orgID != "" {
			utils.SetContextValue(c, "orgID", orgID)
		}
		c.Next()
	})
	engine.POST("/api/v1/access/grants", handler.GrantAccess)
	engine.DELETE("/api/v1/access/grants/:doctorId", handler.RevokeAccess)
	engine.GET("/api/v1/access/check/:patientId", handler.CheckAccess)
	engine.GET("/api/v1/patients/:patientId/record", handler.GetPatientRecord)
	engine.POST("/api/v1/appointments/:appointmentId/grant", handler.GrantFromAppointment)

	f.engine = engine
	return f
}

func (f *handlerFixture) do(method, path, body, userID, role string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	req.Header.Set("X-User-Role", role)
	req.Header.Set("X-Org-ID", "org-1")

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestGrantAccessEndpoint_Creates(t *testing.T) {
	f := newHandlerFixture(t)

	f.grantStore.On("GetNonTerminalForUpdate", mock.Anything, mock.Anything, "doctor-1", "patient-1", "org-1").
		Return(nil, nil)
	f.grantStore.On("CreateWithTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.auditStore.On("Create", mock.Anything, mock.Anything).Return(nil)

	w := f.do(http.MethodPost, "/api/v1/access/grants",
		`{"doctorId":"doctor-1","accessLevel":"read_only"}`, "patient-1", "patient")

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.GrantResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "doctor-1", resp.DoctorID)
	assert.Equal(t, "active", resp.Status)
}

func TestGrantAccessEndpoint_RejectsDoctorRole(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPost, "/api/v1/access/grants",
		`{"doctorId":"doctor-1","accessLevel":"read_only"}`, "doctor-1", "doctor")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGrantAccessEndpoint_RejectsInvalidLevel(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPost, "/api/v1/access/grants",
		`{"doctorId":"doctor-1","accessLevel":"write"}`, "patient-1", "patient")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRevokeEndpoint_NoActiveGrantIs404(t *testing.T) {
	f := newHandlerFixture(t)

	f.grantStore.On("RevokeWithTx", mock.Anything, mock.Anything, "doctor-1", "patient-1", "org-1", mock.Anything).
		Return(false, nil)
	f.grantStore.On("HasTerminalWithTx", mock.Anything, mock.Anything, "doctor-1", "patient-1", "org-1").
		Return(false, nil)

	w := f.do(http.MethodDelete, "/api/v1/access/grants/doctor-1", "", "patient-1", "patient")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRevokeEndpoint_AlreadyRevokedIs409(t *testing.T) {
	f := newHandlerFixture(t)

	f.grantStore.On("RevokeWithTx", mock.Anything, mock.Anything, "doctor-1", "patient-1", "org-1", mock.Anything).
		Return(false, nil)
	f.grantStore.On("HasTerminalWithTx", mock.Anything, mock.Anything, "doctor-1", "patient-1", "org-1").
		Return(true, nil)

	w := f.do(http.MethodDelete, "/api/v1/access/grants/doctor-1", "", "patient-1", "patient")

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckAccessEndpoint_ReturnsDecision(t *testing.T) {
	f := newHandlerFixture(t)

	f.grantStore.On("GetAuthorizingWithTx", mock.Anything, mock.Anything, "doctor-1", "patient-1", "org-1", mock.Anything).
		Return(&models.DataAccessGrant{Status: models.GrantStatusActive, AIAccessPermission: true}, nil)
	f.auditStore.On("Create", mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.Action == models.ActionCheckAccess
	})).Return(nil).Once()

	w := f.do(http.MethodGet, "/api/v1/access/check/patient-1", "", "doctor-1", "doctor")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.CheckAccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.HasPermission)
	assert.True(t, resp.AIAccessPermission)
	f.auditStore.AssertExpectations(t)
}

func TestCheckAccessEndpoint_DeniedCheckIsAudited(t *testing.T) {
	f := newHandlerFixture(t)

	f.grantStore.On("GetAuthorizingWithTx", mock.Anything, mock.Anything, "doctor-1", "patient-1", "org-1", mock.Anything).
		Return(nil, nil)
	f.apptStore.On("GetAuthorizingWithTx", mock.Anything, mock.Anything, "doctor-1", "patient-1", "org-1", mock.Anything).
		Return(nil, nil)
	f.auditStore.On("Create", mock.Anything, mock.MatchedBy(func(e *models.AuditLog) bool {
		return e.Action == models.ActionAccessDenied
	})).Return(nil).Once()

	w := f.do(http.MethodGet, "/api/v1/access/check/patient-1", "", "doctor-1", "doctor")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.CheckAccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.HasPermission)
	f.auditStore.AssertExpectations(t)
}

func TestAppointmentGrantEndpoint_RejectsOtherPatient(t *testing.T) {
	f := newHandlerFixture(t)

	appt := &models.Appointment{
		AppointmentID:        "APPT-1",
		DoctorID:             "doctor-1",
		PatientID:            "patient-1",
		Status:               models.AppointmentStatusAccepted,
		GrantAccessToHistory: true,
		OrgID:                "org-1",
	}
	f.apptStore.On("GetByID", mock.Anything, "APPT-1", "org-1").Return(appt, nil)

	w := f.do(http.MethodPost, "/api/v1/appointments/APPT-1/grant", "", "patient-2", "patient")

	assert.Equal(t, http.StatusForbidden, w.Code)
	f.grantStore.AssertNotCalled(t, "CreateWithTx", mock.Anything, mock.Anything, mock.Anything)
	f.grantStore.AssertNotCalled(t, "UpdateWithTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestAppointmentGrantEndpoint_OwnerCreates(t *testing.T) {
	f := newHandlerFixture(t)

	appt := &models.Appointment{
		AppointmentID:        "APPT-1",
		DoctorID:             "doctor-1",
		PatientID:            "patient-1",
		Status:               models.AppointmentStatusAccepted,
		GrantAccessToHistory: true,
		OrgID:                "org-1",
	}
	f.apptStore.On("GetByID", mock.Anything, "APPT-1", "org-1").Return(appt, nil)
	f.grantStore.On("GetNonTerminalForUpdate", mock.Anything, mock.Anything, "doctor-1", "patient-1", "org-1").
		Return(nil, nil)
	f.grantStore.On("CreateWithTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.auditStore.On("Create", mock.Anything, mock.Anything).Return(nil)

	w := f.do(http.MethodPost, "/api/v1/appointments/APPT-1/grant", "", "patient-1", "patient")

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.GrantResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "patient-1", resp.PatientID)
	require.NotNil(t, resp.AppointmentID)
	assert.Equal(t, "APPT-1", *resp.AppointmentID)
}

func TestPatientRecordEndpoint_DenialBodyIsGeneric(t *testing.T) {
	f := newHandlerFixture(t)

	f.grantStore.On("GetAuthorizingWithTx", mock.Anything, mock.Anything, "doctor-1", "ghost", "org-1", mock.Anything).
		Return(nil, nil)
	f.apptStore.On("GetAuthorizingWithTx", mock.Anything, mock.Anything, "doctor-1", "ghost", "org-1", mock.Anything).
		Return(nil, nil)
	f.auditStore.On("Create", mock.Anything, mock.Anything).Return(nil)

	w := f.do(http.MethodGet, "/api/v1/patients/ghost/record", "", "doctor-1", "doctor")

	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ErrCodeAccessDenied, resp.Code)
	assert.NotContains(t, w.Body.String(), "ghost", "denial must not reveal resource existence")
}
