package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/healthpoint/consent-access-api/internal/models"
	"github.com/healthpoint/consent-access-api/internal/service"
	"github.com/healthpoint/consent-access-api/internal/utils"
	pkgutils "github.com/healthpoint/consent-access-api/pkg/utils"
)

// AccessHandler handles grant lifecycle and permission check HTTP requests
type AccessHandler struct {
	grantService  *service.GrantService
	accessService *service.AccessService
}

// NewAccessHandler creates a new access handler instance
func NewAccessHandler(grantService *service.GrantService, accessService *service.AccessService) *AccessHandler {
	return &AccessHandler{
		grantService:  grantService,
		accessService: accessService,
	}
}

// GrantAccess handles POST /access/grants
func (h *AccessHandler) GrantAccess(c *gin.Context) {
	if utils.GetUserRoleFromContext(c) != models.RolePatient {
		utils.SendForbiddenError(c, "Only patients can grant access")
		return
	}

	var req models.GrantAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}
	if err := pkgutils.ValidateActorID(req.DoctorID); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	if err := pkgutils.ValidateAccessLevel(req.AccessLevel); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	if err := pkgutils.ValidateExpiryDays(req.ExpiryDays); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	patientID := utils.GetUserIDFromContext(c)
	orgID := utils.GetOrgIDFromContext(c)

	grant, err := h.grantService.GrantAccess(c.Request.Context(), patientID, orgID, &req, requestLogParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendCreatedResponse(c, grant.ToResponse())
}

// ListGrants handles GET /access/grants
func (h *AccessHandler) ListGrants(c *gin.Context) {
	if utils.GetUserRoleFromContext(c) != models.RolePatient {
		utils.SendForbiddenError(c, "Only patients can list their grants")
		return
	}

	patientID := utils.GetUserIDFromContext(c)
	orgID := utils.GetOrgIDFromContext(c)

	grants, err := h.grantService.GetGrantsForPatient(c.Request.Context(), patientID, orgID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	responses := make([]*models.GrantResponse, 0, len(grants))
	for i := range grants {
		responses = append(responses, grants[i].ToResponse())
	}
	utils.SendOKResponse(c, responses)
}

// RequestAccess handles POST /access/requests
func (h *AccessHandler) RequestAccess(c *gin.Context) {
	if utils.GetUserRoleFromContext(c) != models.RoleDoctor {
		utils.SendForbiddenError(c, "Only doctors can request access")
		return
	}

	var req models.AccessRequestAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}
	if err := pkgutils.ValidateActorID(req.PatientID); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	doctorID := utils.GetUserIDFromContext(c)
	orgID := utils.GetOrgIDFromContext(c)

	grant, err := h.grantService.RequestAccess(c.Request.Context(), doctorID, orgID, &req, requestLogParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendCreatedResponse(c, grant.ToResponse())
}

// approveRequestBody is the payload for PUT /access/requests/:grantId/approve
type approveRequestBody struct {
	AccessLevel        string `json:"accessLevel" binding:"required"`
	AIAccessPermission bool   `json:"aiAccessPermission"`
	ExpiryDays         int    `json:"expiryDays"`
}

// ApproveRequest handles PUT /access/requests/:grantId/approve
func (h *AccessHandler) ApproveRequest(c *gin.Context) {
	if utils.GetUserRoleFromContext(c) != models.RolePatient {
		utils.SendForbiddenError(c, "Only patients can approve access requests")
		return
	}

	var body approveRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.SendBadRequestError(c, "Invalid request body", err.Error())
		return
	}
	if err := pkgutils.ValidateAccessLevel(body.AccessLevel); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	grantID := c.Param("grantId")
	patientID := utils.GetUserIDFromContext(c)
	orgID := utils.GetOrgIDFromContext(c)

	grant, err := h.grantService.ApproveRequest(c.Request.Context(), grantID, patientID, orgID,
		body.AccessLevel, body.AIAccessPermission, body.ExpiryDays, requestLogParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, grant.ToResponse())
}

// RevokeAccess handles DELETE /access/grants/:doctorId
func (h *AccessHandler) RevokeAccess(c *gin.Context) {
	if utils.GetUserRoleFromContext(c) != models.RolePatient {
		utils.SendForbiddenError(c, "Only patients can revoke access")
		return
	}

	doctorID := c.Param("doctorId")
	patientID := utils.GetUserIDFromContext(c)
	orgID := utils.GetOrgIDFromContext(c)

	if err := h.grantService.RevokeAccess(c.Request.Context(), patientID, doctorID, orgID, requestLogParams(c)); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, models.RevokeResponse{Revoked: true})
}

// CheckAccess handles GET /access/check/:patientId
func (h *AccessHandler) CheckAccess(c *gin.Context) {
	if utils.GetUserRoleFromContext(c) != models.RoleDoctor {
		utils.SendForbiddenError(c, "Only doctors can check access")
		return
	}

	patientID := c.Param("patientId")
	doctorID := utils.GetUserIDFromContext(c)
	orgID := utils.GetOrgIDFromContext(c)

	decision, err := h.accessService.CheckAccess(c.Request.Context(), doctorID, patientID, orgID, requestLogParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, models.CheckAccessResponse{
		HasPermission:      decision.HasPermission,
		AIAccessPermission: decision.AIAccessPermission,
	})
}

// GetPatientRecord handles GET /patients/:patientId/record
func (h *AccessHandler) GetPatientRecord(c *gin.Context) {
	if utils.GetUserRoleFromContext(c) != models.RoleDoctor {
		utils.SendForbiddenError(c, "Only doctors can read patient records")
		return
	}

	patientID := c.Param("patientId")
	doctorID := utils.GetUserIDFromContext(c)
	orgID := utils.GetOrgIDFromContext(c)

	record, err := h.accessService.GetPatientRecord(c.Request.Context(), doctorID, patientID, orgID, requestLogParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, record)
}

// GrantFromAppointment handles POST /appointments/:appointmentId/grant
func (h *AccessHandler) GrantFromAppointment(c *gin.Context) {
	if utils.GetUserRoleFromContext(c) != models.RolePatient {
		utils.SendForbiddenError(c, "Only patients can share history with an appointment")
		return
	}

	appointmentID := c.Param("appointmentId")
	patientID := utils.GetUserIDFromContext(c)
	orgID := utils.GetOrgIDFromContext(c)

	grant, err := h.grantService.GrantOnBooking(c.Request.Context(), appointmentID, patientID, orgID, requestLogParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendCreatedResponse(c, grant.ToResponse())
}
