package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/healthpoint/consent-access-api/internal/models"
	"github.com/healthpoint/consent-access-api/internal/service"
	"github.com/healthpoint/consent-access-api/internal/utils"
	pkgutils "github.com/healthpoint/consent-access-api/pkg/utils"
)

// ComplianceHandler handles data-subject rights HTTP requests. The export and
// deletion routes act on the calling user's own account only; the actor lookup
// is admin-only.
type ComplianceHandler struct {
	complianceService *service.ComplianceService
}

// NewComplianceHandler creates a new compliance handler instance
func NewComplianceHandler(complianceService *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{complianceService: complianceService}
}

// LookupActor handles GET /compliance/actors. Admin-only: resolves an email
// to an actor ID for audit-trail filtering.
func (h *ComplianceHandler) LookupActor(c *gin.Context) {
	if utils.GetUserRoleFromContext(c) != models.RoleAdmin {
		utils.SendForbiddenError(c, "Only administrators can look up actors")
		return
	}

	email := c.Query("email")
	if err := pkgutils.ValidateEmail(email); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	resp, err := h.complianceService.LookupActorByEmail(c.Request.Context(), email, utils.GetOrgIDFromContext(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, resp)
}

// ExportMyData handles GET /compliance/my-data
func (h *ComplianceHandler) ExportMyData(c *gin.Context) {
	userID := utils.GetUserIDFromContext(c)
	if userID == "" {
		utils.SendUnauthorizedError(c, "Missing user identity")
		return
	}

	resp, err := h.complianceService.ExportMyData(c.Request.Context(), userID,
		utils.GetOrgIDFromContext(c), requestLogParams(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, resp)
}

// DeleteMyAccount handles DELETE /compliance/my-account
func (h *ComplianceHandler) DeleteMyAccount(c *gin.Context) {
	userID := utils.GetUserIDFromContext(c)
	if userID == "" {
		utils.SendUnauthorizedError(c, "Missing user identity")
		return
	}

	if err := h.complianceService.AnonymizeAndDeactivate(c.Request.Context(), userID,
		utils.GetOrgIDFromContext(c), requestLogParams(c)); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendNoContentResponse(c)
}
