package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/healthpoint/consent-access-api/internal/models"
	"github.com/healthpoint/consent-access-api/internal/service"
	"github.com/healthpoint/consent-access-api/internal/utils"
)

// AuditHandler handles audit trail HTTP requests. All routes are admin-only.
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new audit handler instance
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) requireAdmin(c *gin.Context) bool {
	if utils.GetUserRoleFromContext(c) != models.RoleAdmin {
		utils.SendForbiddenError(c, "Only administrators can access the audit trail")
		return false
	}
	return true
}

func filtersFromQuery(c *gin.Context) models.AuditLogFilters {
	filters := models.AuditLogFilters{
		ActorID: c.Query("actorId"),
		Action:  c.Query("action"),
	}
	if v := c.Query("from"); v != "" {
		filters.FromTime, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := c.Query("to"); v != "" {
		filters.ToTime, _ = strconv.ParseInt(v, 10, 64)
	}
	return filters
}

// GetLogs handles GET /audit/logs
func (h *AuditHandler) GetLogs(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	pagination := utils.PaginationFromQuery(c)
	viewer := requestLogParams(c)
	viewer.ActorID = utils.GetUserIDFromContext(c)

	resp, err := h.auditService.GetLogs(c.Request.Context(), utils.GetOrgIDFromContext(c),
		filtersFromQuery(c), pagination.Limit, pagination.Offset, viewer)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, resp)
}

// ExportLogs handles GET /audit/export
func (h *AuditHandler) ExportLogs(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	viewer := requestLogParams(c)
	viewer.ActorID = utils.GetUserIDFromContext(c)

	rows, err := h.auditService.ExportLogs(c.Request.Context(), utils.GetOrgIDFromContext(c),
		filtersFromQuery(c), viewer)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, rows)
}

// GetStats handles GET /audit/stats
func (h *AuditHandler) GetStats(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	windowDays, _ := strconv.Atoi(c.DefaultQuery("windowDays", "30"))

	stats, err := h.auditService.GetComplianceStats(c.Request.Context(), utils.GetOrgIDFromContext(c), windowDays)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SendOKResponse(c, stats)
}
