package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/healthpoint/consent-access-api/internal/service"
	"github.com/healthpoint/consent-access-api/internal/utils"
)

// requestLogParams seeds the audit parameters every service call carries with
// the caller's network identity
func requestLogParams(c *gin.Context) service.LogParams {
	return service.LogParams{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// handleServiceError translates service errors into HTTP responses
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		utils.SendAccessDeniedError(c)
	case errors.Is(err, service.ErrForbidden):
		utils.SendForbiddenError(c, "Operation not permitted for this role")
	case errors.Is(err, service.ErrNotFound):
		utils.SendNotFoundError(c, "Resource not found")
	case errors.Is(err, service.ErrNoActiveGrant):
		utils.SendNotFoundError(c, "No active grant for this doctor")
	case errors.Is(err, service.ErrInvalidState):
		utils.SendConflictError(c, err.Error())
	case errors.Is(err, service.ErrAuditWriteFailed):
		utils.SendInternalServerError(c, "Audit logging failed", "")
	default:
		utils.SendInternalServerError(c, "Internal server error", err.Error())
	}
}
