package router

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healthpoint/consent-access-api/internal/database"
	"github.com/healthpoint/consent-access-api/internal/handlers"
	"github.com/healthpoint/consent-access-api/internal/service"
	"github.com/healthpoint/consent-access-api/internal/utils"
	pkgutils "github.com/healthpoint/consent-access-api/pkg/utils"
)

// SetupRouter configures all API routes
func SetupRouter(
	db *database.DB,
	grantService *service.GrantService,
	accessService *service.AccessService,
	auditService *service.AuditService,
	complianceService *service.ComplianceService,
) *gin.Engine {
	router := gin.Default()

	// Identity headers come from the gateway, which has already
	// authenticated the caller. This service trusts them as-is.
	router.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			utils.SetContextValue(c, "userID", userID)
		}
		if role := c.GetHeader("X-User-Role"); role != "" {
			utils.SetContextValue(c, "userRole", role)
		}
		if orgID := c.GetHeader("X-Org-ID"); orgID != "" {
			utils.SetContextValue(c, "orgID", orgID)
		}

		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = pkgutils.GenerateID()
		}
		utils.SetContextValue(c, "correlationID", correlationID)
		c.Header("X-Correlation-ID", correlationID)

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.HealthCheck(ctx); err != nil {
			c.JSON(503, gin.H{"status": "unhealthy", "database": "down"})
			return
		}
		c.JSON(200, gin.H{"status": "healthy"})
	})

	accessHandler := handlers.NewAccessHandler(grantService, accessService)
	auditHandler := handlers.NewAuditHandler(auditService)
	complianceHandler := handlers.NewComplianceHandler(complianceService)

	v1 := router.Group("/api/v1")
	{
		access := v1.Group("/access")
		{
			access.POST("/grants", accessHandler.GrantAccess)
			access.GET("/grants", accessHandler.ListGrants)
			access.DELETE("/grants/:doctorId", accessHandler.RevokeAccess)
			access.POST("/requests", accessHandler.RequestAccess)
			access.PUT("/requests/:grantId/approve", accessHandler.ApproveRequest)
			access.GET("/check/:patientId", accessHandler.CheckAccess)
		}

		v1.GET("/patients/:patientId/record", accessHandler.GetPatientRecord)
		v1.POST("/appointments/:appointmentId/grant", accessHandler.GrantFromAppointment)

		audit := v1.Group("/audit")
		{
			audit.GET("/logs", auditHandler.GetLogs)
			audit.GET("/export", auditHandler.ExportLogs)
			audit.GET("/stats", auditHandler.GetStats)
		}

		compliance := v1.Group("/compliance")
		{
			compliance.GET("/my-data", complianceHandler.ExportMyData)
			compliance.DELETE("/my-account", complianceHandler.DeleteMyAccount)
			compliance.GET("/actors", complianceHandler.LookupActor)
		}
	}

	return router
}
