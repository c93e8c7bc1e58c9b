// File: salonbook/handlers/admin.go
package handlers

import (
	"errors"
	"net/http"

	"salonbook/models"
	"salonbook/services/retention"
	"salonbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes the operator cleanup triggers.
type AdminHandler struct {
	Retention retention.RetentionService
}

func NewAdminHandler(rs retention.RetentionService) *AdminHandler {
	return &AdminHandler{Retention: rs}
}

type ensureDailyRequest struct {
	TenantID string `json:"tenantId" binding:"required"`
}

type runCleanupRequest struct {
	TenantID   string `json:"tenantId" binding:"required"`
	BeforeDate string `json:"beforeDate"`
	DryRun     bool   `json:"dryRun"`
}

// EnsureDailyCleanupHandler runs today's cleanup for a tenant unless it
// already ran or is running elsewhere.
func (ah *AdminHandler) EnsureDailyCleanupHandler(c *gin.Context) {
	var req ensureDailyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	res, err := ah.Retention.EnsureDaily(c.Request.Context(), req.TenantID)
	if err != nil {
		getLogger(c).Error("Daily cleanup failed", zap.String("tenantID", req.TenantID), zap.Error(err))
		utils.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RunCleanupHandler runs a cleanup with an explicit cutoff, or reports what
// it would do when dryRun is set.
func (ah *AdminHandler) RunCleanupHandler(c *gin.Context) {
	var req runCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	res, err := ah.Retention.RunCleanup(c.Request.Context(), req.TenantID, req.BeforeDate, req.DryRun)
	if errors.Is(err, utils.ErrConflict) {
		getLogger(c).Info("Cleanup skipped, lease held", zap.String("tenantID", req.TenantID))
		c.JSON(http.StatusConflict, gin.H{"ran": false, "reason": models.EnsureReasonLocked, "code": "cleanup_locked"})
		return
	}
	if err != nil {
		getLogger(c).Error("Cleanup run failed",
			zap.String("tenantID", req.TenantID),
			zap.String("beforeDate", req.BeforeDate),
			zap.Error(err))
		utils.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
