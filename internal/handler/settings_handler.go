package handler

import (
	"net/http"

	"github.com/SergeiKhy/link-redirector/internal/middleware"
	"github.com/SergeiKhy/link-redirector/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	settings service.Settings
	quota    service.QuotaGuard
	logger   *zap.Logger
}

func NewSettingsHandler(settings service.Settings, quota service.QuotaGuard, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, quota: quota, logger: logger}
}

type LimitRequest struct {
	Limit *int64 `json:"limit" binding:"required"`
}

// Quota GET /api/v1/quota. Always 200: the guard falls back instead of failing.
func (h *SettingsHandler) Quota(c *gin.Context) {
	c.JSON(http.StatusOK, h.quota.Check(c.Request.Context()))
}

// GetAnonymousLimit GET /api/v1/settings/anonymous-daily-limit
func (h *SettingsHandler) GetAnonymousLimit(c *gin.Context) {
	limit, err := h.settings.AnonymousDailyLimit(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to read limit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"limit": limit})
}

// SetAnonymousLimit PUT /api/v1/settings/anonymous-daily-limit
func (h *SettingsHandler) SetAnonymousLimit(c *gin.Context) {
	var req LimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	owner, _ := middleware.OwnerFromContext(c)
	if err := h.settings.SetAnonymousDailyLimit(c.Request.Context(), *req.Limit, owner); err != nil {
		respondError(c, h.logger, "Failed to update limit", err)
		return
	}

	h.logger.Info("Anonymous daily limit updated", zap.Int64("limit", *req.Limit), zap.String("by", owner))
	c.JSON(http.StatusOK, gin.H{"limit": *req.Limit})
}
