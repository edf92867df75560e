package handler

import (
	"net/http"

	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GeoHeaders names the trusted edge headers carrying coarse location.
type GeoHeaders struct {
	Country string
	Region  string
	City    string
}

type RedirectHandler struct {
	service service.RedirectService
	headers GeoHeaders
	logger  *zap.Logger
}

func NewRedirectHandler(service service.RedirectService, headers GeoHeaders, logger *zap.Logger) *RedirectHandler {
	return &RedirectHandler{service: service, headers: headers, logger: logger}
}

type RedirectResponse struct {
	OriginalURL string `json:"originalUrl"`
}

// Redirect resolves the code and returns the destination as JSON; the client performs
// the navigation. Recording and counting never affect the response.
func (h *RedirectHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	target, err := h.service.Redirect(c.Request.Context(), code, h.requestMeta(c))
	if err != nil {
		respondError(c, h.logger, "Redirect failed", err)
		return
	}

	h.logger.Debug("Redirect", zap.String("code", code))
	c.JSON(http.StatusOK, RedirectResponse{OriginalURL: target})
}

func (h *RedirectHandler) requestMeta(c *gin.Context) models.RequestMeta {
	meta := models.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
	}
	if h.headers.Country != "" {
		meta.Country = c.GetHeader(h.headers.Country)
	}
	if h.headers.Region != "" {
		meta.Region = c.GetHeader(h.headers.Region)
	}
	if h.headers.City != "" {
		meta.City = c.GetHeader(h.headers.City)
	}
	return meta
}
