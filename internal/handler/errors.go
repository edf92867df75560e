package handler

import (
	"errors"
	"net/http"

	"github.com/SergeiKhy/link-redirector/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors to HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Link not found"
	case errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrSpamDomain),
		errors.Is(err, service.ErrMissingOwner),
		errors.Is(err, service.ErrInvalidLimit):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrCodeTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrQuotaExceeded):
		return http.StatusTooManyRequests, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func respondError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	status, text := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		logger.Debug(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Error: text})
}
