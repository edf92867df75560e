package handler

import (
	"net/http"

	"github.com/SergeiKhy/link-redirector/internal/service"
	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status     string                  `json:"status"`
	Dispatcher service.DispatcherStats `json:"dispatcher"`
}

func HealthCheck(dispatcher service.VisitDispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:     "ok",
			Dispatcher: dispatcher.Stats(),
		})
	}
}
