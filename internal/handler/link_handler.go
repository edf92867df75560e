package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/SergeiKhy/link-redirector/internal/middleware"
	"github.com/SergeiKhy/link-redirector/internal/models"
	"github.com/SergeiKhy/link-redirector/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LinkHandler serves link management for both namespaces. Registered routes take
// the owner from the API key, anonymous routes from the client id.
type LinkHandler struct {
	links     service.LinkService
	analytics service.AnalyticsService
	baseURL   string
	logger    *zap.Logger
}

func NewLinkHandler(links service.LinkService, analytics service.AnalyticsService, baseURL string, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		links:     links,
		analytics: analytics,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

type CreateLinkRequest struct {
	URL         string `json:"url" binding:"required"`
	CustomAlias string `json:"custom_alias,omitempty"`
}

type LinkResponse struct {
	ID          uuid.UUID `json:"id"`
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	CustomAlias *string   `json:"custom_alias,omitempty"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *LinkHandler) toResponse(link *models.Link) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		ShortURL:    h.baseURL + "/" + link.ShortCode,
		OriginalURL: link.OriginalURL,
		CustomAlias: link.CustomAlias,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt,
	}
}

// CreateLink POST /api/v1/links
func (h *LinkHandler) CreateLink(c *gin.Context) {
	owner, _ := middleware.OwnerFromContext(c)
	h.create(c, func(input *models.CreateLinkInput) (*models.Link, error) {
		return h.links.CreateRegistered(c.Request.Context(), owner, input)
	})
}

// CreateAnonymousLink POST /api/v1/anonymous/links
func (h *LinkHandler) CreateAnonymousLink(c *gin.Context) {
	clientID := middleware.ClientIDFromContext(c)
	h.create(c, func(input *models.CreateLinkInput) (*models.Link, error) {
		return h.links.CreateAnonymous(c.Request.Context(), clientID, input)
	})
}

func (h *LinkHandler) create(c *gin.Context, create func(*models.CreateLinkInput) (*models.Link, error)) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	input := &models.CreateLinkInput{OriginalURL: req.URL}
	if req.CustomAlias != "" {
		input.CustomAlias = &req.CustomAlias
	}

	link, err := create(input)
	if err != nil {
		respondError(c, h.logger, "Failed to create link", err)
		return
	}

	h.logger.Info("Link created",
		zap.String("namespace", string(link.Namespace)),
		zap.String("code", link.ShortCode),
	)
	c.JSON(http.StatusCreated, h.toResponse(link))
}

// ListLinks GET /api/v1/links
func (h *LinkHandler) ListLinks(c *gin.Context) {
	owner, _ := middleware.OwnerFromContext(c)
	h.list(c, models.NamespaceRegistered, owner)
}

// ListAnonymousLinks GET /api/v1/anonymous/links
func (h *LinkHandler) ListAnonymousLinks(c *gin.Context) {
	h.list(c, models.NamespaceAnonymous, middleware.ClientIDFromContext(c))
}

func (h *LinkHandler) list(c *gin.Context, ns models.Namespace, owner string) {
	links, err := h.links.List(c.Request.Context(), ns, owner)
	if err != nil {
		respondError(c, h.logger, "Failed to list links", err)
		return
	}

	out := make([]LinkResponse, 0, len(links))
	for i := range links {
		out = append(out, h.toResponse(&links[i]))
	}
	c.JSON(http.StatusOK, out)
}

// DeleteLink DELETE /api/v1/links/:id
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	owner, _ := middleware.OwnerFromContext(c)
	h.delete(c, models.NamespaceRegistered, owner)
}

// DeleteAnonymousLink DELETE /api/v1/anonymous/links/:id
func (h *LinkHandler) DeleteAnonymousLink(c *gin.Context) {
	h.delete(c, models.NamespaceAnonymous, middleware.ClientIDFromContext(c))
}

func (h *LinkHandler) delete(c *gin.Context, ns models.Namespace, owner string) {
	ref, ok := linkRef(c, ns)
	if !ok {
		return
	}

	if err := h.links.Delete(c.Request.Context(), ref, owner); err != nil {
		respondError(c, h.logger, "Failed to delete link", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted successfully"})
}

// Analytics GET /api/v1/links/:id/analytics
func (h *LinkHandler) Analytics(c *gin.Context) {
	owner, _ := middleware.OwnerFromContext(c)
	h.report(c, models.NamespaceRegistered, owner)
}

// AnonymousAnalytics GET /api/v1/anonymous/links/:id/analytics
func (h *LinkHandler) AnonymousAnalytics(c *gin.Context) {
	h.report(c, models.NamespaceAnonymous, middleware.ClientIDFromContext(c))
}

func (h *LinkHandler) report(c *gin.Context, ns models.Namespace, owner string) {
	ref, ok := linkRef(c, ns)
	if !ok {
		return
	}

	report, err := h.analytics.ForLink(c.Request.Context(), ref, owner)
	if err != nil {
		respondError(c, h.logger, "Failed to build analytics", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func linkRef(c *gin.Context, ns models.Namespace) (models.LinkRef, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid link id"})
		return models.LinkRef{}, false
	}
	return models.LinkRef{Namespace: ns, ID: id}, true
}
