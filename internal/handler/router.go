package handler

import (
	"github.com/SergeiKhy/link-redirector/internal/middleware"
	"github.com/SergeiKhy/link-redirector/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	BaseURL         string
	TrustedProxies  []string
	TrustedPlatform string
	GeoHeaders      GeoHeaders
}

type Services struct {
	Redirects  service.RedirectService
	Links      service.LinkService
	Analytics  service.AnalyticsService
	Settings   service.Settings
	Quota      service.QuotaGuard
	Dispatcher service.VisitDispatcher
}

func NewRouter(
	cfg RouterConfig,
	services Services,
	rateLimiter *middleware.RateLimiter,
	apiKey *middleware.APIKey,
	logger *zap.Logger,
) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))

	// nil = не доверять никаким прокси, ClientIP() берётся из RemoteAddr
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	router.TrustedPlatform = cfg.TrustedPlatform

	// Rate limiting для всех запросов
	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware())
	}

	redirectHandler := NewRedirectHandler(services.Redirects, cfg.GeoHeaders, logger)
	linkHandler := NewLinkHandler(services.Links, services.Analytics, cfg.BaseURL, logger)
	settingsHandler := NewSettingsHandler(services.Settings, services.Quota, logger)

	// API v.1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck(services.Dispatcher))
		v1.GET("/quota", settingsHandler.Quota)

		anonymous := v1.Group("/anonymous", middleware.ClientID())
		anonymous.POST("/links", linkHandler.CreateAnonymousLink)
		anonymous.GET("/links", linkHandler.ListAnonymousLinks)
		anonymous.DELETE("/links/:id", linkHandler.DeleteAnonymousLink)
		anonymous.GET("/links/:id/analytics", linkHandler.AnonymousAnalytics)

		protected := v1.Group("", apiKey.Middleware())
		protected.POST("/links", linkHandler.CreateLink)
		protected.GET("/links", linkHandler.ListLinks)
		protected.DELETE("/links/:id", linkHandler.DeleteLink)
		protected.GET("/links/:id/analytics", linkHandler.Analytics)
		protected.GET("/settings/anonymous-daily-limit", settingsHandler.GetAnonymousLimit)
		protected.PUT("/settings/anonymous-daily-limit", apiKey.RequireAdmin(), settingsHandler.SetAnonymousLimit)
	}

	// Редирект (корневой путь) - без API key проверки
	router.GET("/:code", redirectHandler.Redirect)

	return router, nil
}
