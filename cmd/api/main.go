package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/link-redirector/internal/config"
	"github.com/SergeiKhy/link-redirector/internal/geo"
	"github.com/SergeiKhy/link-redirector/internal/handler"
	"github.com/SergeiKhy/link-redirector/internal/middleware"
	"github.com/SergeiKhy/link-redirector/internal/repository"
	"github.com/SergeiKhy/link-redirector/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Миграции
	if err := repository.Migrate(cfg.DB); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// Подключение к БД (postgres)
	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Подключение к Redis
	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Инициализация репозиториев
	linkRepo := repository.NewLinkRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	cacheRepo := repository.NewCacheRepository(redis)

	// Геолокация: заголовки edge-сети, затем mmdb, затем внешний сервис
	locators := make([]geo.Locator, 0, 2)
	if cfg.Geo.MMDBPath != "" {
		mmdb, err := geo.OpenMMDB(cfg.Geo.MMDBPath)
		if err != nil {
			logger.Warn("GeoIP database unavailable", zap.String("path", cfg.Geo.MMDBPath), zap.Error(err))
		} else {
			defer mmdb.Close()
			locators = append(locators, mmdb)
		}
	}
	if cfg.Geo.LookupURL != "" {
		httpLocator, err := geo.NewHTTPLocator(cfg.Geo.LookupURL, cfg.Geo.LookupTimeout)
		if err != nil {
			logger.Warn("Geo lookup disabled", zap.Error(err))
		} else {
			locators = append(locators, httpLocator)
		}
	}
	geoChain := geo.NewChain(logger, locators...)
	logger.Info("Geolocation configured", zap.Int("locators", len(locators)))

	// Инициализация сервисов
	settings := service.NewSettings(settingsRepo)
	quota := service.NewQuotaGuard(linkRepo, settings, logger)
	resolver := service.NewResolver(linkRepo, cacheRepo, cfg.Redis.CacheTTL, logger)
	recorder := service.NewVisitRecorder(visitRepo, geoChain, logger)
	counter := service.NewClickCounter(linkRepo)

	// Worker pool для записи визитов и подсчёта кликов
	dispatcher := service.NewVisitDispatcher(recorder, counter, cacheRepo, service.DispatcherConfig{
		Workers: cfg.Recorder.Workers,
		Buffer:  cfg.Recorder.Buffer,
		Timeout: cfg.Recorder.Timeout,
	}, logger)
	dispatcher.Start()

	services := handler.Services{
		Redirects: service.NewRedirectService(resolver, dispatcher),
		Links: service.NewLinkService(linkRepo, cacheRepo, quota, service.LinkServiceConfig{
			CodeLength:     cfg.Links.CodeLength,
			BlockedDomains: cfg.Links.BlockedDomains,
		}, logger),
		Analytics:  service.NewAnalyticsService(linkRepo, visitRepo),
		Settings:   settings,
		Quota:      quota,
		Dispatcher: dispatcher,
	}

	// Инициализация middleware
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	rateLimiter := middleware.NewRateLimiter(ctx, middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})

	if len(cfg.Auth.APIKeys) == 0 {
		logger.Warn("No API keys configured, registered endpoints will reject every request")
	}
	apiKey := middleware.NewAPIKey(middleware.APIKeyConfig{Keys: cfg.Auth.APIKeys, Admins: cfg.Auth.Admins})

	// Настройка роутера
	router, err := handler.NewRouter(handler.RouterConfig{
		BaseURL:         cfg.App.BaseURL,
		TrustedProxies:  cfg.HTTP.TrustedProxies,
		TrustedPlatform: cfg.HTTP.TrustedPlatform,
		GeoHeaders: handler.GeoHeaders{
			Country: cfg.Geo.CountryHeader,
			Region:  cfg.Geo.RegionHeader,
			City:    cfg.Geo.CityHeader,
		},
	}, services, rateLimiter, apiKey, logger)
	if err != nil {
		logger.Fatal("Failed to configure router", zap.Error(err))
	}

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск в горутине
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// сервер больше не принимает запросы, дописываем оставшиеся визиты
	dispatcher.Stop()

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.App.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.App.LogLevel)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}
