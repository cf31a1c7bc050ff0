package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "portal-backend/docs"
	"portal-backend/portal-service/handlers"
	"portal-backend/portal-service/middleware"
	"portal-backend/portal-service/routes"
	"portal-backend/portal-service/services"
	"portal-backend/shared/clients"
	"portal-backend/shared/config"
	"portal-backend/shared/database"
	"portal-backend/shared/logger"
	"portal-backend/shared/utils/cache"
	utils "portal-backend/shared/utils/auth"
	"portal-backend/shared/utils/document"
)

func main() {
	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	config.LoadConfig()
	cfg := config.GetConfig()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	st, err := database.OpenStore()
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer func() { _ = database.CloseDatabase() }()

	if err := database.SeedDatabase(ctx, st); err != nil {
		log.Warn("seeding failed", zap.Error(err))
	}

	var sessionCache services.SessionCache
	cacheManager, err := cache.InitCacheManager(ctx)
	if err != nil {
		log.Warn("redis unavailable, sessions are resolved from the database only", zap.Error(err))
	} else {
		sessionCache = cacheManager
		defer func() { _ = cacheManager.Close() }()
	}

	var storage services.ObjectStorage
	minioService, err := services.NewMinIOService(ctx)
	if err != nil {
		log.Warn("MinIO unavailable, document upload disabled", zap.Error(err))
	} else {
		storage = minioService
	}

	notifier := clients.NewNotificationClient()
	signer := utils.NewSessionSignerFromConfig()

	tokens := services.NewTokenService(st, services.SystemClock)
	sessions := services.NewSessionService(st, signer, sessionCache, services.SystemClock)
	profiles := services.NewProfileService(st, storage)
	accounts := services.NewAccountService(st, sessions, tokens, profiles, notifier, cfg.FrontendURL,
		services.AsyncDispatcher, services.SystemClock)
	flows := services.NewAuthFlowService(st, tokens, sessions, notifier, cfg.FrontendURL, services.SystemClock)
	documents := services.NewIDDocumentService(st, storage, accounts, sessions, profiles, notifier,
		document.UploadRules{
			MaxSize:    cfg.GetIDDocumentMaxFileSize(),
			Extensions: document.ParseExtensions(cfg.IDDocumentAllowedTypes),
		},
		services.AsyncDispatcher, services.SystemClock)

	loginMax, loginWindow, loginBlock := cfg.GetLoginRateLimit()
	resetMax, resetWindow, resetBlock := cfg.GetPasswordResetRateLimit()
	limits := &routes.Limits{
		Limiter: middleware.NewRateLimiter(5 * time.Minute),
		General: middleware.RateLimitConfig{
			MaxRequests:   cfg.GetRateLimitMaxRequests(),
			TimeWindow:    time.Duration(cfg.GetRateLimitTimeWindowSeconds()) * time.Second,
			BlockDuration: time.Duration(cfg.GetRateLimitBlockDurationMinutes()) * time.Minute,
		},
		Login:         middleware.RateLimitConfig{MaxRequests: loginMax, TimeWindow: loginWindow, BlockDuration: loginBlock},
		PasswordReset: middleware.RateLimitConfig{MaxRequests: resetMax, TimeWindow: resetWindow, BlockDuration: resetBlock},
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	routes.Setup(router, routes.Handlers{
		Users:     handlers.NewUserHandler(accounts),
		Flows:     handlers.NewAuthFlowHandler(flows),
		Documents: handlers.NewIDDocumentHandler(documents),
	}, sessions, limits)

	checks := map[string]func() error{}
	if cacheManager != nil {
		checks["redis"] = func() error { return cacheManager.TestConnection(context.Background()) }
	}
	if minioService != nil {
		checks["minio"] = func() error { return minioService.TestConnection(context.Background()) }
	}
	router.GET("/health", routes.Health(checks))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              ":" + cfg.PortalServicePort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("portal service starting", zap.String("port", cfg.PortalServicePort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("portal service stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	limits.Limiter.Stop()
	log.Info("portal service stopped")
}
