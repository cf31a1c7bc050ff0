package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portal-backend/notification-service/config"
	"portal-backend/notification-service/handlers"
	"portal-backend/notification-service/services"
	"portal-backend/shared/logger"
)

// @title Notification Service API
// @version 1.0
// @description Templated mail delivery and realtime push for the customer portal
// @host localhost:8004
// @BasePath /

func main() {
	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.LoadNotificationConfig()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	emailService := services.NewEmailService(cfg)
	hub := services.NewHub([]string{cfg.FrontendURL})

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	router.Use(cors.New(corsConfig))

	handlers.Register(router, handlers.NewEmailHandler(emailService), handlers.NewWebSocketHandler(hub))

	log.Info("notification service starting",
		zap.String("port", cfg.NotificationPort),
		zap.Bool("email_enabled", cfg.Email.Enabled),
	)
	if err := router.Run(":" + cfg.NotificationPort); err != nil {
		log.Fatal("notification service stopped", zap.Error(err))
	}
}
