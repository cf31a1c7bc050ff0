package config

import (
	"os"
	"strconv"
	"time"

	sharedConfig "portal-backend/shared/config"
)

type NotificationConfig struct {
	*sharedConfig.Config

	Email EmailConfig
}

type EmailConfig struct {
	// Enabled=false renders templates and logs them instead of dialing SMTP.
	Enabled       bool
	RetryAttempts int
	RetryDelay    time.Duration
}

var notificationConfig *NotificationConfig

func LoadNotificationConfig() *NotificationConfig {
	if notificationConfig != nil {
		return notificationConfig
	}

	notificationConfig = &NotificationConfig{
		Config: sharedConfig.GetConfig(),
		Email: EmailConfig{
			Enabled:       getEnvAsBool("EMAIL_NOTIFICATION_ENABLE", true),
			RetryAttempts: getEnvAsInt("EMAIL_RETRY_ATTEMPTS", 3),
			RetryDelay:    time.Duration(getEnvAsInt("EMAIL_RETRY_DELAY_SECONDS", 2)) * time.Second,
		},
	}

	return notificationConfig
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
