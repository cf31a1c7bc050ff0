package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"portal-backend/shared/logger"
)

type Config struct {
	// Runtime
	AppEnv string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// JWT
	JWTSecret      string
	JWTExpireHours string

	// Seeded staff account
	StaffEmail    string
	StaffPassword string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string

	// Email Configuration
	EmailFrom     string
	EmailFromName string
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SMTPUseTLS    bool

	// Rate Limiting
	RateLimitMaxRequests          string
	RateLimitTimeWindowSeconds    string
	RateLimitBlockDurationMinutes string

	// Login / register rate limiting
	LoginRateLimitMaxAttempts   string
	LoginRateLimitWindowSeconds string
	LoginRateLimitBlockMinutes  string

	// Password Reset Rate Limiting
	PasswordResetMaxAttempts   string
	PasswordResetWindowMinutes string
	PasswordResetBlockHours    string

	// Frontend URL, used to build links in mails
	FrontendURL string

	// Service URLs
	PortalServiceURL       string
	NotificationServiceURL string
	PortalServicePort      string
	NotificationPort       string

	// MinIO Configuration
	MinIOServerURL    string
	MinIORootUser     string
	MinIORootPassword string
	MinIOUseSSL       bool
	MinIOBucketName   string
	MinIOURLExpiry    string

	// ID document upload limits
	IDDocumentMaxFileSize  string
	IDDocumentAllowedTypes string
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	log := logger.L()
	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Info("environment loaded", zap.String("path", path))
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Warn(".env file not found, using system environment variables")
	}

	cfg = &Config{
		AppEnv: getEnv("APP_ENV", "development"),

		// Database
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "portal"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "portal.db"),

		// JWT
		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key-change-this"),
		JWTExpireHours: getEnv("JWT_EXPIRE_HOURS", "72"),

		StaffEmail:    getEnv("STAFF_EMAIL", "staff@portal.local"),
		StaffPassword: getEnv("STAFF_PASSWORD", "staff12345"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		// Email Configuration
		EmailFrom:     getEnv("EMAIL_FROM", "noreply@portal.local"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "Customer Portal"),
		SMTPHost:      getEnv("SMTP_HOST", "smtp.example.com"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:    getEnvAsBool("SMTP_USE_TLS", false),

		RateLimitMaxRequests:          getEnv("RATE_LIMIT_MAX_REQUESTS", "100"),
		RateLimitTimeWindowSeconds:    getEnv("RATE_LIMIT_TIME_WINDOW_SECONDS", "60"),
		RateLimitBlockDurationMinutes: getEnv("RATE_LIMIT_BLOCK_DURATION_MINUTES", "15"),

		LoginRateLimitMaxAttempts:   getEnv("LOGIN_RATE_LIMIT_MAX_ATTEMPTS", "5"),
		LoginRateLimitWindowSeconds: getEnv("LOGIN_RATE_LIMIT_WINDOW_SECONDS", "300"),
		LoginRateLimitBlockMinutes:  getEnv("LOGIN_RATE_LIMIT_BLOCK_MINUTES", "30"),

		PasswordResetMaxAttempts:   getEnv("PASSWORD_RESET_MAX_ATTEMPTS", "3"),
		PasswordResetWindowMinutes: getEnv("PASSWORD_RESET_WINDOW_MINUTES", "60"),
		PasswordResetBlockHours:    getEnv("PASSWORD_RESET_BLOCK_HOURS", "24"),

		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		PortalServiceURL:       getEnv("PORTAL_SERVICE_URL", "http://localhost:8001"),
		NotificationServiceURL: getEnv("NOTIFICATION_SERVICE_URL", "http://localhost:8004"),
		PortalServicePort:      getEnv("PORTAL_SERVICE_PORT", "8001"),
		NotificationPort:       getEnv("NOTIFICATION_SERVICE_PORT", "8004"),

		// MinIO Configuration
		MinIOServerURL:    getEnv("MINIO_SERVER_URL", "http://localhost:9000"),
		MinIORootUser:     getEnv("MINIO_ROOT_USER", "minioadmin"),
		MinIORootPassword: getEnv("MINIO_ROOT_PASSWORD", "minioadmin"),
		MinIOUseSSL:       getEnvAsBool("MINIO_USE_SSL", false),
		MinIOBucketName:   getEnv("MINIO_BUCKET_NAME", "portal-documents"),
		MinIOURLExpiry:    getEnv("MINIO_URL_EXPIRY_MINUTES", "60"),

		IDDocumentMaxFileSize:  getEnv("ID_DOCUMENT_MAX_FILE_SIZE", "10MB"),
		IDDocumentAllowedTypes: getEnv("ID_DOCUMENT_ALLOWED_TYPES", ".pdf,.jpg,.jpeg,.png"),
	}

	log.Info("configuration loaded", zap.String("app_env", cfg.AppEnv), zap.String("db_driver", cfg.DBDriver))
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// IsProduction reports whether APP_ENV selects the production profile.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SessionTTL is the lifetime of a session token.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(atoiOr(c.JWTExpireHours, 72)) * time.Hour
}

// PresignedURLExpiry is how long presigned GET URLs stay valid.
func (c *Config) PresignedURLExpiry() time.Duration {
	return time.Duration(atoiOr(c.MinIOURLExpiry, 60)) * time.Minute
}

// RedisAddr joins host and port.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// RedisDBIndex returns REDIS_DB as an integer.
func (c *Config) RedisDBIndex() int {
	return atoiOr(c.RedisDB, 0)
}

// SMTPPortNumber returns SMTP_PORT as an integer.
func (c *Config) SMTPPortNumber() int {
	return atoiOr(c.SMTPPort, 587)
}

// GetRateLimitMaxRequests returns the rate limit max requests as integer
func (c *Config) GetRateLimitMaxRequests() int {
	return atoiOr(c.RateLimitMaxRequests, 100)
}

// GetRateLimitTimeWindowSeconds returns the rate limit time window as integer
func (c *Config) GetRateLimitTimeWindowSeconds() int {
	return atoiOr(c.RateLimitTimeWindowSeconds, 60)
}

// GetRateLimitBlockDurationMinutes returns the rate limit block duration as integer
func (c *Config) GetRateLimitBlockDurationMinutes() int {
	return atoiOr(c.RateLimitBlockDurationMinutes, 15)
}

func (c *Config) GetLoginRateLimit() (maxAttempts int, window, block time.Duration) {
	return atoiOr(c.LoginRateLimitMaxAttempts, 5),
		time.Duration(atoiOr(c.LoginRateLimitWindowSeconds, 300)) * time.Second,
		time.Duration(atoiOr(c.LoginRateLimitBlockMinutes, 30)) * time.Minute
}

func (c *Config) GetPasswordResetRateLimit() (maxAttempts int, window, block time.Duration) {
	return atoiOr(c.PasswordResetMaxAttempts, 3),
		time.Duration(atoiOr(c.PasswordResetWindowMinutes, 60)) * time.Minute,
		time.Duration(atoiOr(c.PasswordResetBlockHours, 24)) * time.Hour
}

// GetIDDocumentMaxFileSize parses values like "10MB" or "512KB" into bytes.
func (c *Config) GetIDDocumentMaxFileSize() int64 {
	return parseSize(c.IDDocumentMaxFileSize, 10<<20)
}

func parseSize(raw string, fallback int64) int64 {
	units := []struct {
		suffix string
		mult   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}}

	for _, u := range units {
		if len(raw) > len(u.suffix) && raw[len(raw)-len(u.suffix):] == u.suffix {
			n, err := strconv.ParseInt(raw[:len(raw)-len(u.suffix)], 10, 64)
			if err != nil || n <= 0 {
				return fallback
			}
			return n * u.mult
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
		return n
	}
	return fallback
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func atoiOr(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
