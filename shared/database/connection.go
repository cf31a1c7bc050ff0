package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"portal-backend/shared/config"
	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/auth"
	"portal-backend/shared/database/models/insurance"
	"portal-backend/shared/database/models/submission"
	"portal-backend/shared/database/store"
	"portal-backend/shared/logger"
)

var DB *gorm.DB

// getLogLevel returns appropriate log level based on environment
func getLogLevel(cfg *config.Config) gormlogger.LogLevel {
	if cfg.DBHost == "localhost" || cfg.DBHost == "127.0.0.1" {
		return gormlogger.Warn
	}
	return gormlogger.Error
}

// DSN builds the postgres connection string from DB_* settings.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
	)
}

func gormConfig(level gormlogger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// InitDatabase initializes the database connection and runs migrations
func InitDatabase() error {
	cfg := config.GetConfig()
	dsn := DSN(cfg)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), gormConfig(getLogLevel(cfg)))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logger.L().Info("database connection established", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))

	if err := runMigrations(DB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// OpenSQLite opens and migrates a sqlite database through the pure-Go
// driver. ":memory:" gives a private database that lives as long as the
// returned handle. Writers are serialized on a single connection, which is
// also what keeps an in-memory database shared between calls.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if path == ":memory:" {
		dsn = "file::memory:"
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(gormlogger.Silent))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

// OpenStore returns the store selected by DB_DRIVER. The memory driver needs no
// external services and starts empty; sqlite keeps a local file at SQLITE_PATH.
func OpenStore() (store.Store, error) {
	cfg := config.GetConfig()
	switch cfg.DBDriver {
	case "memory":
		logger.L().Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	case "sqlite":
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		DB = db
		logger.L().Info("sqlite database opened", zap.String("path", cfg.SQLitePath))
		return store.NewGormStore(DB), nil
	}

	if err := InitDatabase(); err != nil {
		return nil, err
	}
	return store.NewGormStore(DB), nil
}

// Models lists every table owned by the portal, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&auth.VerifyEmailToken{},
		&auth.ResetPasswordToken{},
		&auth.UserSession{},
		&auth.AuthAttempt{},
		&insurance.Insurance{},
		&submission.InsuranceSubmission{},
		&submission.DamageReport{},
		&submission.IDSubmission{},
	}
}

func runMigrations(db *gorm.DB) error {
	log := logger.L()
	log.Info("checking database schema")

	migrator := db.Migrator()
	migratedCount := 0
	for _, model := range Models() {
		if !migrator.HasTable(model) {
			log.Info("creating table", zap.String("model", fmt.Sprintf("%T", model)))
			migratedCount++
		}

		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	log.Info("database migrations completed", zap.Int("tables_created", migratedCount))
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
