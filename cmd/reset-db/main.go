package main

import (
	"os"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"portal-backend/shared/config"
	"portal-backend/shared/database"
	"portal-backend/shared/logger"
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
		log.Fatal("refusing to reset a production database")
	}

	db, err := gorm.Open(postgres.Open(database.DSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}

	// Drop in reverse dependency order.
	models := database.Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(models[i]); err != nil {
			log.Fatal("drop table failed", zap.Error(err))
		}
	}

	log.Info("database reset completed, all portal tables dropped", zap.Int("tables", len(models)))
	log.Info("run the seed command to recreate tables and seed data")
}
