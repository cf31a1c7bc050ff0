package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"portal-backend/shared/config"
	"portal-backend/shared/database"
	"portal-backend/shared/logger"
)

func main() {
	email := flag.String("staff-email", "", "additional staff account to create")
	password := flag.String("staff-password", "", "password for -staff-email")
	flag.Parse()

	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	config.LoadConfig()

	st, err := database.OpenStore()
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer func() { _ = database.CloseDatabase() }()

	ctx := context.Background()
	if err := database.SeedDatabase(ctx, st); err != nil {
		log.Fatal("seeding failed", zap.Error(err))
	}

	if *email != "" {
		if *password == "" {
			log.Fatal("-staff-password is required with -staff-email")
		}
		if err := database.CreateStaffAccount(ctx, st, *email, *password, "Portal", "Staff"); err != nil {
			log.Fatal("failed to create staff account", zap.Error(err))
		}
	}

	log.Info("database seeding completed")
}
