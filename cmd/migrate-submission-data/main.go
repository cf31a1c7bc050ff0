package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"portal-backend/portal-service/services"
	"portal-backend/shared/config"
	"portal-backend/shared/database"
	"portal-backend/shared/logger"
)

// Rewrites insurance submission data stored in the legacy single-quoted
// format as JSON.
func main() {
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
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

	report, err := services.MigrateSubmissionData(context.Background(), st, *dryRun)
	if err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	log.Info("submission data migration finished",
		zap.Bool("dry_run", *dryRun),
		zap.Int("scanned", report.Scanned),
		zap.Int("rewritten", report.Rewritten),
		zap.Uints("unparseable", report.Unparseable),
	)
}
