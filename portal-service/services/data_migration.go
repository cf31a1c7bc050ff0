package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"portal-backend/shared/database/store"
	"portal-backend/shared/logger"
)

// MigrationReport summarizes a MigrateSubmissionData run.
type MigrationReport struct {
	Scanned     int
	Rewritten   int
	Unparseable []uint
}

// MigrateSubmissionData rewrites every insurance submission whose data is not
// JSON but can be read as the legacy single-quoted format. Rows that cannot be
// parsed either way are reported and left alone.
func MigrateSubmissionData(ctx context.Context, s store.Store, dryRun bool) (*MigrationReport, error) {
	log := logger.WithContext(ctx)

	subs, err := s.InsuranceSubmissions().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	report := &MigrationReport{Scanned: len(subs)}
	for _, sub := range subs {
		normalized, changed, err := NormalizeSubmissionData(sub.Data)
		if errors.Is(err, ErrUnparseableData) {
			log.Warn("submission data cannot be parsed", zap.Uint("submission_id", sub.ID))
			report.Unparseable = append(report.Unparseable, sub.ID)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("normalize submission %d: %w", sub.ID, err)
		}
		if !changed {
			continue
		}

		if !dryRun {
			if err := s.InsuranceSubmissions().UpdateData(ctx, sub.ID, normalized); err != nil {
				return report, fmt.Errorf("update submission %d: %w", sub.ID, err)
			}
		}
		report.Rewritten++
	}

	return report, nil
}
