package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"portal-backend/shared/config"
	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/insurance"
	"portal-backend/shared/database/store"
	"portal-backend/shared/logger"
	utils "portal-backend/shared/utils/auth"
)

var defaultInsurances = []insurance.Insurance{
	{
		InsuranceName:     "Household",
		InsuranceKey:      "household",
		InsuranceSubtitle: "Contents and home cover",
		InsuranceFields:   datatypes.JSON(`{"living_space":{"type":"number","label":"Living space (m2)"},"address":{"type":"text","label":"Address"}}`),
	},
	{
		InsuranceName:     "Private liability",
		InsuranceKey:      "liability",
		InsuranceSubtitle: "Damage you cause to others",
		InsuranceFields:   datatypes.JSON(`{"household_size":{"type":"number","label":"Persons in household"}}`),
	},
	{
		InsuranceName:     "Travel",
		InsuranceKey:      "travel",
		InsuranceSubtitle: "Cancellation and medical cover abroad",
		InsuranceFields:   datatypes.JSON(`{"destination":{"type":"text","label":"Destination"},"start":{"type":"date","label":"Start"}}`),
	},
}

// SeedDatabase creates the sample insurances and the staff account from config.
// Existing rows are left untouched.
func SeedDatabase(ctx context.Context, s store.Store) error {
	log := logger.L()

	created := 0
	for _, ins := range defaultInsurances {
		if _, err := s.Insurances().GetByKey(ctx, ins.InsuranceKey); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("look up insurance %s: %w", ins.InsuranceKey, err)
		}

		ins := ins
		if err := s.Insurances().Create(ctx, &ins); err != nil {
			return fmt.Errorf("create insurance %s: %w", ins.InsuranceKey, err)
		}
		created++
	}
	log.Info("insurances seeded", zap.Int("created", created))

	cfg := config.GetConfig()
	return CreateStaffAccount(ctx, s, cfg.StaffEmail, cfg.StaffPassword, "Portal", "Staff")
}

// CreateStaffAccount creates a verified staff user unless the email is taken.
func CreateStaffAccount(ctx context.Context, s store.Store, email, password, firstName, lastName string) error {
	log := logger.L()

	if _, err := s.Users().GetByEmail(ctx, email); err == nil {
		log.Info("staff account already exists", zap.String("email", logger.MaskEmail(email)))
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("look up staff account: %w", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash staff password: %w", err)
	}

	staff := &models.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  hash,
		FirstName: firstName,
		LastName:  lastName,
		Utype:     models.UserTypeStaff,
		Verified:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.Users().Create(ctx, staff); err != nil {
		return fmt.Errorf("create staff account: %w", err)
	}

	log.Info("staff account created", zap.String("email", logger.MaskEmail(email)))
	return nil
}
