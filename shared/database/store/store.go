package store

import (
	"context"
	"errors"

	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/auth"
	"portal-backend/shared/database/models/insurance"
	"portal-backend/shared/database/models/submission"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the credential and submission storage used by the portal. Every
// repository obtained from the Store passed to Transaction's callback runs
// inside that transaction.
type Store interface {
	Users() UserRepository
	Tokens(purpose auth.TokenPurpose) TokenRepository
	Sessions() SessionRepository
	Attempts() AttemptRepository
	Insurances() InsuranceRepository
	IDSubmissions() IDSubmissionRepository
	DamageReports() DamageReportRepository
	InsuranceSubmissions() InsuranceSubmissionRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type UserRepository interface {
	// GetByID loads the user with its advisor.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// LockByID loads the user row for update. Only meaningful inside a transaction.
	LockByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListByType(ctx context.Context, utype models.UserType) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

type TokenRepository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*auth.Token, error)
	GetByValue(ctx context.Context, value string) (*auth.Token, error)
	Create(ctx context.Context, token *auth.Token) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type SessionRepository interface {
	GetBySessionID(ctx context.Context, sessionID string) (*auth.UserSession, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*auth.UserSession, error)
	Create(ctx context.Context, session *auth.UserSession) error
	// DeleteByUser removes the user's sessions and returns their session ids.
	DeleteByUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type AttemptRepository interface {
	Record(ctx context.Context, attempt *auth.AuthAttempt) error
}

type InsuranceRepository interface {
	Create(ctx context.Context, ins *insurance.Insurance) error
	GetByKey(ctx context.Context, key string) (*insurance.Insurance, error)
}

type IDSubmissionRepository interface {
	// GetByID loads the submission with its submitter.
	GetByID(ctx context.Context, id uint) (*submission.IDSubmission, error)
	GetLatest(ctx context.Context, submitterID uuid.UUID) (*submission.IDSubmission, error)
	ListBySubmitter(ctx context.Context, submitterID uuid.UUID) ([]submission.IDSubmission, error)
	// ListPending returns latest submissions that are neither verified nor denied.
	ListPending(ctx context.Context) ([]submission.IDSubmission, error)
	DemoteLatest(ctx context.Context, submitterID uuid.UUID) error
	Create(ctx context.Context, sub *submission.IDSubmission) error
	Update(ctx context.Context, sub *submission.IDSubmission) error
}

type DamageReportFilter struct {
	Status        submission.DamageStatus
	ExcludeDenied bool
}

type DamageReportRepository interface {
	// ListBySubmitter loads reports with their policy and its insurance.
	ListBySubmitter(ctx context.Context, submitterID uuid.UUID, filter DamageReportFilter) ([]submission.DamageReport, error)
	Create(ctx context.Context, report *submission.DamageReport) error
}

type InsuranceSubmissionFilter struct {
	ExcludeDenied bool
	Active        *bool
}

type InsuranceSubmissionRepository interface {
	// ListBySubmitter loads submissions with insurance and submitter.
	ListBySubmitter(ctx context.Context, submitterID uuid.UUID, filter InsuranceSubmissionFilter) ([]submission.InsuranceSubmission, error)
	ListAll(ctx context.Context) ([]submission.InsuranceSubmission, error)
	UpdateData(ctx context.Context, id uint, data string) error
	Create(ctx context.Context, sub *submission.InsuranceSubmission) error
}
