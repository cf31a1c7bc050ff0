package store

import (
	"context"
	"errors"
	"fmt"

	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/auth"
	"portal-backend/shared/database/models/insurance"
	"portal-backend/shared/database/models/submission"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of gorm. Open the connection with
// TranslateError enabled so unique violations surface as ErrDuplicate.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserRepository { return &gormUserRepository{db: s.db} }

func (s *GormStore) Tokens(purpose auth.TokenPurpose) TokenRepository {
	return &gormTokenRepository{db: s.db, table: auth.TableFor(purpose)}
}

func (s *GormStore) Sessions() SessionRepository { return &gormSessionRepository{db: s.db} }

func (s *GormStore) Attempts() AttemptRepository { return &gormAttemptRepository{db: s.db} }

func (s *GormStore) Insurances() InsuranceRepository { return &gormInsuranceRepository{db: s.db} }

func (s *GormStore) IDSubmissions() IDSubmissionRepository {
	return &gormIDSubmissionRepository{db: s.db}
}

func (s *GormStore) DamageReports() DamageReportRepository {
	return &gormDamageReportRepository{db: s.db}
}

func (s *GormStore) InsuranceSubmissions() InsuranceSubmissionRepository {
	return &gormInsuranceSubmissionRepository{db: s.db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		// the referenced row is missing
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}

type gormUserRepository struct {
	db *gorm.DB
}

func (r *gormUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Advisor").First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepository) LockByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepository) ListByType(ctx context.Context, utype models.UserType) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Preload("Advisor").
		Where("utype = ?", utype).
		Order("created_at").
		Find(&users).Error
	return users, translate(err)
}

func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error)
}

func (r *gormUserRepository) Update(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error)
}

// gormTokenRepository serves both token tables through the shared Token view.
type gormTokenRepository struct {
	db    *gorm.DB
	table string
}

func (r *gormTokenRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*auth.Token, error) {
	var token auth.Token
	if err := r.db.WithContext(ctx).Table(r.table).Where("user_id = ?", userID).Take(&token).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *gormTokenRepository) GetByValue(ctx context.Context, value string) (*auth.Token, error) {
	var token auth.Token
	if err := r.db.WithContext(ctx).Table(r.table).Where("token = ?", value).Take(&token).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *gormTokenRepository) Create(ctx context.Context, token *auth.Token) error {
	return translate(r.db.WithContext(ctx).Table(r.table).Create(token).Error)
}

// Delete reports ErrNotFound when the row was already gone, which is how a
// second consumer of the same token loses the race.
func (r *gormTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).Delete(&auth.Token{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormSessionRepository struct {
	db *gorm.DB
}

func (r *gormSessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*auth.UserSession, error) {
	var session auth.UserSession
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (r *gormSessionRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*auth.UserSession, error) {
	var session auth.UserSession
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&session).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (r *gormSessionRepository) Create(ctx context.Context, session *auth.UserSession) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(session).Error)
}

func (r *gormSessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var sessionIDs []string
	db := r.db.WithContext(ctx)
	if err := db.Model(&auth.UserSession{}).Where("user_id = ?", userID).Pluck("session_id", &sessionIDs).Error; err != nil {
		return nil, translate(err)
	}
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	if err := db.Where("user_id = ?", userID).Delete(&auth.UserSession{}).Error; err != nil {
		return nil, translate(err)
	}
	return sessionIDs, nil
}

type gormAttemptRepository struct {
	db *gorm.DB
}

func (r *gormAttemptRepository) Record(ctx context.Context, attempt *auth.AuthAttempt) error {
	return translate(r.db.WithContext(ctx).Create(attempt).Error)
}

type gormInsuranceRepository struct {
	db *gorm.DB
}

func (r *gormInsuranceRepository) Create(ctx context.Context, ins *insurance.Insurance) error {
	return translate(r.db.WithContext(ctx).Create(ins).Error)
}

func (r *gormInsuranceRepository) GetByKey(ctx context.Context, key string) (*insurance.Insurance, error) {
	var ins insurance.Insurance
	if err := r.db.WithContext(ctx).Where("insurance_key = ?", key).First(&ins).Error; err != nil {
		return nil, translate(err)
	}
	return &ins, nil
}

type gormIDSubmissionRepository struct {
	db *gorm.DB
}

func (r *gormIDSubmissionRepository) GetByID(ctx context.Context, id uint) (*submission.IDSubmission, error) {
	var sub submission.IDSubmission
	if err := r.db.WithContext(ctx).Preload("Submitter").First(&sub, id).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (r *gormIDSubmissionRepository) GetLatest(ctx context.Context, submitterID uuid.UUID) (*submission.IDSubmission, error) {
	var sub submission.IDSubmission
	err := r.db.WithContext(ctx).
		Where("submitter_id = ? AND latest = ?", submitterID, true).
		Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (r *gormIDSubmissionRepository) ListBySubmitter(ctx context.Context, submitterID uuid.UUID) ([]submission.IDSubmission, error) {
	var subs []submission.IDSubmission
	err := r.db.WithContext(ctx).Where("submitter_id = ?", submitterID).Order("id").Find(&subs).Error
	return subs, translate(err)
}

func (r *gormIDSubmissionRepository) ListPending(ctx context.Context) ([]submission.IDSubmission, error) {
	var subs []submission.IDSubmission
	err := r.db.WithContext(ctx).
		Preload("Submitter").
		Where("latest = ? AND verified = ? AND denied = ?", true, false, false).
		Order("id").
		Find(&subs).Error
	return subs, translate(err)
}

func (r *gormIDSubmissionRepository) DemoteLatest(ctx context.Context, submitterID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&submission.IDSubmission{}).
		Where("submitter_id = ? AND latest = ?", submitterID, true).
		Update("latest", false).Error
	return translate(err)
}

func (r *gormIDSubmissionRepository) Create(ctx context.Context, sub *submission.IDSubmission) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error)
}

func (r *gormIDSubmissionRepository) Update(ctx context.Context, sub *submission.IDSubmission) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(sub).Error)
}

type gormDamageReportRepository struct {
	db *gorm.DB
}

func (r *gormDamageReportRepository) ListBySubmitter(ctx context.Context, submitterID uuid.UUID, filter DamageReportFilter) ([]submission.DamageReport, error) {
	q := r.db.WithContext(ctx).Preload("Policy.Insurance").Where("submitter_id = ?", submitterID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ExcludeDenied {
		q = q.Where("denied = ?", false)
	}

	var reports []submission.DamageReport
	err := q.Order("id").Find(&reports).Error
	return reports, translate(err)
}

func (r *gormDamageReportRepository) Create(ctx context.Context, report *submission.DamageReport) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(report).Error)
}

type gormInsuranceSubmissionRepository struct {
	db *gorm.DB
}

func (r *gormInsuranceSubmissionRepository) ListBySubmitter(ctx context.Context, submitterID uuid.UUID, filter InsuranceSubmissionFilter) ([]submission.InsuranceSubmission, error) {
	q := r.db.WithContext(ctx).
		Preload("Insurance").
		Preload("Submitter").
		Where("submitter_id = ?", submitterID)
	if filter.ExcludeDenied {
		q = q.Where("denied = ?", false)
	}
	if filter.Active != nil {
		q = q.Where("active = ?", *filter.Active)
	}

	var subs []submission.InsuranceSubmission
	err := q.Order("id").Find(&subs).Error
	return subs, translate(err)
}

func (r *gormInsuranceSubmissionRepository) ListAll(ctx context.Context) ([]submission.InsuranceSubmission, error) {
	var subs []submission.InsuranceSubmission
	err := r.db.WithContext(ctx).Order("id").Find(&subs).Error
	return subs, translate(err)
}

func (r *gormInsuranceSubmissionRepository) UpdateData(ctx context.Context, id uint, data string) error {
	res := r.db.WithContext(ctx).Model(&submission.InsuranceSubmission{}).Where("id = ?", id).Update("data", data)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormInsuranceSubmissionRepository) Create(ctx context.Context, sub *submission.InsuranceSubmission) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error)
}
