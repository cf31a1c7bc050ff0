package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portal-backend/shared/apperrors"
	"portal-backend/shared/clients"
	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/auth"
	"portal-backend/shared/database/store"
	"portal-backend/shared/logger"
	utils "portal-backend/shared/utils/auth"
	"portal-backend/shared/utils/payload"
	"portal-backend/shared/utils/permission"
)

const (
	msgNotFound           = "Not found."
	msgEmailTaken         = "user with this email address already exists."
	msgBadCredentials     = "Unable to log in with provided credentials."
	msgWrongPassword      = "Given password is wrong."
	msgAdvisorMissing     = "No advisor with given UUID found."
	msgAdvisorNeedPicture = "The advisor must have a profile picture."
)

// AccountResult is a user view plus the session token issued alongside it.
type AccountResult struct {
	Created bool
	Profile map[string]any
	Token   string
}

// AccountService owns registration, login and profile updates.
type AccountService struct {
	store    store.Store
	sessions *SessionService
	tokens   *TokenService
	profiles *ProfileService
	mailer   tokenMailer
	dispatch Dispatcher
	now      Clock
}

func NewAccountService(s store.Store, sessions *SessionService, tokens *TokenService, profiles *ProfileService,
	notifier Notifier, frontendURL string, dispatch Dispatcher, clock Clock) *AccountService {
	if clock == nil {
		clock = SystemClock
	}
	if dispatch == nil {
		dispatch = AsyncDispatcher
	}
	return &AccountService{
		store:    s,
		sessions: sessions,
		tokens:   tokens,
		profiles: profiles,
		mailer:   tokenMailer{notifier: notifier, frontendURL: frontendURL},
		dispatch: dispatch,
		now:      clock,
	}
}

// CreateOrLogin registers a new customer when the payload is a valid
// registration, and otherwise logs in with email and password.
func (s *AccountService) CreateOrLogin(ctx context.Context, viewer permission.Viewer, p *payload.UserPayload, client ClientInfo) (*AccountResult, error) {
	if err := permission.Authorize(viewer, permission.ActionCreateOrLogin, uuid.Nil); err != nil {
		return nil, err
	}

	fieldErrs, err := s.registrationErrors(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(fieldErrs) == 0 {
		return s.register(ctx, p, client)
	}

	email, hasEmail := payload.Email(p.Email)
	password, hasPassword := payload.Text(p.Password)
	if hasEmail && hasPassword {
		result, err := s.login(ctx, email, password, client)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, errBadCredentials) {
			return nil, err
		}
		fieldErrs["non_field_errors"] = []string{msgBadCredentials}
	}

	return nil, apperrors.Validation(fieldErrs)
}

func (s *AccountService) registrationErrors(ctx context.Context, p *payload.UserPayload) (map[string][]string, error) {
	fieldErrs := utils.ValidateUserPayload(p, false)
	if fieldErrs == nil {
		fieldErrs = map[string][]string{}
	}
	if _, bad := fieldErrs["email"]; bad {
		return fieldErrs, nil
	}

	email, _ := payload.Email(p.Email)
	taken, err := s.emailTaken(ctx, email, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		fieldErrs["email"] = []string{msgEmailTaken}
	}
	return fieldErrs, nil
}

func (s *AccountService) emailTaken(ctx context.Context, email string, except uuid.UUID) (bool, error) {
	existing, err := s.store.Users().GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return existing.ID != except, nil
}

func (s *AccountService) register(ctx context.Context, p *payload.UserPayload, client ClientInfo) (*AccountResult, error) {
	hashed, err := utils.HashPassword(p.Password.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email, _ := payload.Email(p.Email)
	user := &models.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  hashed,
		FirstName: p.FirstName.Value,
		LastName:  p.LastName.Value,
		Phone:     p.Phone.Value,
		Address1:  p.Address1.Value,
		Address2:  p.Address2.Value,
		Zipcode:   p.Zipcode.Value,
		Utype:     models.UserTypeCustomer,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}

	var token string
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperrors.FieldError("email", msgEmailTaken)
			}
			return err
		}
		var err error
		token, _, err = s.sessions.Refresh(ctx, tx, user.ID, client)
		return err
	})
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx)
	log.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("email", logger.MaskEmail(user.Email)))

	bg := context.WithoutCancel(ctx)
	s.dispatch(func() {
		issued, err := s.tokens.Issue(bg, user.ID, auth.PurposeEmailVerification)
		if err != nil {
			log.Warn("verification token for new user not issued", zap.Error(err))
			return
		}
		if err := s.mailer.send(bg, clients.TemplateVerifyEmail, user, issued.Token); err != nil {
			log.Warn("verification mail for new user not sent", zap.Error(err))
		}
	})

	profile, err := s.profileOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AccountResult{Created: true, Profile: profile, Token: token}, nil
}

var errBadCredentials = errors.New("bad credentials")

func (s *AccountService) login(ctx context.Context, email, password string, client ClientInfo) (*AccountResult, error) {
	attempt := &auth.AuthAttempt{
		ID:        uuid.New(),
		Kind:      auth.AttemptLogin,
		Email:     email,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		CreatedAt: s.now(),
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			attempt.FailureType = "user_not_found"
			s.recordAttempt(ctx, attempt)
			return nil, errBadCredentials
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		attempt.FailureType = "wrong_password"
		s.recordAttempt(ctx, attempt)
		return nil, errBadCredentials
	}

	var (
		token    string
		replaced []string
	)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		locked, err := tx.Users().LockByID(ctx, user.ID)
		if err != nil {
			return err
		}
		now := s.now()
		locked.LastLogin = &now
		if err := tx.Users().Update(ctx, locked); err != nil {
			return err
		}
		token, replaced, err = s.sessions.Refresh(ctx, tx, user.ID, client)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.sessions.Forget(ctx, replaced)

	attempt.Successful = true
	s.recordAttempt(ctx, attempt)

	profile, err := s.profileOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AccountResult{Profile: profile, Token: token}, nil
}

func (s *AccountService) recordAttempt(ctx context.Context, attempt *auth.AuthAttempt) {
	if err := s.store.Attempts().Record(ctx, attempt); err != nil {
		logger.WithContext(ctx).Warn("failed to record auth attempt", zap.Error(err))
	}
}

func (s *AccountService) profileOf(ctx context.Context, id uuid.UUID) (map[string]any, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.profiles.BuildDetail(ctx, user)
}

// ListUsers returns [self, staff, customers] for staff and the own detail
// view for everybody else.
func (s *AccountService) ListUsers(ctx context.Context, viewer permission.Viewer) (any, error) {
	if err := permission.Authorize(viewer, permission.ActionListUsers, uuid.Nil); err != nil {
		return nil, err
	}

	self, err := s.profileOf(ctx, viewer.User.ID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsStaff() {
		return self, nil
	}

	staff, err := s.store.Users().ListByType(ctx, models.UserTypeStaff)
	if err != nil {
		return nil, err
	}
	customers, err := s.store.Users().ListByType(ctx, models.UserTypeCustomer)
	if err != nil {
		return nil, err
	}

	staffViews, err := s.profiles.BuildBasicList(ctx, staff)
	if err != nil {
		return nil, err
	}
	customerViews, err := s.profiles.BuildBasicList(ctx, customers)
	if err != nil {
		return nil, err
	}
	return []any{self, staffViews, customerViews}, nil
}

// GetUser returns the detail view of one user.
func (s *AccountService) GetUser(ctx context.Context, viewer permission.Viewer, id uuid.UUID) (map[string]any, error) {
	if err := permission.Authorize(viewer, permission.ActionViewUser, id); err != nil {
		return nil, err
	}
	profile, err := s.profileOf(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound(msgNotFound)
	}
	return profile, err
}

// UpdateProfile merges the supplied fields into the target user. Owners must
// confirm with their current password; staff editing someone else do not.
func (s *AccountService) UpdateProfile(ctx context.Context, viewer permission.Viewer, targetID uuid.UUID, p *payload.UserPayload, client ClientInfo) (*AccountResult, error) {
	if err := permission.Authorize(viewer, permission.ActionUpdateUser, targetID); err != nil {
		return nil, err
	}
	permission.SanitizeUserUpdate(viewer, p)

	target, err := s.store.Users().GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound(msgNotFound)
		}
		return nil, err
	}

	isOwner := viewer.Is(targetID)
	if isOwner {
		current, ok := payload.Text(p.CurrentPassword)
		if !ok {
			return nil, apperrors.FieldError("current_password", apperrors.MsgRequired)
		}
		if !utils.CheckPasswordHash(current, target.Password) {
			return nil, apperrors.FieldError("current_password_does_not_match", msgWrongPassword)
		}
	}

	changes, err := s.prepareChanges(ctx, target, p)
	if err != nil {
		return nil, err
	}

	var (
		token   string
		dropped []string
	)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		locked, err := tx.Users().LockByID(ctx, targetID)
		if err != nil {
			return err
		}
		changes.apply(locked)
		locked.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, locked); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperrors.FieldError("email", msgEmailTaken)
			}
			return err
		}

		if changes.passwordHash == "" {
			return nil
		}
		if isOwner {
			token, dropped, err = s.sessions.Refresh(ctx, tx, targetID, client)
			return err
		}
		dropped, err = s.sessions.Remove(ctx, tx, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.sessions.Forget(ctx, dropped)

	logger.WithContext(ctx).Info("user updated",
		zap.String("user_id", targetID.String()),
		zap.String("by", viewer.User.ID.String()),
		zap.Bool("password_changed", changes.passwordHash != ""),
	)

	profile, err := s.profileOf(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return &AccountResult{Profile: profile, Token: token}, nil
}

// userChanges holds validated values to merge into a user row.
type userChanges struct {
	email, firstName, lastName, phone *string
	address1, address2, zipcode       *string
	passwordHash                      string
	advisorID                         *uuid.UUID
	utype                             *models.UserType
}

func textPtr(o payload.Optional[string]) *string {
	if v, ok := payload.Text(o); ok {
		return &v
	}
	return nil
}

func emailPtr(o payload.Optional[string]) *string {
	if v, ok := payload.Email(o); ok {
		return &v
	}
	return nil
}

func (c *userChanges) apply(u *models.User) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.Email, c.email)
	set(&u.FirstName, c.firstName)
	set(&u.LastName, c.lastName)
	set(&u.Phone, c.phone)
	set(&u.Address1, c.address1)
	set(&u.Address2, c.address2)
	set(&u.Zipcode, c.zipcode)
	if c.passwordHash != "" {
		u.Password = c.passwordHash
	}
	if c.advisorID != nil {
		u.AdvisorID = c.advisorID
	}
	if c.utype != nil {
		u.Utype = *c.utype
	}
}

// prepareChanges validates the supplied fields in change mode and resolves
// references.
func (s *AccountService) prepareChanges(ctx context.Context, target *models.User, p *payload.UserPayload) (*userChanges, error) {
	changes, err := s.userFieldChanges(ctx, target, p)
	if err != nil {
		return nil, err
	}

	if raw, ok := payload.Text(p.Advisor); ok {
		advisor, err := s.resolveAdvisor(ctx, raw)
		if err != nil {
			return nil, err
		}
		changes.advisorID = &advisor.ID
	}

	if v, ok := p.Utype.Get(); ok {
		utype := models.UserType(v)
		if utype != models.UserTypeCustomer && utype != models.UserTypeStaff {
			return nil, apperrors.FieldError("utype", fmt.Sprintf("\"%d\" is not a valid choice.", v))
		}
		changes.utype = &utype
	}

	return changes, nil
}

// userFieldChanges covers the plain user attributes and the password. It is
// shared with ID document verification, which edits the submitter.
func (s *AccountService) userFieldChanges(ctx context.Context, target *models.User, p *payload.UserPayload) (*userChanges, error) {
	fieldErrs := utils.ValidateUserPayload(p, true)
	if len(fieldErrs) > 0 {
		return nil, apperrors.Validation(fieldErrs)
	}

	changes := &userChanges{
		email:     emailPtr(p.Email),
		firstName: textPtr(p.FirstName),
		lastName:  textPtr(p.LastName),
		phone:     textPtr(p.Phone),
		address1:  textPtr(p.Address1),
		address2:  textPtr(p.Address2),
		zipcode:   textPtr(p.Zipcode),
	}

	if changes.email != nil && *changes.email != target.Email {
		taken, err := s.emailTaken(ctx, *changes.email, target.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.FieldError("email", msgEmailTaken)
		}
	}

	if password, ok := payload.Text(p.Password); ok {
		hashed, err := utils.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		changes.passwordHash = hashed
	}

	return changes, nil
}

func (s *AccountService) resolveAdvisor(ctx context.Context, raw string) (*models.User, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.Conflict("advisor_does_not_exist", msgAdvisorMissing)
	}

	advisor, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.Conflict("advisor_does_not_exist", msgAdvisorMissing)
		}
		return nil, err
	}
	if !advisor.IsStaff() {
		return nil, apperrors.Conflict("advisor_does_not_exist", msgAdvisorMissing)
	}
	if advisor.Picture == "" {
		return nil, apperrors.FieldError("advisor", msgAdvisorNeedPicture)
	}
	return advisor, nil
}
