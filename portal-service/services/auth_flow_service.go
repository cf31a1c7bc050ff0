package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portal-backend/shared/apperrors"
	"portal-backend/shared/clients"
	"portal-backend/shared/database/models/auth"
	"portal-backend/shared/database/store"
	"portal-backend/shared/logger"
	utils "portal-backend/shared/utils/auth"
	"portal-backend/shared/utils/payload"
	"portal-backend/shared/utils/permission"
)

const (
	msgUserVerified    = "The user is now verified."
	msgMailSent        = "E-Mail was sent to the user."
	msgPasswordChanged = "The user's new password is now active."
	msgNoUserForEmail  = "No user found with given email."
)

// AuthFlowService runs the email verification and password reset flows.
type AuthFlowService struct {
	store    store.Store
	tokens   *TokenService
	sessions *SessionService
	mailer   tokenMailer
	now      Clock
}

func NewAuthFlowService(s store.Store, tokens *TokenService, sessions *SessionService, notifier Notifier, frontendURL string, clock Clock) *AuthFlowService {
	if clock == nil {
		clock = SystemClock
	}
	return &AuthFlowService{
		store:    s,
		tokens:   tokens,
		sessions: sessions,
		mailer:   tokenMailer{notifier: notifier, frontendURL: frontendURL},
		now:      clock,
	}
}

func success(msg string) map[string]any {
	return map[string]any{"success": msg}
}

// RequestEmailVerification mails a verification link to the viewer. A failed
// delivery is reported but the issued token stays.
func (s *AuthFlowService) RequestEmailVerification(ctx context.Context, viewer permission.Viewer) (map[string]any, error) {
	if err := permission.Authorize(viewer, permission.ActionRequestEmailVerification, uuid.Nil); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(ctx, viewer.User.ID, auth.PurposeEmailVerification)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.send(ctx, clients.TemplateVerifyEmail, viewer.User, token.Token); err != nil {
		logger.WithContext(ctx).Error("verification mail failed",
			zap.String("email", logger.MaskEmail(viewer.User.Email)),
			zap.Error(err),
		)
		return nil, apperrors.DeliveryFailed(err)
	}
	return success(msgMailSent), nil
}

// VerifyEmail marks the viewer verified with a token mailed to them.
func (s *AuthFlowService) VerifyEmail(ctx context.Context, viewer permission.Viewer, value string) (map[string]any, error) {
	if err := permission.Authorize(viewer, permission.ActionVerifyEmail, uuid.Nil); err != nil {
		return nil, err
	}

	token, err := s.tokens.ConsumeOwned(ctx, viewer, value, auth.PurposeEmailVerification)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := Redeem(ctx, tx, token, auth.PurposeEmailVerification); err != nil {
			return err
		}
		user, err := tx.Users().LockByID(ctx, token.UserID)
		if err != nil {
			return err
		}
		user.Verified = true
		user.UpdatedAt = s.now()
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("email verified", zap.String("user_id", token.UserID.String()))
	return success(msgUserVerified), nil
}

// RequestPasswordReset mails a reset link to the owner of the given email.
func (s *AuthFlowService) RequestPasswordReset(ctx context.Context, viewer permission.Viewer, p *payload.EmailPayload, client ClientInfo) (map[string]any, error) {
	if err := permission.Authorize(viewer, permission.ActionRequestPasswordReset, uuid.Nil); err != nil {
		return nil, err
	}

	email, ok := payload.Email(p.Email)
	if !ok {
		return nil, apperrors.FieldError("email", apperrors.MsgRequired)
	}

	attempt := &auth.AuthAttempt{
		ID:        uuid.New(),
		Kind:      auth.AttemptPasswordReset,
		Email:     email,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		CreatedAt: s.now(),
	}
	defer func() {
		if err := s.store.Attempts().Record(ctx, attempt); err != nil {
			logger.WithContext(ctx).Warn("failed to record auth attempt", zap.Error(err))
		}
	}()

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			attempt.FailureType = "user_not_found"
			return nil, apperrors.BadRequest(apperrors.KeyUserDoesNotExist, msgNoUserForEmail)
		}
		return nil, err
	}

	token, err := s.tokens.Issue(ctx, user.ID, auth.PurposePasswordReset)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeAlreadyActive) {
			attempt.FailureType = "already_active"
		}
		return nil, err
	}

	if err := s.mailer.send(ctx, clients.TemplateResetPassword, user, token.Token); err != nil {
		attempt.FailureType = "delivery_failed"
		logger.WithContext(ctx).Error("password reset mail failed",
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
		return nil, apperrors.DeliveryFailed(err)
	}

	attempt.Successful = true
	return success(msgMailSent), nil
}

// ResetPassword sets a new password with a reset token. The user's session
// is revoked in the same transaction.
func (s *AuthFlowService) ResetPassword(ctx context.Context, viewer permission.Viewer, value string, p *payload.PasswordPayload) (map[string]any, error) {
	if err := permission.Authorize(viewer, permission.ActionResetPassword, uuid.Nil); err != nil {
		return nil, err
	}

	password, ok := payload.Text(p.Password)
	if !ok {
		return nil, apperrors.FieldError("password", apperrors.MsgRequired)
	}

	token, err := s.tokens.Consume(ctx, value, auth.PurposePasswordReset)
	if err != nil {
		return nil, err
	}

	if problems := utils.PasswordProblems(password); len(problems) > 0 {
		return nil, apperrors.Validation(map[string][]string{"password": problems})
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var dropped []string
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := Redeem(ctx, tx, token, auth.PurposePasswordReset); err != nil {
			return err
		}
		user, err := tx.Users().LockByID(ctx, token.UserID)
		if err != nil {
			return err
		}
		user.Password = hashed
		user.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		dropped, err = s.sessions.Remove(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.sessions.Forget(ctx, dropped)

	logger.WithContext(ctx).Info("password reset", zap.String("user_id", token.UserID.String()))
	return success(msgPasswordChanged), nil
}
