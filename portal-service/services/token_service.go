package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portal-backend/shared/apperrors"
	"portal-backend/shared/database/models/auth"
	"portal-backend/shared/database/store"
	"portal-backend/shared/logger"
	utils "portal-backend/shared/utils/auth"
	"portal-backend/shared/utils/permission"
)

const (
	// VerificationWindow is how long an email verification token blocks a new request.
	VerificationWindow = 7200 * time.Second
	// ResetCooldown is how long a password reset token blocks a new request.
	ResetCooldown = 900 * time.Second
	// TokenLifetime is the age after which any token is rejected.
	TokenLifetime = 7200 * time.Second
)

const msgTokenNotForUser = "This token is not for this user."

var alreadyActive = map[auth.TokenPurpose]func() *apperrors.AppError{
	auth.PurposeEmailVerification: func() *apperrors.AppError {
		return apperrors.AlreadyActive(apperrors.KeyVerificationAlreadyActive,
			"The verification process for this email is already initiated (less than 2h ago).")
	},
	auth.PurposePasswordReset: func() *apperrors.AppError {
		return apperrors.AlreadyActive(apperrors.KeyPasswordResetAlreadyActive,
			"The password reset process for this user is already initiated (less than 15 min ago).")
	},
}

// TokenService issues and consumes single-use tokens. A user holds at most one
// token per purpose.
type TokenService struct {
	store store.Store
	now   Clock
}

func NewTokenService(s store.Store, clock Clock) *TokenService {
	if clock == nil {
		clock = SystemClock
	}
	return &TokenService{store: s, now: clock}
}

// Window is the request cooldown of a purpose.
func Window(purpose auth.TokenPurpose) time.Duration {
	if purpose == auth.PurposePasswordReset {
		return ResetCooldown
	}
	return VerificationWindow
}

// Issue creates a fresh token for the user. A previous token younger than or
// exactly as old as the purpose window makes the request fail with
// AlreadyActive; an older one is replaced.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, purpose auth.TokenPurpose) (*auth.Token, error) {
	var issued *auth.Token
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.Users().LockByID(ctx, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperrors.NotFound("Not found.")
			}
			return err
		}

		tokens := tx.Tokens(purpose)
		now := s.now()

		existing, err := tokens.GetByUser(ctx, userID)
		switch {
		case err == nil:
			if now.Sub(existing.CreatedAt) <= Window(purpose) {
				return alreadyActive[purpose]()
			}
			if err := tokens.Delete(ctx, existing.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		value, err := utils.GenerateRandomToken(utils.TokenBytes)
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}

		token := &auth.Token{ID: uuid.New(), UserID: userID, Token: value, CreatedAt: now}
		if err := tokens.Create(ctx, token); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return alreadyActive[purpose]()
			}
			return err
		}
		issued = token
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("token issued",
		zap.String("purpose", string(purpose)),
		zap.String("user_id", userID.String()),
	)
	return issued, nil
}

// Consume looks the token up and checks its age. An expired token is deleted
// on the way out. The caller redeems a valid token with Redeem inside the
// transaction that applies its effect.
func (s *TokenService) Consume(ctx context.Context, value string, purpose auth.TokenPurpose) (*auth.Token, error) {
	token, err := s.lookup(ctx, value, purpose)
	if err != nil {
		return nil, err
	}
	if err := s.checkAge(ctx, token, purpose); err != nil {
		return nil, err
	}
	return token, nil
}

// ConsumeOwned is Consume for tokens bound to the viewer that received them.
// A foreign token is refused before its age is looked at, so it is never
// reaped on behalf of somebody else.
func (s *TokenService) ConsumeOwned(ctx context.Context, viewer permission.Viewer, value string, purpose auth.TokenPurpose) (*auth.Token, error) {
	token, err := s.lookup(ctx, value, purpose)
	if err != nil {
		return nil, err
	}
	if !viewer.Is(token.UserID) {
		return nil, apperrors.PermissionDenied(msgTokenNotForUser)
	}
	if err := s.checkAge(ctx, token, purpose); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *TokenService) lookup(ctx context.Context, value string, purpose auth.TokenPurpose) (*auth.Token, error) {
	token, err := s.store.Tokens(purpose).GetByValue(ctx, value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.TokenNotFound()
		}
		return nil, err
	}
	return token, nil
}

func (s *TokenService) checkAge(ctx context.Context, token *auth.Token, purpose auth.TokenPurpose) error {
	if s.now().Sub(token.CreatedAt) <= TokenLifetime {
		return nil
	}
	if err := s.store.Tokens(purpose).Delete(ctx, token.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	logger.WithContext(ctx).Info("expired token reaped", zap.String("purpose", string(purpose)))
	return apperrors.TokenExpired()
}

// Redeem deletes a consumed token inside tx. Losing a race against another
// consumer yields TokenNotFound.
func Redeem(ctx context.Context, tx store.Store, token *auth.Token, purpose auth.TokenPurpose) error {
	if err := tx.Tokens(purpose).Delete(ctx, token.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.TokenNotFound()
		}
		return err
	}
	return nil
}
