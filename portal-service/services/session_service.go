package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portal-backend/shared/apperrors"
	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/auth"
	"portal-backend/shared/database/store"
	"portal-backend/shared/logger"
	utils "portal-backend/shared/utils/auth"
)

const msgInvalidToken = "Invalid token."

// SessionService manages the single session of a user and the signed token
// that names it.
type SessionService struct {
	store  store.Store
	signer *utils.SessionSigner
	cache  SessionCache
	now    Clock
}

func NewSessionService(s store.Store, signer *utils.SessionSigner, cache SessionCache, clock Clock) *SessionService {
	if clock == nil {
		clock = SystemClock
	}
	return &SessionService{store: s, signer: signer, cache: cache, now: clock}
}

// Refresh replaces any session of the user with a new one inside tx and
// returns the signed token plus the session ids that were dropped.
func (s *SessionService) Refresh(ctx context.Context, tx store.Store, userID uuid.UUID, client ClientInfo) (string, []string, error) {
	replaced, err := tx.Sessions().DeleteByUser(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	sid, err := utils.GenerateSessionID()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := s.now()
	session := &auth.UserSession{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sid,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		ExpiresAt: now.Add(s.signer.TTL()),
		CreatedAt: now,
	}
	if err := tx.Sessions().Create(ctx, session); err != nil {
		return "", nil, err
	}

	token, err := s.signer.Sign(userID, sid, now)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, replaced, nil
}

// Remove deletes the user's session inside tx and returns the dropped ids.
func (s *SessionService) Remove(ctx context.Context, tx store.Store, userID uuid.UUID) ([]string, error) {
	return tx.Sessions().DeleteByUser(ctx, userID)
}

// Forget drops cache entries of sessions deleted by a committed transaction.
func (s *SessionService) Forget(ctx context.Context, sessionIDs []string) {
	if s.cache == nil || len(sessionIDs) == 0 {
		return
	}
	if err := s.cache.InvalidateSessions(ctx, sessionIDs...); err != nil {
		logger.WithContext(ctx).Warn("session cache invalidation failed", zap.Error(err))
	}
}

// Resolve maps a session token to its user. The session must still exist.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, apperrors.Unauthorized(msgInvalidToken)
	}
	claimedID, _ := uuid.Parse(claims.UserID)

	userID, cached := uuid.Nil, false
	if s.cache != nil {
		userID, cached = s.cache.GetSession(ctx, claims.SessionID)
	}

	if !cached {
		session, err := s.store.Sessions().GetBySessionID(ctx, claims.SessionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperrors.Unauthorized(msgInvalidToken)
			}
			return nil, err
		}
		if session.Expired(s.now()) {
			return nil, apperrors.Unauthorized(msgInvalidToken)
		}
		userID = session.UserID

		if s.cache != nil {
			if err := s.fill(ctx, session); err != nil {
				return nil, err
			}
		}
	}

	if userID != claimedID {
		return nil, apperrors.Unauthorized(msgInvalidToken)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgInvalidToken)
		}
		return nil, err
	}
	return user, nil
}

// fill caches a session read from the store. A revocation that committed
// between the read and the cache write has already run its Forget, so the
// row is read again and the entry evicted when it is gone.
func (s *SessionService) fill(ctx context.Context, session *auth.UserSession) error {
	log := logger.WithContext(ctx)
	ttl := session.ExpiresAt.Sub(s.now())
	if err := s.cache.SetSession(ctx, session.SessionID, session.UserID, ttl); err != nil {
		log.Warn("session cache write failed", zap.Error(err))
		return nil
	}

	_, err := s.store.Sessions().GetBySessionID(ctx, session.SessionID)
	if err == nil {
		return nil
	}
	if evictErr := s.cache.InvalidateSessions(ctx, session.SessionID); evictErr != nil {
		log.Warn("session cache eviction failed", zap.Error(evictErr))
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.Unauthorized(msgInvalidToken)
	}
	return err
}
