package utils

import (
	"errors"
	"time"

	"portal-backend/shared/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims identify a user session. The token is only valid while the session
// row named by SessionID exists.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

// SessionSigner signs and verifies HS256 session tokens.
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionSigner(secret string, ttl time.Duration) *SessionSigner {
	if secret == "" {
		secret = "fallback-secret-key-for-development"
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &SessionSigner{secret: []byte(secret), ttl: ttl}
}

// NewSessionSignerFromConfig reads JWT_SECRET and JWT_EXPIRE_HOURS.
func NewSessionSignerFromConfig() *SessionSigner {
	cfg := config.GetConfig()
	return NewSessionSigner(cfg.JWTSecret, cfg.SessionTTL())
}

func (s *SessionSigner) TTL() time.Duration {
	return s.ttl
}

// Sign issues a token for the session, valid from issuedAt for the signer's TTL.
func (s *SessionSigner) Sign(userID uuid.UUID, sessionID string, issuedAt time.Time) (string, error) {
	claims := Claims{
		UserID:    userID.String(),
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates signature and expiry and returns the claims.
func (s *SessionSigner) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
