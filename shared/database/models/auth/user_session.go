package auth

import (
	"time"

	"portal-backend/shared/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSession - the single active login of a user. The session id is embedded
// in the signed token, so deleting the row revokes the token.
type UserSession struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	SessionID string    `json:"session_id" gorm:"size:255;uniqueIndex;not null"`
	UserAgent string    `json:"user_agent" gorm:"size:500"`
	IPAddress string    `json:"ip_address" gorm:"size:50"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`

	User models.User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (s *UserSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *UserSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
