package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttemptKind string

const (
	AttemptLogin         AttemptKind = "login"
	AttemptPasswordReset AttemptKind = "password_reset"
)

// AuthAttempt is an audit row for logins and password reset requests.
type AuthAttempt struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	Kind        AttemptKind `json:"kind" gorm:"size:32;index;not null"`
	Email       string      `json:"email" gorm:"size:255;index;not null"`
	IPAddress   string      `json:"ip_address" gorm:"size:50"`
	UserAgent   string      `json:"user_agent" gorm:"size:500"`
	Successful  bool        `json:"successful" gorm:"default:false"`
	FailureType string      `json:"failure_type" gorm:"size:100"` // wrong_password, user_not_found, already_active
	CreatedAt   time.Time   `json:"created_at" gorm:"not null"`
}

// BeforeCreate will set ID if not set
func (a *AuthAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
