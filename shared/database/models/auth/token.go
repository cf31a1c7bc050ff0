package auth

import (
	"time"

	"portal-backend/shared/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenPurpose selects which token table and window a single-use token belongs to.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// Token is the purpose-agnostic view of a row in either token table.
type Token struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid"`
	Token     string
	CreatedAt time.Time
}

// BeforeCreate sets the ID if not set. Both token tables are written through
// this type.
func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// VerifyEmailToken - one outstanding email verification token per user.
type VerifyEmailToken struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	Token     string    `json:"token" gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`

	User models.User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (VerifyEmailToken) TableName() string { return "verify_email_tokens" }

// ResetPasswordToken - one outstanding password reset token per user.
type ResetPasswordToken struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	Token     string    `json:"token" gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`

	User models.User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (ResetPasswordToken) TableName() string { return "reset_password_tokens" }

// TableFor returns the table backing a purpose.
func TableFor(purpose TokenPurpose) string {
	if purpose == PurposePasswordReset {
		return ResetPasswordToken{}.TableName()
	}
	return VerifyEmailToken{}.TableName()
}
