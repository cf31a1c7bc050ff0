package submission

import (
	"time"

	"portal-backend/shared/database/models"

	"github.com/google/uuid"
)

// IDSubmission is an uploaded identification document. At most one row per
// submitter has Latest set.
type IDSubmission struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SubmitterID uuid.UUID `json:"submitter_id" gorm:"type:uuid;index;not null"`
	Document    string    `json:"document" gorm:"size:500;not null"`
	Latest      bool      `json:"latest" gorm:"not null;index"`
	Verified    bool      `json:"verified" gorm:"default:false"`
	Denied      bool      `json:"denied" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Submitter models.User `json:"-" gorm:"foreignKey:SubmitterID"`
}
