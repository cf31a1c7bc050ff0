package submission

import (
	"time"

	"portal-backend/shared/database/models"
	"portal-backend/shared/database/models/insurance"

	"github.com/google/uuid"
)

// InsuranceSubmission is a customer's policy. Data holds the submitted form
// values, either canonical JSON or the legacy single-quoted form.
type InsuranceSubmission struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SubmitterID uuid.UUID `json:"submitter_id" gorm:"type:uuid;index;not null"`
	InsuranceID uint      `json:"insurance_id" gorm:"index;not null"`
	PolicyID    string    `json:"policy_id" gorm:"size:100"`
	Active      bool      `json:"active" gorm:"default:false"`
	Denied      bool      `json:"denied" gorm:"default:false"`
	Data        string    `json:"data" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Submitter models.User         `json:"-" gorm:"foreignKey:SubmitterID"`
	Insurance insurance.Insurance `json:"-" gorm:"foreignKey:InsuranceID"`
}
