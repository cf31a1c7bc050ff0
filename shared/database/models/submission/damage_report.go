package submission

import (
	"time"

	"portal-backend/shared/database/models"

	"github.com/google/uuid"
)

type DamageStatus string

const (
	DamageStatusWaiting  DamageStatus = "w"
	DamageStatusAccepted DamageStatus = "a"
	DamageStatusDeclined DamageStatus = "d"
)

// DamageReport is filed against one of the submitter's policies.
type DamageReport struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	SubmitterID uuid.UUID    `json:"submitter_id" gorm:"type:uuid;index;not null"`
	PolicyID    uint         `json:"policy_id" gorm:"index;not null"`
	Status      DamageStatus `json:"status" gorm:"size:1;default:w"`
	Denied      bool         `json:"denied" gorm:"default:false"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	Submitter models.User         `json:"-" gorm:"foreignKey:SubmitterID"`
	Policy    InsuranceSubmission `json:"-" gorm:"foreignKey:PolicyID"`
}
