package insurance

import (
	"gorm.io/datatypes"
)

// Insurance is a product customers can submit a policy for.
type Insurance struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	InsuranceName     string         `json:"insurance_name" gorm:"size:200;not null"`
	InsuranceKey      string         `json:"insurance_key" gorm:"size:100;uniqueIndex;not null"`
	InsuranceSubtitle string         `json:"insurance_subtitle" gorm:"size:300"`
	InsuranceFields   datatypes.JSON `json:"insurance_fields"`
}

func (i Insurance) String() string {
	return i.InsuranceName
}
