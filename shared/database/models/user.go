package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserType is the numeric role stored on every user.
type UserType int

const (
	UserTypeCustomer UserType = 1
	UserTypeStaff    UserType = 7
)

type User struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Email     string     `json:"email" gorm:"size:254;uniqueIndex;not null"`
	Password  string     `json:"-" gorm:"not null"`
	FirstName string     `json:"first_name" gorm:"size:100"`
	LastName  string     `json:"last_name" gorm:"size:100"`
	Phone     string     `json:"phone" gorm:"size:20"`
	Address1  string     `json:"address1" gorm:"column:address_1;size:255"`
	Address2  string     `json:"address2" gorm:"column:address_2;size:255"`
	Zipcode   string     `json:"zipcode" gorm:"size:10"`
	Picture   string     `json:"-" gorm:"size:500"`
	Utype     UserType   `json:"utype" gorm:"not null;default:1;index"`
	Verified  bool       `json:"verified" gorm:"default:false"`
	AdvisorID *uuid.UUID `json:"-" gorm:"type:uuid;index"`
	LastLogin *time.Time `json:"-"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`

	// Relations
	Advisor *User `json:"-" gorm:"foreignKey:AdvisorID"`
}

// BeforeCreate sets the ID if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsStaff() bool {
	return u != nil && u.Utype == UserTypeStaff
}

func (u *User) String() string {
	return u.Email
}
