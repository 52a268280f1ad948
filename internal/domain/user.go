package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is owned by the identity/profile service. The DPP core reads class
// level and subject preferences and only ever writes Subjects (best-effort
// back-fill when defaults are derived).
type User struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Email     string `gorm:"column:email;uniqueIndex;not null" json:"email"`
	FirstName string `gorm:"column:first_name" json:"first_name,omitempty"`
	LastName  string `gorm:"column:last_name" json:"last_name,omitempty"`

	ClassLevel string                         `gorm:"column:class_level;index" json:"class_level"`
	Subjects   datatypes.JSONSlice[uuid.UUID] `gorm:"column:subjects;type:jsonb" json:"subjects,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "app_user" }
