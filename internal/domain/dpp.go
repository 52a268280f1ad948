package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DPPStatusPending   = "PENDING"
	DPPStatusCompleted = "COMPLETED"

	AssignmentStatusPending   = "PENDING"
	AssignmentStatusCompleted = "COMPLETED"
	AssignmentStatusSkipped   = "SKIPPED"

	SkipReasonUserSkipped = "USER_SKIPPED"
)

// DPPConfig holds the per-user generation preferences. Exactly one row per
// user; created lazily with class-derived defaults on first access.
type DPPConfig struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	UserID uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex" json:"user_id"`

	Subjects      datatypes.JSONSlice[uuid.UUID] `gorm:"column:subjects;type:jsonb" json:"subjects"`
	Difficulty    datatypes.JSONSlice[string]    `gorm:"column:difficulty;type:jsonb" json:"difficulty"`
	QuestionTypes datatypes.JSONSlice[string]    `gorm:"column:question_types;type:jsonb" json:"question_types"`
	Topics        datatypes.JSONSlice[uuid.UUID] `gorm:"column:topics;type:jsonb" json:"topics,omitempty"`

	DailyLimit           int    `gorm:"column:daily_limit;not null;default:5" json:"daily_limit"`
	TimeOfDay            string `gorm:"column:time_of_day" json:"time_of_day,omitempty"`
	NotificationsEnabled bool   `gorm:"column:notifications_enabled;not null;default:true" json:"notifications_enabled"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DPPConfig) TableName() string { return "dpp_config" }

// DPPSet is one user's problem set for one calendar day. The unique index on
// (user_id, dpp_date) is what makes concurrent first-access idempotent.
type DPPSet struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	UserID uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_dpp_set_user_day,priority:1" json:"user_id"`
	Date   time.Time `gorm:"column:dpp_date;type:date;not null;uniqueIndex:idx_dpp_set_user_day,priority:2" json:"date"`

	TotalQuestions int        `gorm:"column:total_questions;not null;default:0" json:"total_questions"`
	Status         string     `gorm:"column:status;not null;default:'PENDING';index" json:"status"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DPPSet) TableName() string { return "dpp_set" }

// DPPAssignment pairs a set with a question. PENDING until the user answers
// or skips; both transitions are terminal.
type DPPAssignment struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	DPPID      uuid.UUID `gorm:"type:uuid;column:dpp_id;not null;index" json:"dpp_id"`
	QuestionID uuid.UUID `gorm:"type:uuid;column:question_id;not null;index" json:"question_id"`
	UserID     uuid.UUID `gorm:"type:uuid;column:user_id;not null;index" json:"user_id"`

	Sequence int    `gorm:"column:sequence;not null" json:"sequence"`
	Status   string `gorm:"column:status;not null;default:'PENDING';index" json:"status"`

	UserAnswer   *string        `gorm:"column:user_answer" json:"user_answer,omitempty"`
	IsCorrect    *bool          `gorm:"column:is_correct" json:"is_correct,omitempty"`
	SubmittedAt  *time.Time     `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	SkippedAt    *time.Time     `gorm:"column:skipped_at" json:"skipped_at,omitempty"`
	TimeSpentSec int            `gorm:"column:time_spent_sec;not null;default:0" json:"time_spent_sec"`
	Metadata     datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	Question *Question `gorm:"foreignKey:QuestionID;references:ID" json:"question,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DPPAssignment) TableName() string { return "dpp_assignment" }

// Terminal reports whether the assignment can no longer be answered or skipped.
func (a *DPPAssignment) Terminal() bool {
	return a.Status == AssignmentStatusCompleted || a.Status == AssignmentStatusSkipped
}
