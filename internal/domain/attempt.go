package domain

import (
	"time"

	"github.com/google/uuid"
)

// DPPAttempt is the append-only analytics log, one row per submitted answer.
// Subject/topic/difficulty are denormalized at record time so the rollup
// queries never need the question table.
type DPPAttempt struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	UserID     uuid.UUID `gorm:"type:uuid;column:user_id;not null;index:idx_dpp_attempt_user_time,priority:1" json:"user_id"`
	QuestionID uuid.UUID `gorm:"type:uuid;column:question_id;not null;index" json:"question_id"`
	SubjectID  uuid.UUID `gorm:"type:uuid;column:subject_id;not null;index" json:"subject_id"`
	TopicID    uuid.UUID `gorm:"type:uuid;column:topic_id;not null;index" json:"topic_id"`

	Difficulty   string    `gorm:"column:difficulty;not null" json:"difficulty"`
	IsCorrect    bool      `gorm:"column:is_correct;not null" json:"is_correct"`
	TimeSpentSec int       `gorm:"column:time_spent_sec;not null;default:0" json:"time_spent_sec"`
	SubmittedAt  time.Time `gorm:"column:submitted_at;not null;index:idx_dpp_attempt_user_time,priority:2" json:"submitted_at"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (DPPAttempt) TableName() string { return "dpp_attempt" }
