package domain

import (
	"time"

	"github.com/google/uuid"
)

// DPPProgress is the per-user running counter row. Daily granularity lives in
// the attempt log; this row carries the streak and the points ledger.
type DPPProgress struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	UserID uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex" json:"user_id"`

	TotalAssigned  int `gorm:"column:total_assigned;not null;default:0" json:"total_assigned"`
	TotalCompleted int `gorm:"column:total_completed;not null;default:0" json:"total_completed"`
	TotalCorrect   int `gorm:"column:total_correct;not null;default:0" json:"total_correct"`
	TotalIncorrect int `gorm:"column:total_incorrect;not null;default:0" json:"total_incorrect"`
	TotalSkipped   int `gorm:"column:total_skipped;not null;default:0" json:"total_skipped"`
	TotalTimeSec   int `gorm:"column:total_time_sec;not null;default:0" json:"total_time_sec"`

	CurrentStreak  int        `gorm:"column:current_streak;not null;default:0" json:"current_streak"`
	MaxStreak      int        `gorm:"column:max_streak;not null;default:0" json:"max_streak"`
	LastActiveDate *time.Time `gorm:"column:last_active_date;type:date" json:"last_active_date,omitempty"`

	Points int `gorm:"column:points;not null;default:0" json:"points"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DPPProgress) TableName() string { return "dpp_progress" }

// Accuracy over everything the user has ever completed. 0 when nothing is
// completed yet, never NaN.
func (p *DPPProgress) Accuracy() float64 {
	if p == nil || p.TotalCompleted == 0 {
		return 0
	}
	return float64(p.TotalCorrect) / float64(p.TotalCompleted)
}
