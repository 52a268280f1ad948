package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	QuestionTypeMCQ       = "MCQ"
	QuestionTypeNumerical = "NUMERICAL"

	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

type Subject struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Name string `gorm:"column:name;not null;uniqueIndex" json:"name"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Subject) TableName() string { return "subject" }

type Topic struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	SubjectID uuid.UUID `gorm:"type:uuid;column:subject_id;not null;index" json:"subject_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Topic) TableName() string { return "topic" }

// Question is read-only reference data from the core's perspective; the bank
// is curated elsewhere.
type Question struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	SubjectID uuid.UUID `gorm:"type:uuid;column:subject_id;not null;index" json:"subject_id"`
	TopicID   uuid.UUID `gorm:"type:uuid;column:topic_id;not null;index" json:"topic_id"`

	Difficulty string `gorm:"column:difficulty;not null;index" json:"difficulty"`
	Type       string `gorm:"column:type;not null;index" json:"type"`
	Active     bool   `gorm:"column:active;not null;default:true;index" json:"active"`

	Text          string         `gorm:"column:text;type:text;not null" json:"text"`
	Options       datatypes.JSON `gorm:"column:options;type:jsonb" json:"options,omitempty"`
	CorrectAnswer string         `gorm:"column:correct_answer;not null" json:"-"`
	Explanation   string         `gorm:"column:explanation;type:text" json:"-"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Question) TableName() string { return "question" }

// Sanitized returns a copy safe to hand to clients before they answer.
func (q Question) Sanitized() Question {
	q.CorrectAnswer = ""
	q.Explanation = ""
	return q
}
