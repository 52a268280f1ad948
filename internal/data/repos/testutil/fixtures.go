package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email, classLevel string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:         uuid.New(),
		Email:      email,
		FirstName:  "A",
		LastName:   "B",
		ClassLevel: classLevel,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedSubject(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Subject {
	tb.Helper()
	s := &types.Subject{
		ID:   uuid.New(),
		Name: name,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed subject: %v", err)
	}
	return s
}

func SeedTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, subjectID uuid.UUID, name string) *types.Topic {
	tb.Helper()
	t := &types.Topic{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Name:      name,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return t
}

func SeedQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, subjectID, topicID uuid.UUID, difficulty, qType, answer string) *types.Question {
	tb.Helper()
	q := &types.Question{
		ID:            uuid.New(),
		SubjectID:     subjectID,
		TopicID:       topicID,
		Difficulty:    difficulty,
		Type:          qType,
		Active:        true,
		Text:          "question text",
		CorrectAnswer: answer,
		Explanation:   "explanation text",
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}

func SeedSet(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, day time.Time, total int) *types.DPPSet {
	tb.Helper()
	s := &types.DPPSet{
		ID:             uuid.New(),
		UserID:         userID,
		Date:           day,
		TotalQuestions: total,
		Status:         types.DPPStatusPending,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed set: %v", err)
	}
	return s
}

func SeedAssignment(tb testing.TB, ctx context.Context, tx *gorm.DB, set *types.DPPSet, questionID uuid.UUID, sequence int) *types.DPPAssignment {
	tb.Helper()
	a := &types.DPPAssignment{
		ID:         uuid.New(),
		DPPID:      set.ID,
		QuestionID: questionID,
		UserID:     set.UserID,
		Sequence:   sequence,
		Status:     types.AssignmentStatusPending,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return a
}

func SeedAttempt(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, q *types.Question, correct bool, at time.Time) *types.DPPAttempt {
	tb.Helper()
	a := &types.DPPAttempt{
		ID:           uuid.New(),
		UserID:       userID,
		QuestionID:   q.ID,
		SubjectID:    q.SubjectID,
		TopicID:      q.TopicID,
		Difficulty:   q.Difficulty,
		IsCorrect:    correct,
		TimeSpentSec: 30,
		SubmittedAt:  at,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed attempt: %v", err)
	}
	return a
}
