package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/prepsutra/dpp-backend/internal/data/repos"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/dpperr"
	"github.com/prepsutra/dpp-backend/internal/gamify"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
)

// SubmitRequest is an answer to one assignment.
type SubmitRequest struct {
	Answer       string `json:"answer"`
	TimeSpentSec int    `json:"time_spent_sec"`
}

// SubmitResult reveals correctness and the grading outcome. The correct
// answer and explanation are populated only when the submission was wrong.
type SubmitResult struct {
	AssignmentID  uuid.UUID `json:"assignment_id"`
	Correct       bool      `json:"correct"`
	CorrectAnswer string    `json:"correct_answer,omitempty"`
	Explanation   string    `json:"explanation,omitempty"`
	PointsEarned  int       `json:"points_earned"`
	CurrentStreak int       `json:"current_streak"`
	SetCompleted  bool      `json:"set_completed"`
}

// SkipResult mirrors SubmitResult for the skip path. No reveal: a skipped
// question may be repeated later.
type SkipResult struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	SetCompleted bool      `json:"set_completed"`
}

type SubmissionService interface {
	Submit(ctx context.Context, userID, assignmentID uuid.UUID, req SubmitRequest) (*SubmitResult, error)
	Skip(ctx context.Context, userID, assignmentID uuid.UUID) (*SkipResult, error)
}

type submissionService struct {
	db       *gorm.DB
	sets     repos.DPPSetRepo
	assigns  repos.DPPAssignmentRepo
	progress repos.DPPProgressRepo
	attempts repos.DPPAttemptRepo

	notifier Notifier
	log      *logger.Logger

	loc *time.Location
	now func() time.Time
}

func NewSubmissionService(db *gorm.DB, r repos.Repos, notifier Notifier, baseLog *logger.Logger) SubmissionService {
	log := baseLog.With("service", "SubmissionService")
	return &submissionService{
		db:       db,
		sets:     r.Set,
		assigns:  r.Assignment,
		progress: r.Progress,
		attempts: r.Attempt,
		notifier: notifier,
		log:      log,
		loc:      loadDPPTimezone(log),
		now:      time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, userID, assignmentID uuid.UUID, req SubmitRequest) (*SubmitResult, error) {
	a, err := s.guardedAssignment(ctx, userID, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Question == nil {
		return nil, dpperr.Wrap(fmt.Errorf("assignment %s has no question", assignmentID), "load question")
	}

	isCorrect := answersMatch(req.Answer, a.Question.CorrectAnswer)
	points := gamify.PointsFor(types.AssignmentStatusCompleted, isCorrect)
	at := s.now()
	timeSpent := req.TimeSpentSec
	if timeSpent < 0 {
		timeSpent = 0
	}

	var (
		streak       int
		setCompleted bool
	)
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		ok, err := s.assigns.CompleteIfPending(ctx, tx, a.ID, req.Answer, isCorrect, at, timeSpent, nil)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race to another submission or skip.
			return dpperr.AlreadyAnswered(fmt.Errorf("assignment %s is already terminal", a.ID))
		}

		p, err := s.lockedProgress(ctx, tx, userID)
		if err != nil {
			return err
		}
		p.TotalCompleted++
		if isCorrect {
			p.TotalCorrect++
		} else {
			p.TotalIncorrect++
		}
		p.TotalTimeSec += timeSpent
		p.Points += points
		s.applyStreak(p, at)
		streak = p.CurrentStreak
		if _, err := s.progress.Save(ctx, tx, p); err != nil {
			return err
		}

		if _, err := s.attempts.Create(ctx, tx, &types.DPPAttempt{
			UserID:       userID,
			QuestionID:   a.QuestionID,
			SubjectID:    a.Question.SubjectID,
			TopicID:      a.Question.TopicID,
			Difficulty:   a.Question.Difficulty,
			IsCorrect:    isCorrect,
			TimeSpentSec: timeSpent,
			SubmittedAt:  at,
		}); err != nil {
			return err
		}

		setCompleted, err = s.maybeCompleteSet(ctx, tx, a.DPPID, at)
		return err
	})
	if txErr != nil {
		var derr *dpperr.Error
		if ok := asDPPError(txErr, &derr); ok {
			return nil, derr
		}
		return nil, dpperr.Wrap(txErr, "record submission")
	}

	if setCompleted {
		s.notifier.DPPSetCompleted(userID, &types.DPPSet{ID: a.DPPID, UserID: userID})
	}
	s.log.Info("assignment submitted", "user_id", userID.String(), "assignment_id", a.ID.String(), "correct", isCorrect)

	result := &SubmitResult{
		AssignmentID:  a.ID,
		Correct:       isCorrect,
		PointsEarned:  points,
		CurrentStreak: streak,
		SetCompleted:  setCompleted,
	}
	if !isCorrect {
		// Reveal the answer only on a miss.
		result.CorrectAnswer = a.Question.CorrectAnswer
		result.Explanation = a.Question.Explanation
	}
	return result, nil
}

func (s *submissionService) Skip(ctx context.Context, userID, assignmentID uuid.UUID) (*SkipResult, error) {
	a, err := s.guardedAssignment(ctx, userID, assignmentID)
	if err != nil {
		return nil, err
	}

	at := s.now()
	metadata, err := mergeMetadata(a.Metadata, map[string]any{"skip_reason": types.SkipReasonUserSkipped})
	if err != nil {
		return nil, dpperr.Wrap(err, "merge skip metadata")
	}

	var setCompleted bool
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		ok, err := s.assigns.SkipIfPending(ctx, tx, a.ID, at, metadata)
		if err != nil {
			return err
		}
		if !ok {
			return dpperr.AlreadyAnswered(fmt.Errorf("assignment %s is already terminal", a.ID))
		}

		p, err := s.lockedProgress(ctx, tx, userID)
		if err != nil {
			return err
		}
		p.TotalSkipped++
		if _, err := s.progress.Save(ctx, tx, p); err != nil {
			return err
		}

		setCompleted, err = s.maybeCompleteSet(ctx, tx, a.DPPID, at)
		return err
	})
	if txErr != nil {
		var derr *dpperr.Error
		if ok := asDPPError(txErr, &derr); ok {
			return nil, derr
		}
		return nil, dpperr.Wrap(txErr, "record skip")
	}

	if setCompleted {
		s.notifier.DPPSetCompleted(userID, &types.DPPSet{ID: a.DPPID, UserID: userID})
	}
	s.log.Info("assignment skipped", "user_id", userID.String(), "assignment_id", a.ID.String())

	return &SkipResult{AssignmentID: a.ID, SetCompleted: setCompleted}, nil
}

// guardedAssignment loads the assignment and applies the ownership and
// terminal-state guards shared by submit and skip.
func (s *submissionService) guardedAssignment(ctx context.Context, userID, assignmentID uuid.UUID) (*types.DPPAssignment, error) {
	a, err := s.assigns.GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, dpperr.Wrap(err, "load assignment")
	}
	if a == nil {
		return nil, dpperr.AssignmentNotFound(fmt.Errorf("assignment %s not found", assignmentID))
	}
	if a.UserID != userID {
		return nil, dpperr.Unauthorized(fmt.Errorf("assignment %s does not belong to the caller", assignmentID))
	}
	if a.Terminal() {
		return nil, dpperr.AlreadyAnswered(fmt.Errorf("assignment %s is already %s", assignmentID, a.Status))
	}
	return a, nil
}

func (s *submissionService) lockedProgress(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.DPPProgress, error) {
	p, err := s.progress.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return s.progress.Create(ctx, tx, &types.DPPProgress{UserID: userID})
	}
	return p, nil
}

// applyStreak advances the daily streak. Consecutive local calendar days grow
// it, a gap resets it to 1, repeat activity on the same day leaves it alone.
func (s *submissionService) applyStreak(p *types.DPPProgress, at time.Time) {
	local := at.In(s.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case p.LastActiveDate == nil:
		p.CurrentStreak = 1
	case sameDay(*p.LastActiveDate, today):
		// Already counted today.
	case sameDay(p.LastActiveDate.AddDate(0, 0, 1), today):
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}
	if p.CurrentStreak > p.MaxStreak {
		p.MaxStreak = p.CurrentStreak
	}
	p.LastActiveDate = &today
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// maybeCompleteSet flips the set to COMPLETED once the last pending assignment
// goes terminal. Must run inside the terminal transition's transaction.
func (s *submissionService) maybeCompleteSet(ctx context.Context, tx *gorm.DB, dppID uuid.UUID, at time.Time) (bool, error) {
	pending, err := s.assigns.CountPendingInSet(ctx, tx, dppID)
	if err != nil {
		return false, err
	}
	if pending > 0 {
		return false, nil
	}
	return s.sets.MarkCompleted(ctx, tx, dppID, at)
}

// answersMatch grades by normalized exact match. Whitespace and letter case
// never decide correctness.
func answersMatch(given, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(correct))
}

func mergeMetadata(existing datatypes.JSON, extra map[string]any) (datatypes.JSON, error) {
	merged := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return nil, err
		}
	}
	for k, v := range extra {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

func asDPPError(err error, target **dpperr.Error) bool {
	return errors.As(err, target)
}
