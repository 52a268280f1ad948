package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SetCounts is the per-set aggregate used by the history view.
type SetCounts struct {
	DPPID     uuid.UUID `gorm:"column:dpp_id"`
	Total     int       `gorm:"column:total"`
	Completed int       `gorm:"column:completed"`
	Correct   int       `gorm:"column:correct"`
	Skipped   int       `gorm:"column:skipped"`
}

type DPPAssignmentRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, assignments []*types.DPPAssignment) ([]*types.DPPAssignment, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DPPAssignment, error)
	ListBySet(ctx context.Context, tx *gorm.DB, dppID uuid.UUID, includeTerminal bool) ([]*types.DPPAssignment, error)
	CountPendingInSet(ctx context.Context, tx *gorm.DB, dppID uuid.UUID) (int64, error)
	CountInSet(ctx context.Context, tx *gorm.DB, dppID uuid.UUID) (int64, error)
	DistinctQuestionIDsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error)
	CompleteIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID, answer string, isCorrect bool, at time.Time, timeSpentSec int, metadata datatypes.JSON) (bool, error)
	SkipIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time, metadata datatypes.JSON) (bool, error)
	CountsBySetIDs(ctx context.Context, tx *gorm.DB, dppIDs []uuid.UUID) ([]SetCounts, error)
}

type dppAssignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDPPAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) DPPAssignmentRepo {
	repoLog := baseLog.With("repo", "DPPAssignmentRepo")
	return &dppAssignmentRepo{db: db, log: repoLog}
}

func (r *dppAssignmentRepo) CreateBatch(ctx context.Context, tx *gorm.DB, assignments []*types.DPPAssignment) ([]*types.DPPAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(assignments) == 0 {
		return []*types.DPPAssignment{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *dppAssignmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DPPAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var a types.DPPAssignment
	if err := transaction.WithContext(ctx).
		Preload("Question").
		Where("id = ?", id).
		First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *dppAssignmentRepo) ListBySet(ctx context.Context, tx *gorm.DB, dppID uuid.UUID, includeTerminal bool) ([]*types.DPPAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		Preload("Question").
		Where("dpp_id = ?", dppID)
	if !includeTerminal {
		q = q.Where("status = ?", types.AssignmentStatusPending)
	}

	var results []*types.DPPAssignment
	if err := q.Order("sequence ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *dppAssignmentRepo) CountPendingInSet(ctx context.Context, tx *gorm.DB, dppID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.DPPAssignment{}).
		Where("dpp_id = ? AND status = ?", dppID, types.AssignmentStatusPending).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *dppAssignmentRepo) CountInSet(ctx context.Context, tx *gorm.DB, dppID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.DPPAssignment{}).
		Where("dpp_id = ?", dppID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *dppAssignmentRepo) DistinctQuestionIDsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.DPPAssignment{}).
		Where("user_id = ?", userID).
		Distinct("question_id").
		Pluck("question_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CompleteIfPending performs the terminal PENDING -> COMPLETED transition.
// The status guard in the WHERE clause is what makes two racing submissions
// resolve to exactly one winner; the loser sees zero rows affected.
func (r *dppAssignmentRepo) CompleteIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID, answer string, isCorrect bool, at time.Time, timeSpentSec int, metadata datatypes.JSON) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	updates := map[string]interface{}{
		"status":         types.AssignmentStatusCompleted,
		"user_answer":    answer,
		"is_correct":     isCorrect,
		"submitted_at":   at,
		"time_spent_sec": timeSpentSec,
	}
	if metadata != nil {
		updates["metadata"] = metadata
	}

	res := transaction.WithContext(ctx).
		Model(&types.DPPAssignment{}).
		Where("id = ? AND status = ?", id, types.AssignmentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SkipIfPending performs the terminal PENDING -> SKIPPED transition with the
// same status-guarded semantics as CompleteIfPending.
func (r *dppAssignmentRepo) SkipIfPending(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time, metadata datatypes.JSON) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	updates := map[string]interface{}{
		"status":     types.AssignmentStatusSkipped,
		"skipped_at": at,
	}
	if metadata != nil {
		updates["metadata"] = metadata
	}

	res := transaction.WithContext(ctx).
		Model(&types.DPPAssignment{}).
		Where("id = ? AND status = ?", id, types.AssignmentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *dppAssignmentRepo) CountsBySetIDs(ctx context.Context, tx *gorm.DB, dppIDs []uuid.UUID) ([]SetCounts, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []SetCounts
	if len(dppIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.DPPAssignment{}).
		Select(`dpp_id,
			COUNT(*) AS total,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed,
			SUM(CASE WHEN is_correct THEN 1 ELSE 0 END) AS correct,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS skipped`,
			types.AssignmentStatusCompleted, types.AssignmentStatusSkipped).
		Where("dpp_id IN ?", dppIDs).
		Group("dpp_id").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
