package repos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type DPPSetRepo interface {
	GetByUserAndDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, day time.Time) (*types.DPPSet, error)
	Create(ctx context.Context, tx *gorm.DB, set *types.DPPSet) (*types.DPPSet, error)
	UpdateTotal(ctx context.Context, tx *gorm.DB, id uuid.UUID, total int) error
	MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.DPPSet, error)
}

type dppSetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDPPSetRepo(db *gorm.DB, baseLog *logger.Logger) DPPSetRepo {
	repoLog := baseLog.With("repo", "DPPSetRepo")
	return &dppSetRepo{db: db, log: repoLog}
}

// IsUniqueViolation reports whether the error came from the (user_id, dpp_date)
// unique index. Callers treat it as "someone else won the race, re-fetch".
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func (r *dppSetRepo) GetByUserAndDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, day time.Time) (*types.DPPSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var set types.DPPSet
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND dpp_date = ?", userID, day.Format("2006-01-02")).
		First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &set, nil
}

func (r *dppSetRepo) Create(ctx context.Context, tx *gorm.DB, set *types.DPPSet) (*types.DPPSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(set).Error; err != nil {
		return nil, err
	}
	return set, nil
}

func (r *dppSetRepo) UpdateTotal(ctx context.Context, tx *gorm.DB, id uuid.UUID, total int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.DPPSet{}).
		Where("id = ?", id).
		Update("total_questions", total).Error
}

// MarkCompleted flips the set to COMPLETED. Conditional on the current status
// so double-completion from racing terminal transitions is a no-op.
func (r *dppSetRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.DPPSet{}).
		Where("id = ? AND status = ?", id, types.DPPStatusPending).
		Updates(map[string]interface{}{
			"status":       types.DPPStatusCompleted,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *dppSetRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.DPPSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.DPPSet
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("dpp_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
