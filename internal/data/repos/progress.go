package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DPPProgressRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.DPPProgress, error)
	GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.DPPProgress, error)
	Create(ctx context.Context, tx *gorm.DB, progress *types.DPPProgress) (*types.DPPProgress, error)
	Save(ctx context.Context, tx *gorm.DB, progress *types.DPPProgress) (*types.DPPProgress, error)
}

type dppProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDPPProgressRepo(db *gorm.DB, baseLog *logger.Logger) DPPProgressRepo {
	repoLog := baseLog.With("repo", "DPPProgressRepo")
	return &dppProgressRepo{db: db, log: repoLog}
}

func (r *dppProgressRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.DPPProgress, error) {
	return r.get(ctx, tx, userID, false)
}

// GetByUserIDForUpdate takes a row lock so concurrent terminal transitions for
// the same user serialize their counter updates. Must run inside the caller's
// transaction.
func (r *dppProgressRepo) GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.DPPProgress, error) {
	return r.get(ctx, tx, userID, true)
}

func (r *dppProgressRepo) get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, forUpdate bool) (*types.DPPProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil {
		return nil, nil
	}

	q := transaction.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var p types.DPPProgress
	if err := q.Where("user_id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *dppProgressRepo) Create(ctx context.Context, tx *gorm.DB, progress *types.DPPProgress) (*types.DPPProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(progress).Error; err != nil {
		return nil, err
	}
	return progress, nil
}

func (r *dppProgressRepo) Save(ctx context.Context, tx *gorm.DB, progress *types.DPPProgress) (*types.DPPProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Save(progress).Error; err != nil {
		return nil, err
	}
	return progress, nil
}
