package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type DPPConfigRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.DPPConfig, error)
	Create(ctx context.Context, tx *gorm.DB, config *types.DPPConfig) (*types.DPPConfig, error)
	Save(ctx context.Context, tx *gorm.DB, config *types.DPPConfig) (*types.DPPConfig, error)
}

type dppConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDPPConfigRepo(db *gorm.DB, baseLog *logger.Logger) DPPConfigRepo {
	repoLog := baseLog.With("repo", "DPPConfigRepo")
	return &dppConfigRepo{db: db, log: repoLog}
}

func (r *dppConfigRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.DPPConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil {
		return nil, nil
	}

	var cfg types.DPPConfig
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *dppConfigRepo) Create(ctx context.Context, tx *gorm.DB, config *types.DPPConfig) (*types.DPPConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(config).Error; err != nil {
		return nil, err
	}
	return config, nil
}

func (r *dppConfigRepo) Save(ctx context.Context, tx *gorm.DB, config *types.DPPConfig) (*types.DPPConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Save(config).Error; err != nil {
		return nil, err
	}
	return config, nil
}
