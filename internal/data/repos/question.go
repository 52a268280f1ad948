package repos

import (
	"context"

	"github.com/google/uuid"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// QuestionFilter narrows the bank to what a configuration is allowed to see.
// Empty slices mean "no restriction on that axis".
type QuestionFilter struct {
	SubjectIDs   []uuid.UUID
	TopicIDs     []uuid.UUID
	Difficulties []string
	Types        []string
	ActiveOnly   bool
}

type QuestionRepo interface {
	Find(ctx context.Context, tx *gorm.DB, filter QuestionFilter, limit int) ([]*types.Question, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Question, error)
	SubjectsByNames(ctx context.Context, tx *gorm.DB, names []string) ([]*types.Subject, error)
	SubjectIDsWithActiveQuestions(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	repoLog := baseLog.With("repo", "QuestionRepo")
	return &questionRepo{db: db, log: repoLog}
}

func (r *questionRepo) Find(ctx context.Context, tx *gorm.DB, filter QuestionFilter, limit int) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).Model(&types.Question{})
	if filter.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if len(filter.SubjectIDs) > 0 {
		q = q.Where("subject_id IN ?", filter.SubjectIDs)
	}
	if len(filter.TopicIDs) > 0 {
		q = q.Where("topic_id IN ?", filter.TopicIDs)
	}
	if len(filter.Difficulties) > 0 {
		q = q.Where("difficulty IN ?", filter.Difficulties)
	}
	if len(filter.Types) > 0 {
		q = q.Where("type IN ?", filter.Types)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var results []*types.Question
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Question
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) SubjectsByNames(ctx context.Context, tx *gorm.DB, names []string) ([]*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Subject
	if len(names) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("name IN ?", names).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *questionRepo) SubjectIDsWithActiveQuestions(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.Question{}).
		Where("active = ?", true).
		Distinct("subject_id").
		Pluck("subject_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
