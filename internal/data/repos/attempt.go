package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// Rollup buckets returned by the grouped aggregate queries. Accuracy is
// computed by the stats service (0 when Total is 0, never NaN here either).
type WeeklyBucket struct {
	Week       string `gorm:"column:week"`
	Total      int    `gorm:"column:total"`
	Correct    int    `gorm:"column:correct"`
	TimeSec    int    `gorm:"column:time_sec"`
	ActiveDays int    `gorm:"column:active_days"`
}

type DailyBucket struct {
	Day     string `gorm:"column:day"`
	Total   int    `gorm:"column:total"`
	Correct int    `gorm:"column:correct"`
	TimeSec int    `gorm:"column:time_sec"`
}

type SubjectBucket struct {
	SubjectID uuid.UUID `gorm:"column:subject_id"`
	Subject   string    `gorm:"column:subject"`
	Total     int       `gorm:"column:total"`
	Correct   int       `gorm:"column:correct"`
	TimeSec   int       `gorm:"column:time_sec"`
}

type TopicBucket struct {
	TopicID   uuid.UUID `gorm:"column:topic_id"`
	Topic     string    `gorm:"column:topic"`
	SubjectID uuid.UUID `gorm:"column:subject_id"`
	Subject   string    `gorm:"column:subject"`
	Total     int       `gorm:"column:total"`
	Correct   int       `gorm:"column:correct"`
}

type DPPAttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *types.DPPAttempt) (*types.DPPAttempt, error)
	Recent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.DPPAttempt, error)
	ListSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.DPPAttempt, error)
	WeeklyRollup(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]WeeklyBucket, error)
	DailyRollup(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]DailyBucket, error)
	SubjectRollup(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]SubjectBucket, error)
	TopicRollup(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]TopicBucket, error)
}

type dppAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDPPAttemptRepo(db *gorm.DB, baseLog *logger.Logger) DPPAttemptRepo {
	repoLog := baseLog.With("repo", "DPPAttemptRepo")
	return &dppAttemptRepo{db: db, log: repoLog}
}

func (r *dppAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *types.DPPAttempt) (*types.DPPAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *dppAttemptRepo) Recent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.DPPAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.DPPAttempt
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *dppAttemptRepo) ListSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.DPPAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.DPPAttempt
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND submitted_at >= ?", userID, since).
		Order("submitted_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// dayExpr and weekExpr pick the grouping expression per dialect so the same
// rollup implementation serves Postgres and the SQLite dev database. SQLite's
// %W weeks are not ISO weeks; acceptable for local development only.
func (r *dppAttemptRepo) dayExpr() string {
	if r.db.Dialector.Name() == "sqlite" {
		return "strftime('%Y-%m-%d', submitted_at)"
	}
	return "to_char(submitted_at, 'YYYY-MM-DD')"
}

func (r *dppAttemptRepo) weekExpr() string {
	if r.db.Dialector.Name() == "sqlite" {
		return "strftime('%Y-W%W', submitted_at)"
	}
	return `to_char(submitted_at, 'IYYY-"W"IW')`
}

func (r *dppAttemptRepo) WeeklyRollup(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]WeeklyBucket, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	week := r.weekExpr()
	day := r.dayExpr()

	var results []WeeklyBucket
	if err := transaction.WithContext(ctx).
		Model(&types.DPPAttempt{}).
		Select(week+` AS week,
			COUNT(*) AS total,
			SUM(CASE WHEN is_correct THEN 1 ELSE 0 END) AS correct,
			SUM(time_spent_sec) AS time_sec,
			COUNT(DISTINCT `+day+`) AS active_days`).
		Where("user_id = ? AND submitted_at >= ?", userID, since).
		Group("week").
		Order("week ASC").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *dppAttemptRepo) DailyRollup(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]DailyBucket, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	day := r.dayExpr()

	var results []DailyBucket
	if err := transaction.WithContext(ctx).
		Model(&types.DPPAttempt{}).
		Select(day+` AS day,
			COUNT(*) AS total,
			SUM(CASE WHEN is_correct THEN 1 ELSE 0 END) AS correct,
			SUM(time_spent_sec) AS time_sec`).
		Where("user_id = ? AND submitted_at >= ?", userID, since).
		Group("day").
		Order("day ASC").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *dppAttemptRepo) SubjectRollup(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]SubjectBucket, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []SubjectBucket
	if err := transaction.WithContext(ctx).
		Model(&types.DPPAttempt{}).
		Select(`dpp_attempt.subject_id,
			subject.name AS subject,
			COUNT(*) AS total,
			SUM(CASE WHEN dpp_attempt.is_correct THEN 1 ELSE 0 END) AS correct,
			SUM(dpp_attempt.time_spent_sec) AS time_sec`).
		Joins("JOIN subject ON subject.id = dpp_attempt.subject_id").
		Where("dpp_attempt.user_id = ?", userID).
		Group("dpp_attempt.subject_id, subject.name").
		Order("total DESC").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *dppAttemptRepo) TopicRollup(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]TopicBucket, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		Model(&types.DPPAttempt{}).
		Select(`dpp_attempt.topic_id,
			topic.name AS topic,
			dpp_attempt.subject_id,
			subject.name AS subject,
			COUNT(*) AS total,
			SUM(CASE WHEN dpp_attempt.is_correct THEN 1 ELSE 0 END) AS correct`).
		Joins("JOIN topic ON topic.id = dpp_attempt.topic_id").
		Joins("JOIN subject ON subject.id = dpp_attempt.subject_id").
		Where("dpp_attempt.user_id = ?", userID).
		Group("dpp_attempt.topic_id, topic.name, dpp_attempt.subject_id, subject.name").
		Order("total DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var results []TopicBucket
	if err := q.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
