package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/prepsutra/dpp-backend/internal/data/repos"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/dpperr"
	"github.com/prepsutra/dpp-backend/internal/gamify"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
)

const (
	weeklyWindowWeeks  = 12
	dailyWindowDays    = 30
	trendWindowWeeks   = 4
	topTopicsLimit     = 10
	maxTopicFocusRecos = 3
)

// Overview is the headline block of the stats report.
type Overview struct {
	TotalAssigned  int            `json:"total_assigned"`
	TotalCompleted int            `json:"total_completed"`
	TotalCorrect   int            `json:"total_correct"`
	TotalSkipped   int            `json:"total_skipped"`
	Accuracy       float64        `json:"accuracy"`
	TotalTimeSec   int            `json:"total_time_sec"`
	CurrentStreak  int            `json:"current_streak"`
	MaxStreak      int            `json:"max_streak"`
	Points         int            `json:"points"`
	Level          int            `json:"level"`
	PointsToNext   int            `json:"points_to_next_level"`
	Badges         []gamify.Badge `json:"badges"`
}

type WeeklyProgress struct {
	Week       string  `json:"week"`
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Accuracy   float64 `json:"accuracy"`
	TimeSec    int     `json:"time_sec"`
	ActiveDays int     `json:"active_days"`
}

type DailyActivity struct {
	Day     string `json:"day"`
	Total   int    `json:"total"`
	Correct int    `json:"correct"`
	TimeSec int    `json:"time_sec"`
}

type SubjectStat struct {
	SubjectID uuid.UUID `json:"subject_id"`
	Subject   string    `json:"subject"`
	Total     int       `json:"total"`
	Correct   int       `json:"correct"`
	Accuracy  float64   `json:"accuracy"`
	TimeSec   int       `json:"time_sec"`
}

type TopicStat struct {
	TopicID   uuid.UUID `json:"topic_id"`
	Topic     string    `json:"topic"`
	SubjectID uuid.UUID `json:"subject_id"`
	Subject   string    `json:"subject"`
	Total     int       `json:"total"`
	Correct   int       `json:"correct"`
	Accuracy  float64   `json:"accuracy"`
}

// WeekActivity is one point in the trend activity series.
type WeekActivity struct {
	Questions  int `json:"questions"`
	ActiveDays int `json:"active_days"`
}

// Trends carries the per-week accuracy and activity series over the trend
// window, plus a direction summary comparing the latest week against the
// weeks before it.
type Trends struct {
	Direction     string         `json:"direction"` // improving, declining, stable
	AccuracyDelta float64        `json:"accuracy_delta"`
	Weeks         int            `json:"weeks"`
	Accuracy      []float64      `json:"accuracy"`
	Activity      []WeekActivity `json:"activity"`
}

type Predictions struct {
	PredictedAccuracy float64 `json:"predicted_accuracy"` // percent, clamped to [0,100]
	ProjectedStreak   int     `json:"projected_streak"`
	ReadinessTier     string  `json:"readiness_tier"` // foundation, steady, advanced
}

type Recommendation struct {
	Type     string `json:"type"` // subject_review, topic_focus, time_management, accuracy_improvement
	Priority string `json:"priority"`
	Message  string `json:"message"`
	Subject  string `json:"subject,omitempty"`
	Topic    string `json:"topic,omitempty"`
}

// StatsReport is the full aggregate returned by GET /api/dpp/stats.
type StatsReport struct {
	Overview         Overview         `json:"overview"`
	WeeklyProgress   []WeeklyProgress `json:"weekly_progress"`
	DailyActivity    []DailyActivity  `json:"daily_activity"`
	SubjectBreakdown []SubjectStat    `json:"subject_breakdown"`
	TopTopics        []TopicStat      `json:"top_topics"`
	Trends           Trends           `json:"trends"`
	Predictions      Predictions      `json:"predictions"`
	Recommendations  []Recommendation `json:"recommendations"`
}

type StatsService interface {
	Report(ctx context.Context, userID uuid.UUID) (*StatsReport, error)
}

type statsService struct {
	progress repos.DPPProgressRepo
	attempts repos.DPPAttemptRepo
	log      *logger.Logger

	loc *time.Location
	now func() time.Time
}

func NewStatsService(r repos.Repos, baseLog *logger.Logger) StatsService {
	log := baseLog.With("service", "StatsService")
	return &statsService{
		progress: r.Progress,
		attempts: r.Attempt,
		log:      log,
		loc:      loadDPPTimezone(log),
		now:      time.Now,
	}
}

func (s *statsService) Report(ctx context.Context, userID uuid.UUID) (*StatsReport, error) {
	now := s.now().In(s.loc)
	weeklySince := now.AddDate(0, 0, -7*weeklyWindowWeeks)
	dailySince := now.AddDate(0, 0, -(dailyWindowDays - 1))

	var (
		progress *types.DPPProgress
		weekly   []repos.WeeklyBucket
		daily    []repos.DailyBucket
		subjects []repos.SubjectBucket
		topics   []repos.TopicBucket
	)

	// The five sources are independent reads; fan them out.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		progress, err = s.progress.GetByUserID(gctx, nil, userID)
		return err
	})
	g.Go(func() (err error) {
		weekly, err = s.attempts.WeeklyRollup(gctx, nil, userID, weeklySince)
		return err
	})
	g.Go(func() (err error) {
		daily, err = s.attempts.DailyRollup(gctx, nil, userID, truncateDay(dailySince))
		return err
	})
	g.Go(func() (err error) {
		subjects, err = s.attempts.SubjectRollup(gctx, nil, userID)
		return err
	})
	g.Go(func() (err error) {
		topics, err = s.attempts.TopicRollup(gctx, nil, userID, topTopicsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dpperr.Wrap(err, "aggregate stats")
	}

	if progress == nil {
		progress = &types.DPPProgress{UserID: userID}
	}

	report := &StatsReport{
		Overview:         buildOverview(progress),
		WeeklyProgress:   buildWeekly(weekly),
		DailyActivity:    zeroFilledDaily(daily, now, dailyWindowDays),
		SubjectBreakdown: buildSubjects(subjects),
		TopTopics:        buildTopics(topics),
	}
	report.Trends = buildTrends(report.WeeklyProgress)
	report.Predictions = buildPredictions(progress, report.WeeklyProgress, report.DailyActivity)
	report.Recommendations = buildRecommendations(progress, report.SubjectBreakdown, report.TopTopics, report.DailyActivity)
	return report, nil
}

func buildOverview(p *types.DPPProgress) Overview {
	return Overview{
		TotalAssigned:  p.TotalAssigned,
		TotalCompleted: p.TotalCompleted,
		TotalCorrect:   p.TotalCorrect,
		TotalSkipped:   p.TotalSkipped,
		Accuracy:       p.Accuracy(),
		TotalTimeSec:   p.TotalTimeSec,
		CurrentStreak:  p.CurrentStreak,
		MaxStreak:      p.MaxStreak,
		Points:         p.Points,
		Level:          gamify.Level(p.Points),
		PointsToNext:   gamify.PointsToNextLevel(p.Points),
		Badges:         gamify.Badges(p),
	}
}

func buildWeekly(buckets []repos.WeeklyBucket) []WeeklyProgress {
	out := make([]WeeklyProgress, 0, len(buckets))
	for _, b := range buckets {
		wp := WeeklyProgress{
			Week:       b.Week,
			Total:      b.Total,
			Correct:    b.Correct,
			TimeSec:    b.TimeSec,
			ActiveDays: b.ActiveDays,
		}
		if b.Total > 0 {
			wp.Accuracy = float64(b.Correct) / float64(b.Total)
		}
		out = append(out, wp)
	}
	return out
}

// zeroFilledDaily expands the sparse rollup into one entry per calendar day,
// oldest first. Days with no attempts appear as explicit zeros so activity
// charts never have holes.
func zeroFilledDaily(buckets []repos.DailyBucket, now time.Time, days int) []DailyActivity {
	byDay := make(map[string]repos.DailyBucket, len(buckets))
	for _, b := range buckets {
		byDay[b.Day] = b
	}

	out := make([]DailyActivity, 0, days)
	start := truncateDay(now.AddDate(0, 0, -(days - 1)))
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format("2006-01-02")
		b := byDay[key]
		out = append(out, DailyActivity{
			Day:     key,
			Total:   b.Total,
			Correct: b.Correct,
			TimeSec: b.TimeSec,
		})
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func buildSubjects(buckets []repos.SubjectBucket) []SubjectStat {
	out := make([]SubjectStat, 0, len(buckets))
	for _, b := range buckets {
		stat := SubjectStat{
			SubjectID: b.SubjectID,
			Subject:   b.Subject,
			Total:     b.Total,
			Correct:   b.Correct,
			TimeSec:   b.TimeSec,
		}
		if b.Total > 0 {
			stat.Accuracy = float64(b.Correct) / float64(b.Total)
		}
		out = append(out, stat)
	}
	return out
}

func buildTopics(buckets []repos.TopicBucket) []TopicStat {
	out := make([]TopicStat, 0, len(buckets))
	for _, b := range buckets {
		stat := TopicStat{
			TopicID:   b.TopicID,
			Topic:     b.Topic,
			SubjectID: b.SubjectID,
			Subject:   b.Subject,
			Total:     b.Total,
			Correct:   b.Correct,
		}
		if b.Total > 0 {
			stat.Accuracy = float64(b.Correct) / float64(b.Total)
		}
		out = append(out, stat)
	}
	return out
}

// buildTrends emits the per-week accuracy and activity series over the
// trailing trend window and compares the most recent week against the mean
// of the weeks before it.
func buildTrends(weekly []WeeklyProgress) Trends {
	window := weekly
	if len(window) > trendWindowWeeks {
		window = window[len(window)-trendWindowWeeks:]
	}
	t := Trends{
		Direction: "stable",
		Weeks:     len(window),
		Accuracy:  make([]float64, 0, len(window)),
		Activity:  make([]WeekActivity, 0, len(window)),
	}
	for _, w := range window {
		t.Accuracy = append(t.Accuracy, w.Accuracy)
		t.Activity = append(t.Activity, WeekActivity{Questions: w.Total, ActiveDays: w.ActiveDays})
	}
	if len(window) < 2 {
		return t
	}

	latest := window[len(window)-1].Accuracy
	var prior float64
	for _, w := range window[:len(window)-1] {
		prior += w.Accuracy
	}
	prior /= float64(len(window) - 1)

	t.AccuracyDelta = (latest - prior) * 100
	switch {
	case t.AccuracyDelta > 5:
		t.Direction = "improving"
	case t.AccuracyDelta < -5:
		t.Direction = "declining"
	}
	return t
}

// buildPredictions extrapolates next-week accuracy from the last two weekly
// points and projects the streak from average daily volume.
func buildPredictions(p *types.DPPProgress, weekly []WeeklyProgress, daily []DailyActivity) Predictions {
	// Latest weekly accuracy anchors both the extrapolation and the tier;
	// overall accuracy only fills in when no weekly data exists yet.
	latestPct := p.Accuracy() * 100
	if n := len(weekly); n > 0 {
		latestPct = weekly[n-1].Accuracy * 100
	}

	predicted := latestPct
	if n := len(weekly); n >= 2 {
		slope := (weekly[n-1].Accuracy - weekly[n-2].Accuracy) * 100
		predicted = latestPct + slope
	}
	if predicted < 0 {
		predicted = 0
	}
	if predicted > 100 {
		predicted = 100
	}

	var total int
	for _, d := range daily {
		total += d.Total
	}
	perDay := 0.0
	if len(daily) > 0 {
		perDay = float64(total) / float64(len(daily))
	}

	projected := p.CurrentStreak
	switch {
	case perDay >= 5:
		projected += 7
	case perDay >= 3:
		projected += 3
	default:
		projected++
	}

	tier := "advanced"
	switch {
	case latestPct < 50:
		tier = "foundation"
	case latestPct < 75:
		tier = "steady"
	}

	return Predictions{
		PredictedAccuracy: predicted,
		ProjectedStreak:   projected,
		ReadinessTier:     tier,
	}
}

// buildRecommendations emits items in a fixed order UI consumers rely on:
// subject_review, topic_focus, time_management, accuracy_improvement.
func buildRecommendations(p *types.DPPProgress, subjects []SubjectStat, topics []TopicStat, daily []DailyActivity) []Recommendation {
	out := []Recommendation{}

	for _, s := range subjects {
		if s.Accuracy < 0.6 {
			out = append(out, Recommendation{
				Type:     "subject_review",
				Priority: "high",
				Message:  "Accuracy in " + s.Subject + " is lagging. Schedule a concept review before the next set.",
				Subject:  s.Subject,
			})
		}
	}

	// Lowest-accuracy topics first.
	weak := make([]TopicStat, 0, len(topics))
	for _, t := range topics {
		if t.Accuracy < 0.65 {
			weak = append(weak, t)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].Accuracy < weak[j].Accuracy })
	if len(weak) > maxTopicFocusRecos {
		weak = weak[:maxTopicFocusRecos]
	}
	for _, t := range weak {
		out = append(out, Recommendation{
			Type:     "topic_focus",
			Priority: "medium",
			Message:  "Practice more " + t.Topic + " (" + t.Subject + ") questions to close the gap.",
			Subject:  t.Subject,
			Topic:    t.Topic,
		})
	}

	var total int
	for _, d := range daily {
		total += d.Total
	}
	if total > 0 && float64(total)/float64(len(daily)) < 2 {
		out = append(out, Recommendation{
			Type:     "time_management",
			Priority: "low",
			Message:  "Averaging under 2 questions a day. Small consistent sessions beat weekend cramming.",
		})
	}

	if p.TotalCompleted > 0 && p.Accuracy() < 0.5 {
		out = append(out, Recommendation{
			Type:     "accuracy_improvement",
			Priority: "high",
			Message:  "Overall accuracy is below 50%. Slow down and review explanations after every question.",
		})
	}

	return out
}
