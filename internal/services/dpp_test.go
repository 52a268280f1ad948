package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/prepsutra/dpp-backend/internal/cache"
	"github.com/prepsutra/dpp-backend/internal/data/repos"
	"github.com/prepsutra/dpp-backend/internal/data/repos/testutil"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/dpperr"
	"github.com/prepsutra/dpp-backend/internal/pkg/pointers"
)

type serviceEnv struct {
	db    *gorm.DB
	repos repos.Repos
	bank  *cache.QuestionBank

	config ConfigService
	dpp    DPPService
	sub    SubmissionService
	stats  StatsService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	r := repos.New(db, log)
	bank := cache.NewQuestionBank(r.Question, time.Minute, log)
	cfg := NewConfigService(r, bank, log)
	return &serviceEnv{
		db:     db,
		repos:  r,
		bank:   bank,
		config: cfg,
		dpp:    NewDPPService(db, r, cfg, bank, NopNotifier{}, log),
		sub:    NewSubmissionService(db, r, NopNotifier{}, log),
		stats:  NewStatsService(r, log),
	}
}

// seedBank creates an isolated subject with n active questions, all answering "42".
func seedBank(t *testing.T, ctx context.Context, db *gorm.DB, n int) (*types.Subject, []*types.Question) {
	t.Helper()
	subject := testutil.SeedSubject(t, ctx, db, "Subject-"+uuid.NewString())
	topic := testutil.SeedTopic(t, ctx, db, subject.ID, "Topic-"+uuid.NewString())
	questions := make([]*types.Question, 0, n)
	for i := 0; i < n; i++ {
		difficulty := types.DifficultyEasy
		if i%2 == 1 {
			difficulty = types.DifficultyMedium
		}
		questions = append(questions, testutil.SeedQuestion(t, ctx, db, subject.ID, topic.ID, difficulty, types.QuestionTypeMCQ, "42"))
	}
	return subject, questions
}

func seedUserWithSubject(t *testing.T, ctx context.Context, db *gorm.DB, subjectID uuid.UUID) *types.User {
	t.Helper()
	u := testutil.SeedUser(t, ctx, db, fmt.Sprintf("u-%s@test.local", uuid.NewString()), "10")
	if err := db.WithContext(ctx).Model(u).
		Update("subjects", datatypes.NewJSONSlice([]uuid.UUID{subjectID})).Error; err != nil {
		t.Fatalf("set user subjects: %v", err)
	}
	u.Subjects = datatypes.NewJSONSlice([]uuid.UUID{subjectID})
	return u
}

func TestConfigGetOrCreateDerivesFromProfile(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	subject, _ := seedBank(t, ctx, env.db, 3)
	user := seedUserWithSubject(t, ctx, env.db, subject.ID)

	cfg, err := env.config.GetOrCreate(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0] != subject.ID {
		t.Errorf("subjects = %v, want [%s]", cfg.Subjects, subject.ID)
	}
	if cfg.DailyLimit != 5 {
		t.Errorf("daily limit = %d, want 5", cfg.DailyLimit)
	}
	if !cfg.NotificationsEnabled {
		t.Error("notifications should default on")
	}

	// Second call returns the stored row, not a new derivation.
	again, err := env.config.GetOrCreate(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if again.ID != cfg.ID {
		t.Errorf("second call created a new config: %s vs %s", again.ID, cfg.ID)
	}
}

func TestConfigGetOrCreateUnknownUser(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.config.GetOrCreate(context.Background(), uuid.New())
	if !dpperr.Is(err, dpperr.CodeUserNotFound) {
		t.Fatalf("err = %v, want %s", err, dpperr.CodeUserNotFound)
	}
}

func TestConfigUpdateValidation(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	subject, _ := seedBank(t, ctx, env.db, 3)
	user := seedUserWithSubject(t, ctx, env.db, subject.ID)
	if _, err := env.config.GetOrCreate(ctx, user.ID); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	if _, err := env.config.Update(ctx, user.ID, ConfigUpdate{DailyLimit: pointers.Int(50)}); err == nil {
		t.Error("daily_limit=50 accepted, want rejection")
	}

	cfg, err := env.config.Update(ctx, user.ID, ConfigUpdate{
		DailyLimit: pointers.Int(3),
		Difficulty: pointers.Ptr([]string{types.DifficultyHard}),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if cfg.DailyLimit != 3 || len(cfg.Difficulty) != 1 || cfg.Difficulty[0] != types.DifficultyHard {
		t.Errorf("updated config = %+v", cfg)
	}

	// Updating a user with no config is CONFIG_NOT_FOUND.
	if _, err := env.config.Update(ctx, uuid.New(), ConfigUpdate{DailyLimit: pointers.Int(4)}); !dpperr.Is(err, dpperr.CodeConfigNotFound) {
		t.Errorf("err = %v, want %s", err, dpperr.CodeConfigNotFound)
	}
}

func TestGenerateDPPIsIdempotentAndDistinct(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	subject, _ := seedBank(t, ctx, env.db, 8)
	user := seedUserWithSubject(t, ctx, env.db, subject.ID)

	first, err := env.dpp.GenerateDPP(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("GenerateDPP: %v", err)
	}
	if !first.Generated {
		t.Error("first call should report generated")
	}
	if len(first.Assignments) != 5 {
		t.Fatalf("got %d assignments, want 5", len(first.Assignments))
	}

	seen := map[uuid.UUID]bool{}
	for i, a := range first.Assignments {
		if a.Sequence != i+1 {
			t.Errorf("assignment %d has sequence %d", i, a.Sequence)
		}
		if seen[a.QuestionID] {
			t.Errorf("question %s assigned twice in one set", a.QuestionID)
		}
		seen[a.QuestionID] = true
		if a.Question == nil {
			t.Fatalf("assignment %d missing question", i)
		}
		if a.Question.CorrectAnswer != "" || a.Question.Explanation != "" {
			t.Errorf("assignment %d leaked the answer before submission", i)
		}
	}

	second, err := env.dpp.GenerateDPP(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("second GenerateDPP: %v", err)
	}
	if second.Generated {
		t.Error("second call on the same day should not regenerate")
	}
	if second.Set.ID != first.Set.ID {
		t.Errorf("second call returned a different set: %s vs %s", second.Set.ID, first.Set.ID)
	}
	if len(second.Assignments) != 5 {
		t.Errorf("second call returned %d assignments, want 5", len(second.Assignments))
	}

	p, err := env.repos.Progress.GetByUserID(ctx, nil, user.ID)
	if err != nil || p == nil {
		t.Fatalf("progress row missing: %v", err)
	}
	if p.TotalAssigned != 5 {
		t.Errorf("total assigned = %d, want 5 (no double count)", p.TotalAssigned)
	}
}

func TestGenerateDPPNoQuestions(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	// A subject that exists but has zero active questions never yields a set.
	subject := testutil.SeedSubject(t, ctx, env.db, "Empty-"+uuid.NewString())
	user := seedUserWithSubject(t, ctx, env.db, subject.ID)

	_, err := env.dpp.GenerateDPP(ctx, user.ID, 0)
	if !dpperr.Is(err, dpperr.CodeNoQuestionsAvailable) {
		t.Fatalf("err = %v, want %s", err, dpperr.CodeNoQuestionsAvailable)
	}
}

func TestGenerateDPPHandlesScarcity(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	// Only 3 questions against a daily limit of 5.
	subject, _ := seedBank(t, ctx, env.db, 3)
	user := seedUserWithSubject(t, ctx, env.db, subject.ID)

	out, err := env.dpp.GenerateDPP(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("GenerateDPP: %v", err)
	}
	if len(out.Assignments) != 3 {
		t.Errorf("got %d assignments, want all 3 available", len(out.Assignments))
	}
	if out.Set.TotalQuestions != 3 {
		t.Errorf("set total = %d, want 3", out.Set.TotalQuestions)
	}
}

func TestGenerateDPPCountOverride(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	subject, _ := seedBank(t, ctx, env.db, 5)
	user := seedUserWithSubject(t, ctx, env.db, subject.ID)

	out, err := env.dpp.GenerateDPP(ctx, user.ID, 2)
	if err != nil {
		t.Fatalf("GenerateDPP: %v", err)
	}
	if len(out.Assignments) != 2 {
		t.Errorf("got %d assignments, want the requested 2", len(out.Assignments))
	}
}

func TestSubmitAndSkipFlow(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	subject, _ := seedBank(t, ctx, env.db, 2)
	user := seedUserWithSubject(t, ctx, env.db, subject.ID)

	out, err := env.dpp.GenerateDPP(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("GenerateDPP: %v", err)
	}
	if len(out.Assignments) != 2 {
		t.Fatalf("got %d assignments, want 2", len(out.Assignments))
	}
	first, second := out.Assignments[0], out.Assignments[1]

	res, err := env.sub.Submit(ctx, user.ID, first.ID, SubmitRequest{Answer: " 42 ", TimeSpentSec: 30})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Correct {
		t.Error("normalized answer should grade correct")
	}
	if res.CorrectAnswer != "" || res.Explanation != "" {
		t.Errorf("correct submission must not reveal the answer, got %q / %q", res.CorrectAnswer, res.Explanation)
	}
	if res.PointsEarned != 10 {
		t.Errorf("points = %d, want 10", res.PointsEarned)
	}
	if res.CurrentStreak != 1 {
		t.Errorf("streak = %d, want 1", res.CurrentStreak)
	}
	if res.SetCompleted {
		t.Error("set reported complete with one assignment pending")
	}

	// Terminal transitions are monotonic.
	if _, err := env.sub.Submit(ctx, user.ID, first.ID, SubmitRequest{Answer: "42"}); !dpperr.Is(err, dpperr.CodeAlreadyAnswered) {
		t.Errorf("resubmit err = %v, want %s", err, dpperr.CodeAlreadyAnswered)
	}
	if _, err := env.sub.Skip(ctx, user.ID, first.ID); !dpperr.Is(err, dpperr.CodeAlreadyAnswered) {
		t.Errorf("skip-after-submit err = %v, want %s", err, dpperr.CodeAlreadyAnswered)
	}

	// Another user cannot touch the assignment.
	stranger := testutil.SeedUser(t, ctx, env.db, fmt.Sprintf("s-%s@test.local", uuid.NewString()), "10")
	if _, err := env.sub.Submit(ctx, stranger.ID, second.ID, SubmitRequest{Answer: "42"}); !dpperr.Is(err, dpperr.CodeUnauthorized) {
		t.Errorf("stranger err = %v, want %s", err, dpperr.CodeUnauthorized)
	}

	skip, err := env.sub.Skip(ctx, user.ID, second.ID)
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if !skip.SetCompleted {
		t.Error("skipping the last pending assignment should complete the set")
	}

	set, err := env.repos.Set.GetByUserAndDate(ctx, nil, user.ID, out.Set.Date)
	if err != nil || set == nil {
		t.Fatalf("reload set: %v", err)
	}
	if set.Status != types.DPPStatusCompleted || set.CompletedAt == nil {
		t.Errorf("set status = %s completed_at = %v, want COMPLETED with timestamp", set.Status, set.CompletedAt)
	}

	p, err := env.repos.Progress.GetByUserID(ctx, nil, user.ID)
	if err != nil || p == nil {
		t.Fatalf("progress: %v", err)
	}
	if p.TotalCompleted != 1 || p.TotalCorrect != 1 || p.TotalSkipped != 1 {
		t.Errorf("progress counters = completed %d correct %d skipped %d", p.TotalCompleted, p.TotalCorrect, p.TotalSkipped)
	}
	if p.Points != 10 {
		t.Errorf("points = %d, want 10", p.Points)
	}

	// The attempt log has exactly the submitted answer, not the skip.
	attempts, err := env.repos.Attempt.Recent(ctx, nil, user.ID, 10)
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("attempt rows = %d, want 1", len(attempts))
	}
	if !attempts[0].IsCorrect || attempts[0].SubjectID != subject.ID {
		t.Errorf("attempt = %+v", attempts[0])
	}
}

func TestSubmitUnknownAssignment(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.sub.Submit(context.Background(), uuid.New(), uuid.New(), SubmitRequest{Answer: "x"})
	if !dpperr.Is(err, dpperr.CodeAssignmentNotFound) {
		t.Fatalf("err = %v, want %s", err, dpperr.CodeAssignmentNotFound)
	}
}

func TestHistoryReflectsOutcomes(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	subject, _ := seedBank(t, ctx, env.db, 2)
	user := seedUserWithSubject(t, ctx, env.db, subject.ID)

	out, err := env.dpp.GenerateDPP(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("GenerateDPP: %v", err)
	}
	res, err := env.sub.Submit(ctx, user.ID, out.Assignments[0].ID, SubmitRequest{Answer: "wrong"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Correct || res.CorrectAnswer != "42" {
		t.Errorf("wrong submission should reveal the answer, got correct=%v reveal=%q", res.Correct, res.CorrectAnswer)
	}
	if _, err := env.sub.Skip(ctx, user.ID, out.Assignments[1].ID); err != nil {
		t.Fatalf("Skip: %v", err)
	}

	history, err := env.dpp.History(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(history))
	}
	h := history[0]
	if h.Total != 2 || h.Completed != 1 || h.Correct != 0 || h.Skipped != 1 {
		t.Errorf("history counts = %+v", h)
	}
	if h.Accuracy != 0 {
		t.Errorf("accuracy = %f, want 0", h.Accuracy)
	}
	if h.Set.Status != types.DPPStatusCompleted {
		t.Errorf("set status = %s, want COMPLETED", h.Set.Status)
	}
}

func TestGeneratePracticeTest(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	subject, _ := seedBank(t, ctx, env.db, 6)
	user := seedUserWithSubject(t, ctx, env.db, subject.ID)

	questions, err := env.dpp.GeneratePracticeTest(ctx, user.ID, PracticeTestRequest{Count: 4})
	if err != nil {
		t.Fatalf("GeneratePracticeTest: %v", err)
	}
	if len(questions) != 4 {
		t.Fatalf("got %d questions, want 4", len(questions))
	}
	for _, q := range questions {
		if q.CorrectAnswer != "" || q.Explanation != "" {
			t.Errorf("practice question %s leaked the answer", q.ID)
		}
	}

	// Nothing persisted: today's set is untouched by practice tests.
	set, err := env.repos.Set.GetByUserAndDate(ctx, nil, user.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("load set: %v", err)
	}
	if set != nil {
		t.Error("practice test created a dpp set")
	}
}

func TestStatsReportAfterActivity(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	subject, questions := seedBank(t, ctx, env.db, 4)
	user := seedUserWithSubject(t, ctx, env.db, subject.ID)

	now := time.Now()
	testutil.SeedAttempt(t, ctx, env.db, user.ID, questions[0], true, now.AddDate(0, 0, -1))
	testutil.SeedAttempt(t, ctx, env.db, user.ID, questions[1], false, now.AddDate(0, 0, -1))
	testutil.SeedAttempt(t, ctx, env.db, user.ID, questions[2], true, now)

	report, err := env.stats.Report(ctx, user.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	if len(report.DailyActivity) != 30 {
		t.Errorf("daily activity days = %d, want 30", len(report.DailyActivity))
	}
	var active int
	for _, d := range report.DailyActivity {
		if d.Total > 0 {
			active++
		}
	}
	if active != 2 {
		t.Errorf("active days = %d, want 2", active)
	}

	if len(report.SubjectBreakdown) != 1 {
		t.Fatalf("subject rows = %d, want 1", len(report.SubjectBreakdown))
	}
	sb := report.SubjectBreakdown[0]
	if sb.SubjectID != subject.ID || sb.Total != 3 || sb.Correct != 2 {
		t.Errorf("subject breakdown = %+v", sb)
	}

	if len(report.TopTopics) != 1 || report.TopTopics[0].Total != 3 {
		t.Errorf("top topics = %+v", report.TopTopics)
	}
	if report.Trends.Direction == "" {
		t.Error("trend direction missing")
	}
}

func TestStatsReportNewUser(t *testing.T) {
	env := newServiceEnv(t)

	report, err := env.stats.Report(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Overview.TotalCompleted != 0 || report.Overview.Accuracy != 0 {
		t.Errorf("overview = %+v, want zeros", report.Overview)
	}
	if len(report.DailyActivity) != 30 {
		t.Errorf("daily activity days = %d, want 30", len(report.DailyActivity))
	}
	if report.Overview.Level != 1 {
		t.Errorf("level = %d, want 1", report.Overview.Level)
	}
	if len(report.Recommendations) != 0 {
		t.Errorf("recommendations = %v, want none for a new user", report.Recommendations)
	}
}
