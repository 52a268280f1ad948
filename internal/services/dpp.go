package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepsutra/dpp-backend/internal/adaptive"
	"github.com/prepsutra/dpp-backend/internal/cache"
	"github.com/prepsutra/dpp-backend/internal/data/repos"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/dpperr"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
	"github.com/prepsutra/dpp-backend/internal/utils"
)

// recentAttemptWindow is how many attempts feed the adaptive difficulty bias.
const recentAttemptWindow = 20

// TodaysDPP is the generated-or-existing answer to "what do I practice today".
type TodaysDPP struct {
	Set         *types.DPPSet          `json:"set"`
	Assignments []*types.DPPAssignment `json:"assignments"`
	Generated   bool                   `json:"generated"`
}

// SetSummary is one history row: the set plus its assignment counts.
type SetSummary struct {
	Set       *types.DPPSet `json:"set"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Correct   int           `json:"correct"`
	Skipped   int           `json:"skipped"`
	Accuracy  float64       `json:"accuracy"`
}

// PracticeTestRequest describes an ad-hoc question pull. Unset fields fall
// back to the user's stored config.
type PracticeTestRequest struct {
	SubjectIDs []uuid.UUID `json:"subject_ids,omitempty"`
	TopicIDs   []uuid.UUID `json:"topic_ids,omitempty"`
	Difficulty []string    `json:"difficulty,omitempty"`
	Count      int         `json:"count,omitempty"`
}

type DPPService interface {
	// GetTodaysDPP returns today's set, generating it on first access.
	GetTodaysDPP(ctx context.Context, userID uuid.UUID, includeCompleted bool) (*TodaysDPP, error)
	// GenerateDPP forces generation for today. Idempotent: an existing
	// populated set is returned as-is. count <= 0 uses the config daily limit.
	GenerateDPP(ctx context.Context, userID uuid.UUID, count int) (*TodaysDPP, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]SetSummary, error)
	// GeneratePracticeTest selects questions without persisting anything.
	GeneratePracticeTest(ctx context.Context, userID uuid.UUID, req PracticeTestRequest) ([]types.Question, error)
}

type dppService struct {
	db        *gorm.DB
	sets      repos.DPPSetRepo
	users     repos.UserRepo
	questions repos.QuestionRepo
	assigns   repos.DPPAssignmentRepo
	progress  repos.DPPProgressRepo
	attempts  repos.DPPAttemptRepo

	config   ConfigService
	bank     *cache.QuestionBank
	notifier Notifier
	log      *logger.Logger

	loc *time.Location
	now func() time.Time
}

func NewDPPService(db *gorm.DB, r repos.Repos, config ConfigService, bank *cache.QuestionBank, notifier Notifier, baseLog *logger.Logger) DPPService {
	return &dppService{
		db:        db,
		sets:      r.Set,
		users:     r.User,
		questions: r.Question,
		assigns:   r.Assignment,
		progress:  r.Progress,
		attempts:  r.Attempt,
		config:    config,
		bank:      bank,
		notifier:  notifier,
		log:       baseLog.With("service", "DPPService"),
		loc:       loadDPPTimezone(baseLog),
		now:       time.Now,
	}
}

// loadDPPTimezone resolves the timezone used for "today" boundaries. Streaks
// and daily sets roll over at local midnight, not UTC midnight.
func loadDPPTimezone(log *logger.Logger) *time.Location {
	name := utils.GetEnv("DPP_TIMEZONE", "Asia/Kolkata", log)
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn("invalid DPP_TIMEZONE, falling back to UTC", "value", name, "error", err)
		return time.UTC
	}
	return loc
}

// Today truncates the clock to the local calendar day.
func (s *dppService) today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *dppService) GetTodaysDPP(ctx context.Context, userID uuid.UUID, includeCompleted bool) (*TodaysDPP, error) {
	today := s.today()

	set, err := s.sets.GetByUserAndDate(ctx, nil, userID, today)
	if err != nil {
		return nil, dpperr.Wrap(err, "load today's dpp set")
	}
	if set != nil {
		n, err := s.assigns.CountInSet(ctx, nil, set.ID)
		if err != nil {
			return nil, dpperr.Wrap(err, "count assignments")
		}
		if n > 0 {
			return s.buildResponse(ctx, set, includeCompleted, false)
		}
		// Empty shell from an interrupted generation: fill it in place so
		// the (user_id, dpp_date) row stays unique.
	}

	out, err := s.generate(ctx, userID, today, set, 0)
	if err != nil {
		return nil, err
	}
	if !includeCompleted {
		out.Assignments = filterPending(out.Assignments)
	}
	return out, nil
}

func (s *dppService) GenerateDPP(ctx context.Context, userID uuid.UUID, count int) (*TodaysDPP, error) {
	today := s.today()

	set, err := s.sets.GetByUserAndDate(ctx, nil, userID, today)
	if err != nil {
		return nil, dpperr.Wrap(err, "load today's dpp set")
	}
	if set != nil {
		n, err := s.assigns.CountInSet(ctx, nil, set.ID)
		if err != nil {
			return nil, dpperr.Wrap(err, "count assignments")
		}
		if n > 0 {
			return s.buildResponse(ctx, set, true, false)
		}
	}
	return s.generate(ctx, userID, today, set, count)
}

// generate selects questions and persists the set. reuse, when non-nil, is an
// existing empty row for today that gets filled instead of inserted.
func (s *dppService) generate(ctx context.Context, userID uuid.UUID, today time.Time, reuse *types.DPPSet, count int) (*TodaysDPP, error) {
	cfg, err := s.config.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	selected, err := s.selectQuestions(ctx, userID, cfg, count)
	if err != nil {
		return nil, err
	}

	set := reuse
	if set == nil {
		set = &types.DPPSet{
			UserID:         userID,
			Date:           today,
			TotalQuestions: len(selected),
			Status:         types.DPPStatusPending,
		}
	}

	var assignments []*types.DPPAssignment
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if reuse == nil {
			if _, err := s.sets.Create(ctx, tx, set); err != nil {
				return err
			}
		} else if err := s.sets.UpdateTotal(ctx, tx, set.ID, len(selected)); err != nil {
			return err
		} else {
			set.TotalQuestions = len(selected)
		}

		assignments = make([]*types.DPPAssignment, 0, len(selected))
		for i, q := range selected {
			assignments = append(assignments, &types.DPPAssignment{
				DPPID:      set.ID,
				QuestionID: q.ID,
				UserID:     userID,
				Sequence:   i + 1,
				Status:     types.AssignmentStatusPending,
			})
		}
		if _, err := s.assigns.CreateBatch(ctx, tx, assignments); err != nil {
			return err
		}

		return s.bumpAssigned(ctx, tx, userID, len(selected))
	})
	if txErr != nil {
		if repos.IsUniqueViolation(txErr) {
			// A concurrent request inserted today's row first. Its set is
			// the canonical one.
			existing, ferr := s.sets.GetByUserAndDate(ctx, nil, userID, today)
			if ferr != nil {
				return nil, dpperr.Wrap(ferr, "re-fetch dpp set after race")
			}
			if existing != nil {
				return s.buildResponse(ctx, existing, true, false)
			}
		}
		return nil, dpperr.Wrap(txErr, "persist dpp set")
	}

	if cfg.NotificationsEnabled {
		s.notifier.DPPGenerated(userID, set, len(assignments))
	}
	s.log.Info("dpp set generated", "user_id", userID.String(), "dpp_id", set.ID.String(), "questions", len(assignments))

	for _, a := range assignments {
		q := selected[a.Sequence-1].Sanitized()
		a.Question = &q
	}
	return &TodaysDPP{Set: set, Assignments: assignments, Generated: true}, nil
}

// selectQuestions applies the config filter, biases toward the adaptive
// difficulty target, dedups against everything the user has seen, and only
// repeats old questions when the bank runs dry.
func (s *dppService) selectQuestions(ctx context.Context, userID uuid.UUID, cfg *types.DPPConfig, count int) ([]*types.Question, error) {
	filter := repos.QuestionFilter{
		SubjectIDs:   cfg.Subjects,
		TopicIDs:     cfg.Topics,
		Difficulties: cfg.Difficulty,
		Types:        cfg.QuestionTypes,
		ActiveOnly:   true,
	}

	candidates, err := s.bank.EligibleQuestions(ctx, filter)
	if err != nil {
		return nil, dpperr.Wrap(err, "load eligible questions")
	}
	if len(candidates) == 0 {
		return nil, dpperr.NoQuestionsAvailable(fmt.Errorf("no active questions match the config for user %s", userID))
	}

	seenIDs, err := s.assigns.DistinctQuestionIDsByUser(ctx, nil, userID)
	if err != nil {
		return nil, dpperr.Wrap(err, "load assigned question history")
	}
	seen := make(map[uuid.UUID]bool, len(seenIDs))
	for _, id := range seenIDs {
		seen[id] = true
	}

	var fresh, repeats []*types.Question
	for _, q := range candidates {
		if seen[q.ID] {
			repeats = append(repeats, q)
		} else {
			fresh = append(fresh, q)
		}
	}

	target := s.difficultyTarget(ctx, userID)
	shuffleBiased(fresh, target)
	shuffleBiased(repeats, target)

	limit := count
	if limit <= 0 {
		limit = cfg.DailyLimit
	}
	if limit <= 0 {
		limit = 5
	}

	selected := fresh
	if len(selected) > limit {
		selected = selected[:limit]
	} else if len(selected) < limit {
		// Bank scarcity: repeating old questions beats an undersized set.
		need := limit - len(selected)
		if need > len(repeats) {
			need = len(repeats)
		}
		selected = append(selected, repeats[:need]...)
	}
	return selected, nil
}

// difficultyTarget converts recent performance into a preferred difficulty
// label. Empty string means no signal, no bias.
func (s *dppService) difficultyTarget(ctx context.Context, userID uuid.UUID) string {
	recent, err := s.attempts.Recent(ctx, nil, userID, recentAttemptWindow)
	if err != nil {
		s.log.Warn("recent attempts unavailable, skipping difficulty bias", "user_id", userID.String(), "error", err)
		return ""
	}
	if len(recent) == 0 {
		return ""
	}
	perf := adaptive.PerformanceMetrics(recent, s.now())
	score := adaptive.NextDifficulty(0.5, perf, recent)
	return adaptive.QuantizeDifficulty(score)
}

// shuffleBiased shuffles in place, then stable-partitions questions matching
// the target difficulty to the front. Order within each partition stays random.
func shuffleBiased(qs []*types.Question, target string) {
	rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	if target == "" {
		return
	}
	sorted := make([]*types.Question, 0, len(qs))
	var rest []*types.Question
	for _, q := range qs {
		if q.Difficulty == target {
			sorted = append(sorted, q)
		} else {
			rest = append(rest, q)
		}
	}
	copy(qs, append(sorted, rest...))
}

func (s *dppService) bumpAssigned(ctx context.Context, tx *gorm.DB, userID uuid.UUID, n int) error {
	p, err := s.progress.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return err
	}
	if p == nil {
		_, err = s.progress.Create(ctx, tx, &types.DPPProgress{UserID: userID, TotalAssigned: n})
		return err
	}
	p.TotalAssigned += n
	_, err = s.progress.Save(ctx, tx, p)
	return err
}

func (s *dppService) buildResponse(ctx context.Context, set *types.DPPSet, includeCompleted, generated bool) (*TodaysDPP, error) {
	assignments, err := s.assigns.ListBySet(ctx, nil, set.ID, includeCompleted)
	if err != nil {
		return nil, dpperr.Wrap(err, "list assignments")
	}
	for _, a := range assignments {
		if a.Question != nil && !a.Terminal() {
			q := a.Question.Sanitized()
			a.Question = &q
		}
	}
	return &TodaysDPP{Set: set, Assignments: assignments, Generated: generated}, nil
}

func filterPending(assignments []*types.DPPAssignment) []*types.DPPAssignment {
	out := assignments[:0]
	for _, a := range assignments {
		if !a.Terminal() {
			out = append(out, a)
		}
	}
	return out
}

func (s *dppService) History(ctx context.Context, userID uuid.UUID, limit int) ([]SetSummary, error) {
	sets, err := s.sets.ListByUser(ctx, nil, userID, limit)
	if err != nil {
		return nil, dpperr.Wrap(err, "list dpp history")
	}
	if len(sets) == 0 {
		return []SetSummary{}, nil
	}

	ids := make([]uuid.UUID, 0, len(sets))
	for _, set := range sets {
		ids = append(ids, set.ID)
	}
	counts, err := s.assigns.CountsBySetIDs(ctx, nil, ids)
	if err != nil {
		return nil, dpperr.Wrap(err, "aggregate history counts")
	}
	byID := make(map[uuid.UUID]repos.SetCounts, len(counts))
	for _, c := range counts {
		byID[c.DPPID] = c
	}

	out := make([]SetSummary, 0, len(sets))
	for _, set := range sets {
		c := byID[set.ID]
		summary := SetSummary{
			Set:       set,
			Total:     c.Total,
			Completed: c.Completed,
			Correct:   c.Correct,
			Skipped:   c.Skipped,
		}
		if c.Completed > 0 {
			summary.Accuracy = float64(c.Correct) / float64(c.Completed)
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *dppService) GeneratePracticeTest(ctx context.Context, userID uuid.UUID, req PracticeTestRequest) ([]types.Question, error) {
	cfg, err := s.config.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	filter := repos.QuestionFilter{
		SubjectIDs:   cfg.Subjects,
		TopicIDs:     cfg.Topics,
		Difficulties: cfg.Difficulty,
		Types:        cfg.QuestionTypes,
		ActiveOnly:   true,
	}
	if len(req.SubjectIDs) > 0 {
		filter.SubjectIDs = req.SubjectIDs
	}
	if len(req.TopicIDs) > 0 {
		filter.TopicIDs = req.TopicIDs
	}
	if len(req.Difficulty) > 0 {
		filter.Difficulties = req.Difficulty
	}

	candidates, err := s.bank.EligibleQuestions(ctx, filter)
	if err != nil {
		return nil, dpperr.Wrap(err, "load eligible questions")
	}
	if len(candidates) == 0 {
		return nil, dpperr.NoQuestionsAvailable(fmt.Errorf("no active questions match the practice filter"))
	}

	count := req.Count
	if count <= 0 {
		count = cfg.DailyLimit
	}
	if count > len(candidates) {
		count = len(candidates)
	}

	pool := append([]*types.Question(nil), candidates...)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	out := make([]types.Question, 0, count)
	for _, q := range pool[:count] {
		out = append(out, q.Sanitized())
	}
	return out, nil
}
