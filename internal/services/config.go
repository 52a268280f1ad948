package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/prepsutra/dpp-backend/internal/cache"
	"github.com/prepsutra/dpp-backend/internal/data/repos"
	"github.com/prepsutra/dpp-backend/internal/defaults"
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"github.com/prepsutra/dpp-backend/internal/dpperr"
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
)

const maxDailyLimit = 20

// ConfigUpdate carries a partial config change. Nil fields are left untouched.
type ConfigUpdate struct {
	Subjects             *[]uuid.UUID `json:"subjects,omitempty"`
	Topics               *[]uuid.UUID `json:"topics,omitempty"`
	Difficulty           *[]string    `json:"difficulty,omitempty"`
	QuestionTypes        *[]string    `json:"question_types,omitempty"`
	DailyLimit           *int         `json:"daily_limit,omitempty"`
	TimeOfDay            *string      `json:"time_of_day,omitempty"`
	NotificationsEnabled *bool        `json:"notifications_enabled,omitempty"`
}

type ConfigService interface {
	// GetOrCreate returns the user's config, deriving one from class-level
	// defaults on first access.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*types.DPPConfig, error)
	Update(ctx context.Context, userID uuid.UUID, update ConfigUpdate) (*types.DPPConfig, error)
}

type configService struct {
	users     repos.UserRepo
	questions repos.QuestionRepo
	configs   repos.DPPConfigRepo
	bank      *cache.QuestionBank
	log       *logger.Logger
}

func NewConfigService(r repos.Repos, bank *cache.QuestionBank, baseLog *logger.Logger) ConfigService {
	return &configService{
		users:     r.User,
		questions: r.Question,
		configs:   r.Config,
		bank:      bank,
		log:       baseLog.With("service", "ConfigService"),
	}
}

func (s *configService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*types.DPPConfig, error) {
	cfg, err := s.configs.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, dpperr.Wrap(err, "load dpp config")
	}
	if cfg != nil {
		return cfg, nil
	}

	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, dpperr.Wrap(err, "load user")
	}
	if user == nil {
		return nil, dpperr.UserNotFound(fmt.Errorf("user %s not found", userID))
	}

	cfg, err = s.deriveDefault(ctx, user)
	if err != nil {
		return nil, err
	}

	created, err := s.configs.Create(ctx, nil, cfg)
	if err != nil {
		if repos.IsUniqueViolation(err) {
			// Another request derived the defaults first. Use theirs.
			existing, ferr := s.configs.GetByUserID(ctx, nil, userID)
			if ferr != nil {
				return nil, dpperr.Wrap(ferr, "re-fetch dpp config after race")
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, dpperr.Wrap(err, "create dpp config")
	}

	s.log.Info("derived default dpp config", "user_id", userID.String(), "class_level", user.ClassLevel, "subjects", len(created.Subjects))
	return created, nil
}

// deriveDefault builds a first config from the user's class level. Subject
// preferences already on the profile win over class defaults; either way only
// subjects that actually have active questions make the cut.
func (s *configService) deriveDefault(ctx context.Context, user *types.User) (*types.DPPConfig, error) {
	d, err := defaults.Load()
	if err != nil {
		return nil, dpperr.Wrap(err, "load class defaults")
	}

	active, err := s.questions.SubjectIDsWithActiveQuestions(ctx, nil)
	if err != nil {
		return nil, dpperr.Wrap(err, "list subjects with active questions")
	}
	activeSet := make(map[uuid.UUID]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}

	var subjectIDs []uuid.UUID
	if len(user.Subjects) > 0 {
		for _, id := range user.Subjects {
			if activeSet[id] {
				subjectIDs = append(subjectIDs, id)
			}
		}
	}
	if len(subjectIDs) == 0 {
		names := d.SubjectsForClass(user.ClassLevel)
		subjects, err := s.questions.SubjectsByNames(ctx, nil, names)
		if err != nil {
			return nil, dpperr.Wrap(err, "resolve default subjects")
		}
		for _, sub := range subjects {
			if activeSet[sub.ID] {
				subjectIDs = append(subjectIDs, sub.ID)
			}
		}

		// Best-effort back-fill so the profile reflects the derived picks.
		// A failure here is an error to report, not a reason to abort.
		if len(subjectIDs) > 0 && len(user.Subjects) == 0 {
			if err := s.users.UpdateSubjects(ctx, nil, user.ID, subjectIDs); err != nil {
				s.log.Error("subject back-fill failed", "user_id", user.ID.String(), "error", err)
			}
		}
	}

	return &types.DPPConfig{
		UserID:               user.ID,
		Subjects:             datatypes.NewJSONSlice(subjectIDs),
		Difficulty:           datatypes.NewJSONSlice(d.Difficulty),
		QuestionTypes:        datatypes.NewJSONSlice(d.QuestionTypes),
		DailyLimit:           d.DailyLimit,
		NotificationsEnabled: d.NotificationsEnabled,
	}, nil
}

func (s *configService) Update(ctx context.Context, userID uuid.UUID, update ConfigUpdate) (*types.DPPConfig, error) {
	cfg, err := s.configs.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, dpperr.Wrap(err, "load dpp config")
	}
	if cfg == nil {
		return nil, dpperr.ConfigNotFound(fmt.Errorf("no dpp config for user %s", userID))
	}

	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	if update.Subjects != nil {
		cfg.Subjects = datatypes.NewJSONSlice(*update.Subjects)
	}
	if update.Topics != nil {
		cfg.Topics = datatypes.NewJSONSlice(*update.Topics)
	}
	if update.Difficulty != nil {
		cfg.Difficulty = datatypes.NewJSONSlice(*update.Difficulty)
	}
	if update.QuestionTypes != nil {
		cfg.QuestionTypes = datatypes.NewJSONSlice(*update.QuestionTypes)
	}
	if update.DailyLimit != nil {
		cfg.DailyLimit = *update.DailyLimit
	}
	if update.TimeOfDay != nil {
		cfg.TimeOfDay = *update.TimeOfDay
	}
	if update.NotificationsEnabled != nil {
		cfg.NotificationsEnabled = *update.NotificationsEnabled
	}

	saved, err := s.configs.Save(ctx, nil, cfg)
	if err != nil {
		return nil, dpperr.Wrap(err, "save dpp config")
	}

	// Cached snapshots may be keyed on the old filter. Drop them so the next
	// generation sees the change immediately instead of after TTL.
	s.bank.Invalidate()

	s.log.Info("dpp config updated", "user_id", userID.String())
	return saved, nil
}

func validateUpdate(update ConfigUpdate) error {
	if update.DailyLimit != nil && (*update.DailyLimit < 1 || *update.DailyLimit > maxDailyLimit) {
		return dpperr.New(400, dpperr.CodeDPPError, fmt.Errorf("daily_limit must be between 1 and %d", maxDailyLimit))
	}
	if update.Difficulty != nil {
		for _, d := range *update.Difficulty {
			switch d {
			case types.DifficultyEasy, types.DifficultyMedium, types.DifficultyHard:
			default:
				return dpperr.New(400, dpperr.CodeDPPError, fmt.Errorf("unknown difficulty %q", d))
			}
		}
	}
	if update.QuestionTypes != nil {
		for _, t := range *update.QuestionTypes {
			switch t {
			case types.QuestionTypeMCQ, types.QuestionTypeNumerical:
			default:
				return dpperr.New(400, dpperr.CodeDPPError, fmt.Errorf("unknown question type %q", t))
			}
		}
	}
	return nil
}
