package repos

import (
	"github.com/prepsutra/dpp-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// Repos bundles every repository for wiring.
type Repos struct {
	User       UserRepo
	Question   QuestionRepo
	Config     DPPConfigRepo
	Set        DPPSetRepo
	Assignment DPPAssignmentRepo
	Progress   DPPProgressRepo
	Attempt    DPPAttemptRepo
}

func New(db *gorm.DB, baseLog *logger.Logger) Repos {
	return Repos{
		User:       NewUserRepo(db, baseLog),
		Question:   NewQuestionRepo(db, baseLog),
		Config:     NewDPPConfigRepo(db, baseLog),
		Set:        NewDPPSetRepo(db, baseLog),
		Assignment: NewDPPAssignmentRepo(db, baseLog),
		Progress:   NewDPPProgressRepo(db, baseLog),
		Attempt:    NewDPPAttemptRepo(db, baseLog),
	}
}
