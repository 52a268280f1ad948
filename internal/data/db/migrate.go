package db

import (
	types "github.com/prepsutra/dpp-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// External collaborators (read-mostly reference data)
		// =========================
		&types.User{},
		&types.Subject{},
		&types.Topic{},
		&types.Question{},

		// =========================
		// DPP core
		// =========================
		&types.DPPConfig{},
		&types.DPPSet{},
		&types.DPPAssignment{},
		&types.DPPProgress{},
		&types.DPPAttempt{},
	)
}

func (s *Service) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}
