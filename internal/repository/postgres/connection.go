package postgres

import (
	"github.com/vanishhq/vanish/internal/domain"
	"github.com/vanishhq/vanish/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate tables
	err = db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.ViewerIdentity{},
		&domain.MagicLinkToken{},
		&domain.TwoFactorToken{},
		&domain.Story{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:      NewUserRepository(db),
		Room:      NewRoomRepository(db),
		Viewer:    NewViewerRepository(db),
		MagicLink: NewMagicLinkRepository(db),
		TwoFactor: NewTwoFactorRepository(db),
		Story:     NewStoryRepository(db),
	}
}
