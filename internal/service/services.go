package service

import (
	"github.com/vanishhq/vanish/internal/config"
	"github.com/vanishhq/vanish/internal/repository"
	"github.com/vanishhq/vanish/internal/storage"
)

type Services struct {
	Auth   *AuthService
	Room   *RoomService
	Viewer *ViewerService
	Upload *UploadService
}

func NewServices(repos *repository.Repositories, mailer Mailer, provider storage.Provider, cfg *config.Config) *Services {
	var oauth OAuthExchanger
	if p := NewOAuthProvider(cfg); p != nil {
		oauth = p
	}

	roomService := NewRoomService(repos.Room, repos.Viewer, repos.Story, cfg)
	return &Services{
		Auth:   NewAuthService(repos.User, repos.MagicLink, repos.TwoFactor, mailer, oauth, cfg),
		Room:   roomService,
		Viewer: NewViewerService(repos.Viewer, roomService),
		Upload: NewUploadService(repos.Story, provider, cfg),
	}
}
