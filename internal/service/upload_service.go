package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vanishhq/vanish/internal/config"
	"github.com/vanishhq/vanish/internal/domain"
	"github.com/vanishhq/vanish/internal/repository"
	"github.com/vanishhq/vanish/internal/storage"
	"gorm.io/datatypes"
)

type UploadService struct {
	storyRepo repository.StoryRepository
	provider  storage.Provider
	cfg       *config.Config
	now       func() time.Time
}

func NewUploadService(storyRepo repository.StoryRepository, provider storage.Provider, cfg *config.Config) *UploadService {
	return &UploadService{
		storyRepo: storyRepo,
		provider:  provider,
		cfg:       cfg,
		now:       time.Now,
	}
}

// UploadGrant is a one-object, short-lived write authorization.
type UploadGrant struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthorizeUpload issues a presigned PUT scoped to one fresh object key in
// the room's namespace. Callers must already hold upload rights on the room.
func (s *UploadService) AuthorizeUpload(ctx context.Context, room *domain.Room, contentType string) (*UploadGrant, error) {
	if !isAllowedContentType(contentType) {
		return nil, &domain.ValidationError{Field: "contentType", Message: "must be an image or video type"}
	}

	key := fmt.Sprintf("rooms/%s/stories/%s", room.ID, uuid.New())
	url, err := s.provider.PresignPut(key, contentType, s.cfg.PresignTTL)
	if err != nil {
		return nil, err
	}

	return &UploadGrant{
		URL:       url,
		Key:       key,
		ExpiresAt: s.now().Add(s.cfg.PresignTTL),
	}, nil
}

// ConfirmUpload records the story once the client finishes its PUT. The key
// must sit inside the room's namespace; anything else is a forged confirm.
func (s *UploadService) ConfirmUpload(ctx context.Context, room *domain.Room, uploadedBy, key, contentType string) (*domain.Story, error) {
	prefix := fmt.Sprintf("rooms/%s/stories/", room.ID)
	if !strings.HasPrefix(key, prefix) {
		return nil, &domain.ValidationError{Field: "key", Message: "key does not belong to this room"}
	}

	story := &domain.Story{
		ID:          uuid.New(),
		RoomID:      room.ID,
		UploadedBy:  uploadedBy,
		StorageKey:  key,
		ContentType: contentType,
		Metadata:    datatypes.JSON([]byte(`{}`)),
		CreatedAt:   s.now(),
	}
	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

// StoryView is a story plus a short-lived read URL.
type StoryView struct {
	Story *domain.Story `json:"story"`
	URL   string        `json:"url"`
}

// ListStories returns a room's stories newest-first with presigned GET URLs.
func (s *UploadService) ListStories(ctx context.Context, roomID uuid.UUID) ([]*StoryView, error) {
	stories, err := s.storyRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	views := make([]*StoryView, 0, len(stories))
	for _, story := range stories {
		url, err := s.provider.PresignGet(story.StorageKey, s.cfg.PresignTTL)
		if err != nil {
			return nil, err
		}
		views = append(views, &StoryView{Story: story, URL: url})
	}
	return views, nil
}

func isAllowedContentType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}
