package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/vanishhq/vanish/internal/domain"
	"gorm.io/gorm"
)

type storyRepository struct {
	db *gorm.DB
}

func NewStoryRepository(db *gorm.DB) *storyRepository {
	return &storyRepository{db: db}
}

func (r *storyRepository) Create(ctx context.Context, story *domain.Story) error {
	return r.db.WithContext(ctx).Create(story).Error
}

func (r *storyRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Story, error) {
	var stories []*domain.Story
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Find(&stories).Error
	if err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *storyRepository) CountByRoom(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Story{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}
