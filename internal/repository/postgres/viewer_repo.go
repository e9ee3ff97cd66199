package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vanishhq/vanish/internal/domain"
	"gorm.io/gorm"
)

type viewerRepository struct {
	db *gorm.DB
}

func NewViewerRepository(db *gorm.DB) *viewerRepository {
	return &viewerRepository{db: db}
}

func (r *viewerRepository) Create(ctx context.Context, viewer *domain.ViewerIdentity) error {
	return r.db.WithContext(ctx).Create(viewer).Error
}

func (r *viewerRepository) GetByHash(ctx context.Context, hash string) (*domain.ViewerIdentity, error) {
	var viewer domain.ViewerIdentity
	err := r.db.WithContext(ctx).
		Preload("Room").
		First(&viewer, "viewer_hash = ?", hash).Error
	if err != nil {
		return nil, err
	}
	return &viewer, nil
}

func (r *viewerRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.ViewerIdentity, error) {
	var viewers []*domain.ViewerIdentity
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&viewers).Error
	if err != nil {
		return nil, err
	}
	return viewers, nil
}

func (r *viewerRepository) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.ViewerIdentity{}).
		Where("id = ?", id).
		UpdateColumn("last_seen_at", at).Error
}

func (r *viewerRepository) CountByRoom(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ViewerIdentity{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}
