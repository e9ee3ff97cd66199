package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vanishhq/vanish/internal/domain"
	"gorm.io/gorm"
)

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *roomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) CreateIfCodeInactive(ctx context.Context, room *domain.Room) error {
	// Single INSERT ... SELECT so the "no active room holds this code" check
	// and the insert cannot race against a concurrent creation. A plain
	// pre-check-then-insert would let two requests claim the same code.
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO rooms (id, code, created_by, duration, allow_uploads, created_at, expires_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM rooms WHERE code = ? AND expires_at > ?
		)`,
		room.ID, room.Code, room.CreatedBy, room.Duration, room.AllowUploads,
		room.CreatedAt, room.ExpiresAt,
		room.Code, room.CreatedAt,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCodeTaken
	}
	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	// Codes are reusable once their room has expired, so several rows may
	// carry the same code. The newest one is the room the code refers to.
	var room domain.Room
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		Order("created_at DESC").
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Room, error) {
	var rooms []*domain.Room
	err := r.db.WithContext(ctx).
		Where("created_by = ?", ownerID).
		Order("created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) SetExpiresAt(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ?", id).
		UpdateColumn("expires_at", expiresAt).Error
}
