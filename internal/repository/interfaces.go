package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vanishhq/vanish/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type RoomRepository interface {
	// CreateIfCodeInactive inserts the room only if no unexpired room holds
	// the same code, as a single atomic statement. Returns
	// domain.ErrCodeTaken when the code is still live.
	CreateIfCodeInactive(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	// GetByCode returns the newest room carrying the code, expired or not;
	// liveness is the caller's decision.
	GetByCode(ctx context.Context, code string) (*domain.Room, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Room, error)
	SetExpiresAt(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
}

type ViewerRepository interface {
	Create(ctx context.Context, viewer *domain.ViewerIdentity) error
	GetByHash(ctx context.Context, hash string) (*domain.ViewerIdentity, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.ViewerIdentity, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
	CountByRoom(ctx context.Context, roomID uuid.UUID) (int64, error)
}

type MagicLinkRepository interface {
	Create(ctx context.Context, token *domain.MagicLinkToken) error
	// Consume marks the token used if and only if it is unused and unexpired,
	// atomically. On failure it returns the current row (when one exists) so
	// the caller can distinguish invalid, expired and replayed tokens.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*domain.MagicLinkToken, error)
}

type TwoFactorRepository interface {
	Create(ctx context.Context, token *domain.TwoFactorToken) error
	GetByHash(ctx context.Context, tokenHash string) (*domain.TwoFactorToken, error)
	// IncrementAttempts adds one failed attempt and returns the new total.
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

type StoryRepository interface {
	Create(ctx context.Context, story *domain.Story) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.Story, error)
	CountByRoom(ctx context.Context, roomID uuid.UUID) (int64, error)
}

type Repositories struct {
	User      UserRepository
	Room      RoomRepository
	Viewer    ViewerRepository
	MagicLink MagicLinkRepository
	TwoFactor TwoFactorRepository
	Story     StoryRepository
}
