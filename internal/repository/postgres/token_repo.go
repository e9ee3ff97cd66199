package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vanishhq/vanish/internal/domain"
	"gorm.io/gorm"
)

type magicLinkRepository struct {
	db *gorm.DB
}

func NewMagicLinkRepository(db *gorm.DB) *magicLinkRepository {
	return &magicLinkRepository{db: db}
}

func (r *magicLinkRepository) Create(ctx context.Context, token *domain.MagicLinkToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *magicLinkRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*domain.MagicLinkToken, error) {
	// Consume-and-check must be one statement: two concurrent verifications
	// of the same token race on used_at, and only one UPDATE may win.
	res := r.db.WithContext(ctx).
		Model(&domain.MagicLinkToken{}).
		Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
		UpdateColumn("used_at", now)
	if res.Error != nil {
		return nil, res.Error
	}

	var token domain.MagicLinkToken
	err := r.db.WithContext(ctx).First(&token, "token_hash = ?", tokenHash).Error
	if err != nil {
		return nil, err
	}

	if res.RowsAffected == 1 {
		return &token, nil
	}

	// The update lost: the row explains why.
	if token.UsedAt != nil {
		return &token, domain.ErrTokenAlreadyUsed
	}
	return &token, domain.ErrTokenExpired
}

type twoFactorRepository struct {
	db *gorm.DB
}

func NewTwoFactorRepository(db *gorm.DB) *twoFactorRepository {
	return &twoFactorRepository{db: db}
}

func (r *twoFactorRepository) Create(ctx context.Context, token *domain.TwoFactorToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *twoFactorRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.TwoFactorToken, error) {
	var token domain.TwoFactorToken
	err := r.db.WithContext(ctx).First(&token, "token_hash = ?", tokenHash).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *twoFactorRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := r.db.WithContext(ctx).
		Raw("UPDATE two_factor_tokens SET attempts = attempts + 1 WHERE id = ? RETURNING attempts", id).
		Scan(&attempts).Error
	return attempts, err
}

func (r *twoFactorRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.TwoFactorToken{}).
		Where("id = ?", id).
		UpdateColumn("used_at", at).Error
}
