package domain

import (
	"time"

	"github.com/google/uuid"
)

// MagicLinkToken is a pending passwordless sign-in. Only the SHA-256 of the
// emailed token is stored; UsedAt doubles as the single-use marker and is set
// with an atomic consume-if-unused update.
type MagicLinkToken struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TokenHash string     `json:"-" gorm:"uniqueIndex;not null;size:64"`
	Email     string     `json:"email" gorm:"not null;index"`
	ExpiresAt time.Time  `json:"expiresAt" gorm:"not null"`
	UsedAt    *time.Time `json:"usedAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TwoFactorToken is the short-lived intermediate issued after a correct
// password (or OAuth identity) when the account requires a second factor.
// Without the one-time code it grants nothing.
type TwoFactorToken struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TokenHash string     `json:"-" gorm:"uniqueIndex;not null;size:64"`
	UserID    uuid.UUID  `json:"userId" gorm:"type:uuid;not null"`
	Attempts  int        `json:"attempts" gorm:"not null;default:0"`
	ExpiresAt time.Time  `json:"expiresAt" gorm:"not null"`
	UsedAt    *time.Time `json:"usedAt"`
	CreatedAt time.Time  `json:"createdAt"`
}
