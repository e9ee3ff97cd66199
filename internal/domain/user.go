package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email            string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash     string    `json:"-"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled" gorm:"not null;default:false"`
	TwoFactorSecret  string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasPassword reports whether the account can sign in with a password at all.
// Magic-link-only and OAuth-only accounts carry no hash.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
