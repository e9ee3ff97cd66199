package domain

import (
	"time"

	"github.com/google/uuid"
)

type RoomDuration string

const (
	RoomDuration1Hour  RoomDuration = "1h"
	RoomDuration6Hours RoomDuration = "6h"
	RoomDuration24Hours RoomDuration = "24h"
	RoomDuration7Days  RoomDuration = "7d"
)

// Window returns the wall-clock length of the duration class, or false if the
// class is unknown.
func (d RoomDuration) Window() (time.Duration, bool) {
	switch d {
	case RoomDuration1Hour:
		return time.Hour, true
	case RoomDuration6Hours:
		return 6 * time.Hour, true
	case RoomDuration24Hours:
		return 24 * time.Hour, true
	case RoomDuration7Days:
		return 7 * 24 * time.Hour, true
	}
	return 0, false
}

type Room struct {
	ID           uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Code         string       `json:"code" gorm:"index;not null"`
	CreatedBy    *uuid.UUID   `json:"createdBy" gorm:"type:uuid"`
	Duration     RoomDuration `json:"duration" gorm:"not null;default:'24h'"`
	AllowUploads bool         `json:"allowUploads" gorm:"not null;default:false"`
	CreatedAt    time.Time    `json:"createdAt"`
	ExpiresAt    time.Time    `json:"expiresAt" gorm:"not null;index"`

	// Relations
	Creator *User `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
}

// IsActive reports whether the room is still inside its validity window at the
// given instant. Expiry is always derived from the clock, never cached.
func (r *Room) IsActive(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// HoursRemaining returns whole hours left before expiry, clamped at zero.
func (r *Room) HoursRemaining(now time.Time) int {
	if !r.IsActive(now) {
		return 0
	}
	return int(r.ExpiresAt.Sub(now).Hours())
}

// RoomSummary is the owner-facing listing row, including derived counts.
type RoomSummary struct {
	Room           Room `json:"room"`
	HoursRemaining int  `json:"hoursRemaining"`
	ViewerCount    int64 `json:"viewerCount"`
	StoryCount     int64 `json:"storyCount"`
}
