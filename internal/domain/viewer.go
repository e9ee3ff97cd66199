package domain

import (
	"time"

	"github.com/google/uuid"
)

// ViewerIdentity is an anonymous, room-scoped identity. Possession of the
// hash is the credential: there is no password and no account behind it, so
// the hash must be unguessable and is only honored while the room is active.
type ViewerIdentity struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ViewerHash string    `json:"viewerHash" gorm:"uniqueIndex;not null;size:64"`
	RoomID     uuid.UUID `json:"roomId" gorm:"type:uuid;not null;index"`
	Nickname   string    `json:"nickname" gorm:"not null"`
	JoinedAt   time.Time `json:"joinedAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`

	// Relations
	Room *Room `json:"room,omitempty" gorm:"foreignKey:RoomID"`
}
