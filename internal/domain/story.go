package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Story is the metadata record for one uploaded media object. The bytes live
// in object storage under StorageKey; stories are only reachable while their
// room is active, so no per-story expiry is tracked.
type Story struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoomID      uuid.UUID      `json:"roomId" gorm:"type:uuid;not null;index"`
	UploadedBy  string         `json:"uploadedBy" gorm:"not null"` // nickname or "creator"
	StorageKey  string         `json:"-" gorm:"uniqueIndex;not null"`
	ContentType string         `json:"contentType" gorm:"not null"`
	Metadata    datatypes.JSON `json:"metadata"`
	CreatedAt   time.Time      `json:"createdAt"`

	// Relations
	Room *Room `json:"room,omitempty" gorm:"foreignKey:RoomID"`
}
