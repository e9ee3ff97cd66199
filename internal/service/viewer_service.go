package service

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/vanishhq/vanish/internal/domain"
	"github.com/vanishhq/vanish/internal/repository"
	"gorm.io/gorm"
)

const maxNicknameLength = 20

type ViewerService struct {
	viewerRepo repository.ViewerRepository
	rooms      *RoomService
	sanitizer  *bluemonday.Policy
	now        func() time.Time
}

func NewViewerService(viewerRepo repository.ViewerRepository, rooms *RoomService) *ViewerService {
	return &ViewerService{
		viewerRepo: viewerRepo,
		rooms:      rooms,
		sanitizer:  bluemonday.StrictPolicy(),
		now:        time.Now,
	}
}

// SanitizeNickname strips all markup from a user-supplied nickname and
// enforces the 1-20 character bound on what is left.
func (s *ViewerService) SanitizeNickname(raw string) (string, error) {
	clean := s.sanitizer.Sanitize(raw)
	clean = strings.TrimSpace(html.UnescapeString(clean))
	if clean == "" {
		return "", &domain.ValidationError{Field: "nickname", Message: "must not be empty"}
	}
	if utf8.RuneCountInString(clean) > maxNicknameLength {
		return "", &domain.ValidationError{Field: "nickname", Message: "must be at most 20 characters"}
	}
	return clean, nil
}

// JoinResult carries everything the client needs to operate in the room
// without re-resolving the code on every call.
type JoinResult struct {
	ViewerHash   string    `json:"viewerHash"`
	Nickname     string    `json:"nickname"`
	RoomCode     string    `json:"roomCode"`
	AllowUploads bool      `json:"allowUploads"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (s *ViewerService) JoinRoom(ctx context.Context, code, nickname string) (*JoinResult, error) {
	// Reject bad input before minting anything.
	clean, err := s.SanitizeNickname(nickname)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.ResolveActiveRoom(ctx, code)
	if err != nil {
		return nil, err
	}

	hash, err := GenerateViewerHash(room.ID, clean)
	if err != nil {
		return nil, err
	}

	now := s.now()
	viewer := &domain.ViewerIdentity{
		ID:         uuid.New(),
		ViewerHash: hash,
		RoomID:     room.ID,
		Nickname:   clean,
		JoinedAt:   now,
		LastSeenAt: now,
	}
	if err := s.viewerRepo.Create(ctx, viewer); err != nil {
		return nil, err
	}

	return &JoinResult{
		ViewerHash:   hash,
		Nickname:     clean,
		RoomCode:     room.Code,
		AllowUploads: room.AllowUploads,
		ExpiresAt:    room.ExpiresAt,
	}, nil
}

// AuthorizeViewer gates every viewer-scoped request. The hash format is
// checked before touching storage, room expiry is re-derived live, and the
// result is never cached beyond the request.
func (s *ViewerService) AuthorizeViewer(ctx context.Context, viewerHash string, expectedRoomID *uuid.UUID) (*domain.ViewerIdentity, error) {
	if !IsValidHashFormat(viewerHash) {
		return nil, &domain.ValidationError{Field: "viewerHash", Message: "malformed viewer hash"}
	}

	viewer, err := s.viewerRepo.GetByHash(ctx, viewerHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrViewerNotFound
		}
		return nil, err
	}

	if viewer.Room == nil {
		// A viewer row without its room is structurally impossible.
		log.Error().Str("viewer_id", viewer.ID.String()).Msg("viewer identity has no room record")
		return nil, domain.ErrViewerNotFound
	}

	now := s.now()
	if !viewer.Room.IsActive(now) {
		return nil, domain.ErrRoomExpired
	}

	if expectedRoomID != nil && viewer.RoomID != *expectedRoomID {
		return nil, domain.ErrRoomMismatch
	}

	// Best effort; authorization does not depend on it.
	if err := s.viewerRepo.TouchLastSeen(ctx, viewer.ID, now); err != nil {
		log.Warn().Err(err).Msg("failed to update viewer last_seen_at")
	}

	return viewer, nil
}

// ListViewers is the creator-facing roster of who joined the room.
func (s *ViewerService) ListViewers(ctx context.Context, roomID uuid.UUID) ([]*domain.ViewerIdentity, error) {
	return s.viewerRepo.ListByRoom(ctx, roomID)
}
