package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vanishhq/vanish/internal/config"
	"github.com/vanishhq/vanish/internal/domain"
	"github.com/vanishhq/vanish/internal/repository"
	"gorm.io/gorm"
)

type RoomService struct {
	roomRepo   repository.RoomRepository
	viewerRepo repository.ViewerRepository
	storyRepo  repository.StoryRepository
	cfg        *config.Config
	now        func() time.Time
}

func NewRoomService(roomRepo repository.RoomRepository, viewerRepo repository.ViewerRepository, storyRepo repository.StoryRepository, cfg *config.Config) *RoomService {
	return &RoomService{
		roomRepo:   roomRepo,
		viewerRepo: viewerRepo,
		storyRepo:  storyRepo,
		cfg:        cfg,
		now:        time.Now,
	}
}

type CreateRoomInput struct {
	CreatedBy    uuid.UUID
	Duration     domain.RoomDuration
	AllowUploads bool
}

// CreateRoomResult is the public view handed back to the creator.
type CreateRoomResult struct {
	Room      *domain.Room
	ShareLink string
	QRPayload string
}

func (s *RoomService) CreateRoom(ctx context.Context, input CreateRoomInput) (*CreateRoomResult, error) {
	window, ok := input.Duration.Window()
	if !ok {
		return nil, &domain.ValidationError{Field: "duration", Message: "must be one of 1h, 6h, 24h, 7d"}
	}

	now := s.now()
	ownerID := input.CreatedBy

	// Fresh draw per attempt; the repository enforces active-code uniqueness
	// atomically, we only retry on the collision it reports.
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateRoomCode()
		if err != nil {
			return nil, err
		}

		room := &domain.Room{
			ID:           uuid.New(),
			Code:         code,
			CreatedBy:    &ownerID,
			Duration:     input.Duration,
			AllowUploads: input.AllowUploads,
			CreatedAt:    now,
			ExpiresAt:    now.Add(window),
		}

		err = s.roomRepo.CreateIfCodeInactive(ctx, room)
		if errors.Is(err, domain.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		shareLink := fmt.Sprintf("%s/join/%s", s.cfg.FrontendOrigin, room.Code)
		return &CreateRoomResult{
			Room:      room,
			ShareLink: shareLink,
			QRPayload: shareLink,
		}, nil
	}

	// Either the code space is genuinely saturated or the generator is
	// broken. Both deserve a loud log, not a quiet retry loop.
	log.Error().Int("attempts", maxCodeAttempts).Msg("room code allocation exhausted retries")
	return nil, domain.ErrCodeSpaceExhausted
}

// ResolveActiveRoom maps a shareable code to its room, distinguishing a code
// that never existed from one whose room is gone.
func (s *RoomService) ResolveActiveRoom(ctx context.Context, code string) (*domain.Room, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != roomCodeLength {
		return nil, &domain.ValidationError{Field: "code", Message: "must be 6 characters"}
	}

	room, err := s.roomRepo.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	if !room.IsActive(s.now()) {
		return nil, domain.ErrRoomExpired
	}
	return room, nil
}

// ListOwnerRooms returns the creator's rooms most-recent-first with derived
// hours remaining and viewer/story counts.
func (s *RoomService) ListOwnerRooms(ctx context.Context, ownerID uuid.UUID) ([]*domain.RoomSummary, error) {
	rooms, err := s.roomRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summaries := make([]*domain.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		viewers, err := s.viewerRepo.CountByRoom(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		stories, err := s.storyRepo.CountByRoom(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &domain.RoomSummary{
			Room:           *room,
			HoursRemaining: room.HoursRemaining(now),
			ViewerCount:    viewers,
			StoryCount:     stories,
		})
	}
	return summaries, nil
}

// DeactivateRoom ends a room early by pulling its expiry to now. Only the
// creator may do this; the room then behaves exactly like one that ran out.
func (s *RoomService) DeactivateRoom(ctx context.Context, code string, ownerID uuid.UUID) error {
	room, err := s.ResolveActiveRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.CreatedBy == nil || *room.CreatedBy != ownerID {
		return domain.ErrRoomNotFound
	}
	return s.roomRepo.SetExpiresAt(ctx, room.ID, s.now())
}

// GetRoomForOwner resolves a code and checks ownership, for owner-facing
// reads like the viewer list.
func (s *RoomService) GetRoomForOwner(ctx context.Context, code string, ownerID uuid.UUID) (*domain.Room, error) {
	room, err := s.ResolveActiveRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.CreatedBy == nil || *room.CreatedBy != ownerID {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}
