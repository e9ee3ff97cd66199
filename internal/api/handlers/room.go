package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vanishhq/vanish/internal/api/middleware"
	"github.com/vanishhq/vanish/internal/domain"
	"github.com/vanishhq/vanish/internal/service"
)

type RoomHandler struct {
	roomService   *service.RoomService
	viewerService *service.ViewerService
}

func NewRoomHandler(roomService *service.RoomService, viewerService *service.ViewerService) *RoomHandler {
	return &RoomHandler{
		roomService:   roomService,
		viewerService: viewerService,
	}
}

type CreateRoomRequest struct {
	Duration     string `json:"duration"`
	AllowUploads bool   `json:"allowUploads"`
}

type RoomResponse struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Duration     string    `json:"duration"`
	AllowUploads bool      `json:"allowUploads"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ShareLink    string    `json:"shareLink,omitempty"`
	QRPayload    string    `json:"qrPayload,omitempty"`
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.roomService.CreateRoom(r.Context(), service.CreateRoomInput{
		CreatedBy:    userID,
		Duration:     domain.RoomDuration(req.Duration),
		AllowUploads: req.AllowUploads,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, RoomResponse{
		ID:           result.Room.ID.String(),
		Code:         result.Room.Code,
		Duration:     string(result.Room.Duration),
		AllowUploads: result.Room.AllowUploads,
		ExpiresAt:    result.Room.ExpiresAt,
		ShareLink:    result.ShareLink,
		QRPayload:    result.QRPayload,
	})
}

func (h *RoomHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	summaries, err := h.roomService.ListOwnerRooms(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// Resolve validates a room code without joining, so clients can check a code
// before asking for a nickname.
func (h *RoomHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	room, err := h.roomService.ResolveActiveRoom(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RoomResponse{
		ID:           room.ID.String(),
		Code:         room.Code,
		Duration:     string(room.Duration),
		AllowUploads: room.AllowUploads,
		ExpiresAt:    room.ExpiresAt,
	})
}

type JoinRoomRequest struct {
	Nickname string `json:"nickname"`
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.viewerService.JoinRoom(r.Context(), code, req.Nickname)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *RoomHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	if err := h.roomService.DeactivateRoom(r.Context(), chi.URLParam(r, "code"), userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type ViewerEntry struct {
	Nickname   string    `json:"nickname"`
	JoinedAt   time.Time `json:"joinedAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

func (h *RoomHandler) ListViewers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	room, err := h.roomService.GetRoomForOwner(r.Context(), chi.URLParam(r, "code"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	viewers, err := h.viewerService.ListViewers(r.Context(), room.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	entries := make([]ViewerEntry, 0, len(viewers))
	for _, v := range viewers {
		entries = append(entries, ViewerEntry{
			Nickname:   v.Nickname,
			JoinedAt:   v.JoinedAt,
			LastSeenAt: v.LastSeenAt,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}
