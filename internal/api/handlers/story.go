package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vanishhq/vanish/internal/api/middleware"
	"github.com/vanishhq/vanish/internal/domain"
	"github.com/vanishhq/vanish/internal/service"
)

// StoryHandler serves viewer-scoped story reads and the upload authorization
// bridge. Every route here sits behind the viewer middleware, so the room is
// known to be active when these run.
type StoryHandler struct {
	uploadService *service.UploadService
}

func NewStoryHandler(uploadService *service.UploadService) *StoryHandler {
	return &StoryHandler{uploadService: uploadService}
}

func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.GetViewer(r.Context())
	if !ok {
		http.Error(w, "Unknown viewer", http.StatusUnauthorized)
		return
	}

	stories, err := h.uploadService.ListStories(r.Context(), viewer.RoomID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stories)
}

type AuthorizeUploadRequest struct {
	ContentType string `json:"contentType"`
}

func (h *StoryHandler) AuthorizeUpload(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.GetViewer(r.Context())
	if !ok {
		http.Error(w, "Unknown viewer", http.StatusUnauthorized)
		return
	}
	if viewer.Room == nil || !viewer.Room.AllowUploads {
		writeError(w, domain.ErrUploadsNotAllowed)
		return
	}

	var req AuthorizeUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	grant, err := h.uploadService.AuthorizeUpload(r.Context(), viewer.Room, req.ContentType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, grant)
}

type ConfirmUploadRequest struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
}

func (h *StoryHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.GetViewer(r.Context())
	if !ok {
		http.Error(w, "Unknown viewer", http.StatusUnauthorized)
		return
	}
	if viewer.Room == nil || !viewer.Room.AllowUploads {
		writeError(w, domain.ErrUploadsNotAllowed)
		return
	}

	var req ConfirmUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	story, err := h.uploadService.ConfirmUpload(r.Context(), viewer.Room, viewer.Nickname, req.Key, req.ContentType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, story)
}
