package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/vanishhq/vanish/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError translates service errors to caller-visible results. Nothing
// here crashes the process; unknown errors become a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		http.Error(w, ve.Message, http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrViewerNotFound):
		http.Error(w, "Not found — check the code", http.StatusNotFound)
	case errors.Is(err, domain.ErrRoomExpired):
		http.Error(w, "This room is gone", http.StatusGone)
	case errors.Is(err, domain.ErrRoomMismatch), errors.Is(err, domain.ErrUploadsNotAllowed):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, domain.ErrTokenInvalid):
		http.Error(w, "Invalid token", http.StatusBadRequest)
	case errors.Is(err, domain.ErrTokenExpired):
		http.Error(w, "Token expired", http.StatusGone)
	case errors.Is(err, domain.ErrTokenAlreadyUsed):
		http.Error(w, "Token already used", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthenticated):
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrEmailExists):
		http.Error(w, "Email already registered", http.StatusConflict)
	case errors.Is(err, domain.ErrTooManyAttempts):
		http.Error(w, "Too many attempts", http.StatusTooManyRequests)
	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		log.Error().Err(err).Msg("room code space exhausted")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	default:
		log.Error().Err(err).Msg("unhandled service error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
