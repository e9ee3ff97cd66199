package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/vanishhq/vanish/internal/domain"
	"github.com/vanishhq/vanish/internal/service"
)

const (
	ViewerKey contextKey = "viewer"

	// ViewerHashHeader carries the bearer-like viewer credential.
	ViewerHashHeader = "X-Viewer-Hash"
)

// Viewer authorizes the viewer hash on every request; authorization is never
// cached between requests because the room can expire at any moment.
func Viewer(viewerService *service.ViewerService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hash := r.Header.Get(ViewerHashHeader)
			viewer, err := viewerService.AuthorizeViewer(r.Context(), hash, nil)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrRoomExpired):
					http.Error(w, "This room is gone", http.StatusGone)
				case domain.IsValidation(err), errors.Is(err, domain.ErrViewerNotFound):
					http.Error(w, "Unknown viewer", http.StatusUnauthorized)
				default:
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
				return
			}

			ctx := context.WithValue(r.Context(), ViewerKey, viewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetViewer(ctx context.Context) (*domain.ViewerIdentity, bool) {
	viewer, ok := ctx.Value(ViewerKey).(*domain.ViewerIdentity)
	return viewer, ok
}
