package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/vanishhq/vanish/internal/api/handlers"
	"github.com/vanishhq/vanish/internal/api/middleware"
	"github.com/vanishhq/vanish/internal/config"
	"github.com/vanishhq/vanish/internal/ratelimit"
	"github.com/vanishhq/vanish/internal/service"
)

func NewRouter(services *service.Services, limiter *ratelimit.Limiter, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.FrontendOrigin))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth)
	roomHandler := handlers.NewRoomHandler(services.Room, services.Viewer)
	storyHandler := handlers.NewStoryHandler(services.Upload)

	general := middleware.RateLimit(limiter, ratelimit.ClassGeneral)
	sensitive := middleware.RateLimit(limiter, ratelimit.ClassSensitive)
	roomCreation := middleware.RateLimit(limiter, ratelimit.ClassRoomCreation)
	magicLink := middleware.RateLimit(limiter, ratelimit.ClassMagicLink)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.With(general).Post("/register", authHandler.Register)
			r.With(general).Post("/login", authHandler.Login)
			r.With(magicLink).Post("/magic-link", authHandler.RequestMagicLink)
			r.With(sensitive).Post("/magic-link/verify", authHandler.VerifyMagicLink)
			r.With(sensitive).Post("/2fa", authHandler.CompleteSecondFactor)
			r.With(general).Post("/oauth/callback", authHandler.OAuthCallback)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Get("/me", authHandler.Me)
				r.With(sensitive).Post("/2fa/enable", authHandler.EnableSecondFactor)
				r.With(sensitive).Post("/2fa/confirm", authHandler.ConfirmSecondFactor)
			})
		})

		// Room routes
		r.Route("/rooms", func(r chi.Router) {
			// Public: resolve a code, join as viewer
			r.With(general).Get("/{code}", roomHandler.Resolve)
			r.With(general).Post("/{code}/join", roomHandler.Join)

			// Creator-only
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.With(roomCreation).Post("/", roomHandler.Create)
				r.Get("/", roomHandler.ListOwn)
				r.Post("/{code}/deactivate", roomHandler.Deactivate)
				r.Get("/{code}/viewers", roomHandler.ListViewers)
			})
		})

		// Viewer-scoped routes, re-authorized on every request
		r.Route("/viewer", func(r chi.Router) {
			r.Use(middleware.Viewer(services.Viewer))
			r.With(general).Get("/stories", storyHandler.List)
			r.With(general).Post("/uploads", storyHandler.AuthorizeUpload)
			r.With(general).Post("/uploads/confirm", storyHandler.ConfirmUpload)
		})
	})

	return r
}
