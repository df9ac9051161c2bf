package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"aufy/internal/handler"
	"aufy/internal/httputil"
	authmw "aufy/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	ProfileHandler *handler.ProfileHandler
	FollowHandler  *handler.FollowHandler
	FeedHandler    *handler.FeedHandler
	CrushHandler   *handler.CrushHandler
	JWTSecret      string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Read surfaces with optional authentication: anonymous viewers get
	// stranger-level visibility.
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuth(cfg.JWTSecret))

		r.Get("/users/{username}", cfg.ProfileHandler.GetProfile)
		r.Get("/users/{id}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/users/{id}/following", cfg.FollowHandler.GetFollowing)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		// Follow lifecycle
		r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)
		r.Post("/follow-requests/{id}/approve", cfg.FollowHandler.Approve)
		r.Post("/follow-requests/{id}/reject", cfg.FollowHandler.Reject)

		// Blocks
		r.Post("/users/{id}/block", cfg.FollowHandler.ToggleBlock)
		r.Get("/me/blocked", cfg.FollowHandler.GetBlocked)

		// Secret crushes: owner-only surface
		r.Post("/crushes/{id}", cfg.CrushHandler.Add)
		r.Delete("/crushes/{id}", cfg.CrushHandler.Remove)
		r.Get("/crushes", cfg.CrushHandler.List)

		// Feeds
		r.Get("/feed", cfg.FeedHandler.GetFeed)
		r.Get("/discovery", cfg.FeedHandler.GetDiscovery)
	})

	return r
}
