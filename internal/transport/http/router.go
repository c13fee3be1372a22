package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"feedsync/internal/handler"
	"feedsync/internal/httputil"
	"feedsync/internal/identity"
	sessionmw "feedsync/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	SessionHandler  *handler.SessionHandler
	FeedHandler     *handler.FeedHandler
	UserHandler     *handler.UserHandler
	PostHandler     *handler.PostHandler
	MutationHandler *handler.MutationHandler
	Identity        identity.Provider
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

	// Session management - no session required
	r.Post("/session", cfg.SessionHandler.SignIn)
	r.Delete("/session", cfg.SessionHandler.SignOut)

	// Everything else reads or patches the signed-in user's cache
	r.Group(func(r chi.Router) {
		r.Use(sessionmw.RequireSession(cfg.Identity))

		r.Get("/me", cfg.SessionHandler.Me)

		// Feed endpoints
		r.Get("/feed", cfg.FeedHandler.GetFeed)
		r.Post("/feed/more", cfg.FeedHandler.LoadMoreFeed)

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", cfg.UserHandler.GetProfile)
			r.Get("/posts", cfg.FeedHandler.GetUserPosts)
			r.Post("/posts/more", cfg.FeedHandler.LoadMoreUserPosts)
			r.Get("/follow-status", cfg.UserHandler.GetFollowStatus)
			r.Post("/follow", cfg.UserHandler.ToggleFollow)
		})

		// Post endpoints
		r.Post("/posts", cfg.PostHandler.Create)
		r.Get("/posts/{id}", cfg.PostHandler.GetByID)
		r.Post("/posts/{id}/like", cfg.PostHandler.ToggleLike)

		r.Get("/mutations/failed", cfg.MutationHandler.ListFailed)
	})

	return r
}
