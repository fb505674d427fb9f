package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/maybewheel/maybewheel/internal/auth"
	"github.com/maybewheel/maybewheel/internal/config"
	"github.com/maybewheel/maybewheel/internal/decision"
	"github.com/maybewheel/maybewheel/internal/httputil"
	"github.com/maybewheel/maybewheel/internal/logging"
	"github.com/maybewheel/maybewheel/internal/poll"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	authHandler *auth.Handler,
	authMiddleware *auth.Middleware,
	pollHandler *poll.Handler,
	decisionHandler *decision.Handler,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// Community polls: creating and voting are open to anonymous callers,
	// but a logged-in creator is recorded as the owner.
	r.Route("/polls", func(r chi.Router) {
		r.With(authMiddleware.OptionalSession).Post("/", pollHandler.Create)
		r.Get("/{id}", pollHandler.Get)
		r.Post("/{id}/vote", pollHandler.Vote)
		r.With(authMiddleware.RequireSession).Post("/{id}/close", pollHandler.Close)
	})

	// Decision history (requires a live session)
	r.Route("/decisions", func(r chi.Router) {
		r.Use(authMiddleware.RequireSession)
		r.Post("/", decisionHandler.Draw)
		r.Get("/", decisionHandler.History)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
