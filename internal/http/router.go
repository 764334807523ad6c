package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"homestead/internal/auth"
	"homestead/internal/config"
	"homestead/internal/users"
)

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, provider *auth.Provider, manager *auth.Manager, userSvc *users.Service, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSlogMiddleware(logger))
	r.Use(newSecurityHeadersMiddleware(cfg.IsProduction()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})

	cookies := newSessionCookies(cfg.SessionSecret, cfg.IsProduction())
	authHandler := NewAuthHandler(provider, manager, cookies, cfg.IsProduction(), logger)
	userHandler := NewUserHandler(userSvc, logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Get("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(newAuthMiddleware(manager, cookies, logger))

			r.Get("/auth/user", userHandler.Get)
			r.Patch("/auth/user", userHandler.Update)

			r.Group(func(r chi.Router) {
				r.Use(newRoleMiddleware(userSvc, logger, users.RoleAdmin))
				r.Get("/admin/users", userHandler.List)
			})
		})
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r
}
