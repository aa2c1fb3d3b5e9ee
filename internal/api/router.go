/**
 * @description
 * HTTP router setup for the confirmation service using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers confirmation routes.
func NewRouter(h *Handler, adminJWKSURL string, internalKey string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-ID", "X-Internal-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Confirmation service is healthy"))
	})

	r.Get("/confirm", h.handleConfirm)

	r.Group(func(r chi.Router) {
		r.Use(AdminAuthMiddleware(adminJWKSURL))
		r.Post("/bulk-confirm", h.handleBulkConfirm)
		r.Post("/manual-confirm", h.handleBulkConfirm)
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalKey))
		r.Post("/signup-hook", h.handleSignupHook)
		r.Post("/intercept", h.handleIntercept)
		r.Post("/cleanup/run", h.handleRunCleanup)
	})

	return r
}
