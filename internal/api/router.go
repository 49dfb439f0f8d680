/**
 * @description
 * HTTP router for the subscription-api using go-chi/chi. Defines the API
 * routes, applies logging, CORS, rate-limit and authentication middleware,
 * and maps routes to their handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new chi router and registers all routes.
func NewRouter(h *Handler, ah *AuthHandler, verifier TokenVerifier, limiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(limiter.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Subscription API is healthy"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/sign-up", ah.handleSignUp)
		r.Post("/auth/sign-in", ah.handleSignIn)
		r.Post("/auth/sign-out", ah.handleSignOut)

		// Called by the workflow host when a subscription is created; the
		// response never waits for the workflow itself.
		r.Post("/workflows/subscriptions/reminder", h.handleTriggerReminders)

		// Protected routes that require authentication
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(verifier))

			r.Get("/users", ah.handleListUsers)
			r.Get("/users/{id}", ah.handleGetUser)
			r.Get("/users/{id}/subscriptions", h.handleListUserSubscriptions)

			r.Post("/subscriptions", h.handleCreateSubscription)
			r.Get("/subscriptions", h.handleListSubscriptions)
			r.Get("/subscriptions/{id}", h.handleGetSubscription)
			r.Put("/subscriptions/{id}", h.handleUpdateSubscription)
			r.Delete("/subscriptions/{id}", h.handleDeleteSubscription)
			r.Put("/subscriptions/{id}/cancel", h.handleCancelSubscription)
		})
	})

	return r
}
