package routes

import (
	"gatehouse/internal/auth"
	"gatehouse/internal/handlers"
	"gatehouse/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	sessions *auth.SessionManager,
) {
	// Rate limiting config for auth endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - no session required
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/password/expired", authHandler.ChangeExpiredPassword)
		r.Post("/auth/reset/request", authHandler.RequestReset)
		r.Post("/auth/reset/redeem", authHandler.RedeemReset)
		r.Post("/auth/reset/complete", authHandler.CompleteReset)
	})

	// Protected routes - valid session required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions))

		r.Post("/auth/logout", authHandler.Logout)
	})
}
