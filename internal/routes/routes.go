package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/numisma/numisma/internal/auth"
	"github.com/numisma/numisma/internal/handlers"
	"github.com/numisma/numisma/internal/middleware"
)

// RegisterRoutes registers all application routes.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	catalogHandler *handlers.CatalogHandler,
	tokenManager *auth.TokenManager,
	accounts auth.AccountFetcher,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public auth endpoints, behind the coarse per-IP limiter
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/auth/verify-token", authHandler.VerifyResetToken)
		r.Post("/auth/reset-password", authHandler.ResetPassword)
	})

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokenManager, accounts))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/me", authHandler.Me)
		r.Post("/auth/change-password", authHandler.ChangePassword)

		// Catalog: admin tier (fails closed on any unrecognized role)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Get("/countries", catalogHandler.ListCountries)
			r.Get("/countries/{id}", catalogHandler.GetCountry)
			r.Post("/countries", catalogHandler.CreateCountry)
			r.Put("/countries/{id}", catalogHandler.UpdateCountry)
			r.Delete("/countries/{id}", catalogHandler.DeleteCountry)

			r.Get("/banknotes", catalogHandler.ListBanknotes)
			r.Get("/banknotes/{id}", catalogHandler.GetBanknote)
			r.Post("/banknotes", catalogHandler.CreateBanknote)
			r.Put("/banknotes/{id}", catalogHandler.UpdateBanknote)
			r.Delete("/banknotes/{id}", catalogHandler.DeleteBanknote)

			r.Get("/characteristics", catalogHandler.ListCharacteristics)
			r.Post("/characteristics", catalogHandler.CreateCharacteristic)
			r.Delete("/characteristics/{id}", catalogHandler.DeleteCharacteristic)
		})

		// Account management: admin tier reads and edits, super admin for
		// provisioning and deletion. Escalation and self-delete rules live
		// in the service.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/accounts", accountHandler.List)
			r.Get("/accounts/{id}", accountHandler.Get)
			r.Put("/accounts/{id}", accountHandler.Update)
			r.Put("/accounts/{id}/password", accountHandler.SetPassword)
			r.Get("/accounts/{id}/login-attempts", accountHandler.ListLoginAttempts)

			r.With(auth.RequireSuperAdmin).Post("/accounts", accountHandler.Create)
			r.With(auth.RequireSuperAdmin).Delete("/accounts/{id}", accountHandler.Delete)
		})
	})
}
