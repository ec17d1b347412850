package auth

import (
	"net/http"

	"github.com/EmpoweredVote/EV-Auth/internal/middleware"
	"github.com/EmpoweredVote/EV-Auth/internal/users"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Request body caps. Avatars arrive as base64 data URIs.
const (
	maxJSONBody   = 64 << 10
	maxAvatarBody = 8 << 20
)

func SetupRoutes(svc *Service, limiter *middleware.IPLimiter) http.Handler {
	r := chi.NewRouter()
	h := NewHandlers(svc)
	authenticate := middleware.Authenticate(svc)
	smallBody := chimiddleware.RequestSize(maxJSONBody)

	// Credential entry points
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter))
		r.Use(smallBody)

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/social-auth", h.SocialAuth)
	})

	// Renewal runs on an expired access token, so only the refresh cookie is checked
	r.Get("/refresh-token", h.RefreshToken)

	// Public routes
	r.Get("/instructors", h.GetInstructors)

	// Logout works from whichever cookie is still valid, so it is not gated
	r.Get("/logout", h.Logout)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/me", h.Me)
		r.With(smallBody).Put("/update-user-info", h.UpdateUserInfo)
		r.With(smallBody).Put("/update-user-password", h.UpdatePassword)
		r.With(chimiddleware.RequestSize(maxAvatarBody)).Put("/update-user-avatar", h.UpdateAvatar)

		// Admin-only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(users.RoleAdmin))
			r.Get("/get-all-users", h.GetAllUsers)
			r.With(smallBody).Put("/update-user-role/{id}", h.UpdateUserRole)
		})
	})

	return r
}
