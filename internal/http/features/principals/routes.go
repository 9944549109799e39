package principals

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/outpost9/accountd/internal/http/middleware"
	"github.com/outpost9/accountd/pkg/domain"
)

// managementRoles may operate on accounts other than their own.
var managementRoles = []string{domain.RoleAdmin, "superadmin"}

// Routes builds the route group for this handler's kind. rateLimit guards
// the public credential endpoints.
func (h *Handler) Routes(rateLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public endpoints
	r.Group(func(r chi.Router) {
		r.Use(rateLimit)
		r.Post("/login", h.Login)
		r.Post("/verify-2fa", h.VerifyTwoFactor)
		r.Post("/request-password-reset", h.RequestPasswordReset)
		r.Post("/reset-password", h.ResetPassword)
	})

	// Authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(h.kind, h.tokens, h.store))

		r.Get("/me", h.GetMe)

		r.With(middleware.RequireSelfOrRole(managementRoles...)).
			Put("/change-password/{id}", h.ChangePassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(managementRoles...))
			r.Post("/add", h.Create)
			r.Get("/get-all", h.List)
			r.Get("/get/{id}", h.Get)
			r.Put("/update/{id}", h.Update)
			r.Put("/update-status/{id}", h.UpdateStatus)
			r.Delete("/delete/{id}", h.Delete)
		})
	})

	return r
}
