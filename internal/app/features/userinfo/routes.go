// internal/app/features/userinfo/routes.go
package userinfo

import "github.com/go-chi/chi/v5"

// MountRoutes registers POST /session and GET /me on the supplied router.
// The router must already require a verified identity.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/session", h.HandleSync)
	r.Get("/me", h.ServeMe)
}
