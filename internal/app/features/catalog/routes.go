// internal/app/features/catalog/routes.go
package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts one catalog behind requireWorkspace.
func Routes(h *Handler, requireWorkspace func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requireWorkspace)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeGet)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)

	return r
}
