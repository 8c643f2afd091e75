// internal/app/features/feeds/routes.go
package feeds

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the feeds. The workspace and profile feeds work without a
// workspace; the list feeds need one.
func Routes(h *Handler, requireWorkspace func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/workspace", h.ServeWorkspace)
	r.Get("/me", h.ServeMe)

	r.Group(func(r chi.Router) {
		r.Use(requireWorkspace)
		r.Get("/customers", h.ServeCustomers)
		r.Get("/services", h.ServeServices)
		r.Get("/items", h.ServeItems)
		r.Get("/orders", h.ServeOrders)
	})

	return r
}
