// internal/app/features/orders/routes.go
package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, requireWorkspace func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(requireWorkspace)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandlePlace)
	r.Get("/board", h.ServeBoard)
	r.Get("/{id}", h.ServeGet)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	r.Post("/{id}/move", h.HandleMove)

	return r
}
