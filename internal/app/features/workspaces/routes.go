// internal/app/features/workspaces/routes.go
package workspaces

import (
	"net/http"

	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the workspace routes. The router must already require a
// verified identity; requireWorkspace resolves the caller's workspace and
// onFail writes rejections.
func Routes(h *Handler, requireWorkspace func(http.Handler) http.Handler, onFail workspace.FailFunc) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.HandleCreate)
	r.Post("/current/leave", h.HandleLeave)

	r.Group(func(r chi.Router) {
		r.Use(requireWorkspace)

		r.Get("/current", h.ServeCurrent)
		r.Patch("/current", h.HandleRename)
		r.Delete("/current", h.HandleDelete)
		r.Delete("/current/members/{uid}", h.HandleKick)

		r.With(workspace.RequireOwner(onFail)).Get("/current/audit", h.ServeAudit)
	})

	return r
}
