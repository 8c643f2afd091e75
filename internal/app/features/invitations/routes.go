// internal/app/features/invitations/routes.go
package invitations

import (
	"net/http"

	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the invitation routes. Redemption is limited per uid by
// limiter; issuing and listing need the caller's workspace.
func Routes(h *Handler, requireWorkspace func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	redeemLimit := ratelimit.Middleware(h.Limiter, redeemKey, h.Log, h.rateLimited)
	r.With(redeemLimit).Post("/redeem", h.HandleRedeem)
	r.Post("/{code}/revoke", h.HandleRevoke)

	r.Group(func(r chi.Router) {
		r.Use(requireWorkspace)
		r.Post("/", h.HandleIssue)
		r.Get("/", h.ServeList)
	})

	return r
}

func redeemKey(r *http.Request) string {
	if id, ok := auth.CurrentIdentity(r); ok {
		return "redeem:" + id.UID
	}
	return "redeem-ip:" + ratelimit.ClientIP(r)
}
