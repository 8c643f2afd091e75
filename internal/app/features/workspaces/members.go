// internal/app/features/workspaces/members.go
package workspaces

import (
	"context"
	"net/http"

	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/go-chi/chi/v5"
)

// HandleLeave removes the caller from their workspace. It does not go
// through the workspace middleware so a dangling pointer still gets
// cleared (and reported as NotMember).
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	wsID, err := h.Members.Leave(ctx, id.UID)
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	h.AuditLog.MemberLeft(ctx, r, id.UID, wsID)

	apiresp.OK(w, http.StatusOK, map[string]string{"workspace_id": wsID.Hex()})
}

// HandleKick removes the contributor named in the path. Owner only.
func (h *Handler) HandleKick(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	wsID := workspace.IDFromRequest(r)
	target := chi.URLParam(r, "uid")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Members.Kick(ctx, id.UID, wsID, target); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}
	h.AuditLog.MemberKicked(ctx, r, id.UID, wsID, target)

	apiresp.OK(w, http.StatusOK, map[string]string{"uid": target})
}
