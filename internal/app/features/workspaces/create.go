// internal/app/features/workspaces/create.go
package workspaces

import (
	"context"
	"net/http"

	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type nameInput struct {
	Name string `json:"workspace_name"`
}

// HandleCreate creates a workspace owned by the caller and points the
// caller's profile at it.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var in nameInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ws, err := h.Members.CreateWorkspace(ctx, id.UID, htmlsanitize.PlainText(in.Name))
	if err != nil {
		apiresp.Fail(w, r, h.Log, err)
		return
	}

	h.Log.Info("workspace created",
		zap.String("workspace_id", ws.ID.Hex()),
		zap.String("owner_uid", id.UID))
	h.AuditLog.WorkspaceCreated(ctx, r, id.UID, ws.ID, ws.Name)

	apiresp.OK(w, http.StatusCreated, ws)
}
